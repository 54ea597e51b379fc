// Package lanes provides the 16-lane unsigned byte vector used by the
// striped DP filters.
//
// U8x16 mirrors one 128-bit register of uint8 lanes. Every operation is a
// fixed-length loop over a value array so the compiler can keep it in
// registers. The SWAR variants in swar.go perform the same operations on two
// packed uint64 words and must stay bit-identical to these.
package lanes

// Width is the number of lanes in a vector.
const Width = 16

// Ceiling is the largest representable lane value.
const Ceiling = 255

// U8x16 represents 16 uint8 lanes. Lane 0 is the lowest-addressed byte.
type U8x16 [Width]uint8

// Splat creates a vector with every lane set to b.
func Splat(b uint8) U8x16 {
	var v U8x16
	for i := range v {
		v[i] = b
	}
	return v
}

// AddSat performs lane-wise addition clamped at Ceiling.
func (v U8x16) AddSat(w U8x16) U8x16 {
	var r U8x16
	for i := range v {
		s := uint16(v[i]) + uint16(w[i])
		if s > Ceiling {
			s = Ceiling
		}
		r[i] = uint8(s)
	}
	return r
}

// SubSat performs lane-wise subtraction clamped at zero.
func (v U8x16) SubSat(w U8x16) U8x16 {
	var r U8x16
	for i := range v {
		if v[i] > w[i] {
			r[i] = v[i] - w[i]
		}
	}
	return r
}

// Max returns the lane-wise unsigned maximum.
func (v U8x16) Max(w U8x16) U8x16 {
	var r U8x16
	for i := range v {
		if v[i] > w[i] {
			r[i] = v[i]
		} else {
			r[i] = w[i]
		}
	}
	return r
}

// ShiftUp moves every lane one position up (lane z receives lane z-1) and
// fills lane 0 with zero. This is a one-byte left shift of a little-endian
// register.
func (v U8x16) ShiftUp() U8x16 {
	var r U8x16
	copy(r[1:], v[:Width-1])
	return r
}

// ReduceMax returns the largest lane value.
func (v U8x16) ReduceMax() uint8 {
	m := v[0]
	for _, b := range v[1:] {
		if b > m {
			m = b
		}
	}
	return m
}

// SatAdd is the scalar saturating addition used for the special states.
func SatAdd(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > Ceiling {
		return Ceiling
	}
	return uint8(s)
}

// SatSub is the scalar saturating subtraction used for the special states.
func SatSub(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return 0
}

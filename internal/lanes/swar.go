package lanes

import "encoding/binary"

// Words holds a U8x16 as two little-endian packed uint64 words. Lanes 0..7
// live in Words[0] (lane z at bits 8z..8z+7), lanes 8..15 in Words[1].
type Words [2]uint64

const (
	hiBits  = 0x8080808080808080
	loBytes = 0x0101010101010101
)

// Pack converts a vector into its packed word form.
func Pack(v U8x16) Words {
	return Words{
		binary.LittleEndian.Uint64(v[0:8]),
		binary.LittleEndian.Uint64(v[8:16]),
	}
}

// Unpack converts packed words back into a vector.
func Unpack(w Words) U8x16 {
	var v U8x16
	binary.LittleEndian.PutUint64(v[0:8], w[0])
	binary.LittleEndian.PutUint64(v[8:16], w[1])
	return v
}

// SplatWords creates packed words with every lane set to b.
func SplatWords(b uint8) Words {
	x := uint64(b) * loBytes
	return Words{x, x}
}

// laneMask widens the top bit of every byte of m into a full 0x00/0xFF byte.
func laneMask(m uint64) uint64 {
	return ((m & hiBits) >> 7) * 0xFF
}

// addSat64 adds eight byte lanes without carry between lanes, clamping each
// lane at 0xFF.
func addSat64(a, b uint64) uint64 {
	low := (a &^ hiBits) + (b &^ hiBits)
	sum := low ^ ((a ^ b) & hiBits)
	carry := (a & b) | ((a | b) &^ sum)
	return sum | laneMask(carry)
}

// sub64 subtracts eight byte lanes without borrow between lanes. It returns
// the wrapped difference and a word whose byte top bits flag a borrow out of
// that lane (a < b).
func sub64(a, b uint64) (diff, borrow uint64) {
	diff = ((a | hiBits) - (b &^ hiBits)) ^ ((a ^ b ^ hiBits) & hiBits)
	borrow = (^a & b) | (^(a ^ b) & diff)
	return diff, borrow
}

func subSat64(a, b uint64) uint64 {
	diff, borrow := sub64(a, b)
	return diff &^ laneMask(borrow)
}

func max64(a, b uint64) uint64 {
	_, borrow := sub64(a, b)
	return a ^ ((a ^ b) & laneMask(borrow))
}

// AddSatSWAR is the packed form of U8x16.AddSat.
func AddSatSWAR(a, b Words) Words {
	return Words{addSat64(a[0], b[0]), addSat64(a[1], b[1])}
}

// SubSatSWAR is the packed form of U8x16.SubSat.
func SubSatSWAR(a, b Words) Words {
	return Words{subSat64(a[0], b[0]), subSat64(a[1], b[1])}
}

// MaxSWAR is the packed form of U8x16.Max.
func MaxSWAR(a, b Words) Words {
	return Words{max64(a[0], b[0]), max64(a[1], b[1])}
}

// ShiftUpSWAR is the packed form of U8x16.ShiftUp.
func ShiftUpSWAR(a Words) Words {
	return Words{a[0] << 8, a[1]<<8 | a[0]>>56}
}

// ReduceMaxSWAR is the packed form of U8x16.ReduceMax.
func ReduceMaxSWAR(a Words) uint8 {
	m := max64(a[0], a[1])
	m = max64(m, m>>32)
	m = max64(m, m>>16)
	m = max64(m, m>>8)
	return uint8(m)
}

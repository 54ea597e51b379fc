package lanes

import (
	"math/rand"
	"testing"
)

func clampInt(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > Ceiling {
		return Ceiling
	}
	return uint8(x)
}

// pairVectors builds two vectors in which every lane sees the pair (a, b)
// offset by a lane-specific rotation, so sweeping a and b over 0..255 covers
// every lane pair in every lane position.
func pairVectors(a, b int) (U8x16, U8x16) {
	var v, w U8x16
	for z := 0; z < Width; z++ {
		v[z] = uint8(a + z*17)
		w[z] = uint8(b + z*31)
	}
	return v, w
}

func TestSaturationMatchesIntegerClamp(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			v, w := pairVectors(a, b)
			add := v.AddSat(w)
			sub := v.SubSat(w)
			mx := v.Max(w)
			for z := 0; z < Width; z++ {
				x, y := int(v[z]), int(w[z])
				if add[z] != clampInt(x+y) {
					t.Fatalf("AddSat(%d,%d) = %d, want %d", x, y, add[z], clampInt(x+y))
				}
				if sub[z] != clampInt(x-y) {
					t.Fatalf("SubSat(%d,%d) = %d, want %d", x, y, sub[z], clampInt(x-y))
				}
				want := uint8(x)
				if y > x {
					want = uint8(y)
				}
				if mx[z] != want {
					t.Fatalf("Max(%d,%d) = %d, want %d", x, y, mx[z], want)
				}
			}
		}
	}
}

func TestSWARMatchesScalar(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			v, w := pairVectors(a, b)
			pv, pw := Pack(v), Pack(w)

			if got, want := Unpack(AddSatSWAR(pv, pw)), v.AddSat(w); got != want {
				t.Fatalf("AddSatSWAR mismatch for %v + %v: got %v, want %v", v, w, got, want)
			}
			if got, want := Unpack(SubSatSWAR(pv, pw)), v.SubSat(w); got != want {
				t.Fatalf("SubSatSWAR mismatch for %v - %v: got %v, want %v", v, w, got, want)
			}
			if got, want := Unpack(MaxSWAR(pv, pw)), v.Max(w); got != want {
				t.Fatalf("MaxSWAR mismatch for %v, %v: got %v, want %v", v, w, got, want)
			}
		}
	}
}

func TestShiftUp(t *testing.T) {
	var v U8x16
	for z := range v {
		v[z] = uint8(z + 1)
	}

	got := v.ShiftUp()
	if got[0] != 0 {
		t.Errorf("lane 0 should take the zero sentinel, got %d", got[0])
	}
	for z := 1; z < Width; z++ {
		if got[z] != v[z-1] {
			t.Errorf("lane %d: got %d, want %d", z, got[z], v[z-1])
		}
	}

	if swar := Unpack(ShiftUpSWAR(Pack(v))); swar != got {
		t.Errorf("ShiftUpSWAR = %v, want %v", swar, got)
	}
}

func TestReduceMax(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 1000; trial++ {
		var v U8x16
		for z := range v {
			v[z] = uint8(rng.Intn(256))
		}
		want := uint8(0)
		for _, b := range v {
			if b > want {
				want = b
			}
		}
		if got := v.ReduceMax(); got != want {
			t.Fatalf("ReduceMax(%v) = %d, want %d", v, got, want)
		}
		if got := ReduceMaxSWAR(Pack(v)); got != want {
			t.Fatalf("ReduceMaxSWAR(%v) = %d, want %d", v, got, want)
		}
	}

	// Maximum in every lane position, including the top lane of each word.
	for z := 0; z < Width; z++ {
		var v U8x16
		v[z] = 200
		if got := ReduceMaxSWAR(Pack(v)); got != 200 {
			t.Errorf("max in lane %d: got %d, want 200", z, got)
		}
	}
}

func TestSplat(t *testing.T) {
	v := Splat(77)
	for z, b := range v {
		if b != 77 {
			t.Errorf("lane %d = %d, want 77", z, b)
		}
	}
	if Unpack(SplatWords(77)) != v {
		t.Error("SplatWords should match Splat")
	}
}

func TestPackRoundTripLaneOrder(t *testing.T) {
	var v U8x16
	v[0] = 0x11
	v[8] = 0x22
	w := Pack(v)
	if w[0]&0xFF != 0x11 {
		t.Errorf("lane 0 should be the low byte of word 0, got %#x", w[0])
	}
	if w[1]&0xFF != 0x22 {
		t.Errorf("lane 8 should be the low byte of word 1, got %#x", w[1])
	}
}

func TestScalarSaturationHelpers(t *testing.T) {
	tests := []struct {
		a, b     uint8
		add, sub uint8
	}{
		{0, 0, 0, 0},
		{200, 100, 255, 100},
		{100, 200, 255, 0},
		{255, 255, 255, 0},
		{10, 5, 15, 5},
	}
	for _, tt := range tests {
		if got := SatAdd(tt.a, tt.b); got != tt.add {
			t.Errorf("SatAdd(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.add)
		}
		if got := SatSub(tt.a, tt.b); got != tt.sub {
			t.Errorf("SatSub(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.sub)
		}
	}
}

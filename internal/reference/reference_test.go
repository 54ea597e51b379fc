package reference

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/mspfilter/internal/profile"
)

func TestGMSPSingleResidue(t *testing.T) {
	gm := profile.New("one", profile.DNA, 1)
	gm.L = 1
	gm.MSC[0] = []float32{2, -1, -1, -1}

	// S->N->B->M1->E->C->T with B->M1 = log(2/2) = 0.
	tr := gm.Transitions()
	want := tr.NB + 2 + tr.EC + tr.NB

	got := GMSP([]byte{0}, gm)
	if math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("GMSP = %f, want %f", got, want)
	}
}

func TestGMSPEmptySequence(t *testing.T) {
	gm := profile.New("one", profile.DNA, 3)
	if got := GMSP(nil, gm); !math.IsInf(float64(got), -1) {
		t.Errorf("GMSP of an empty sequence = %f, want -Inf", got)
	}
}

func TestGMSPMultihit(t *testing.T) {
	// Two good segments separated by a poison residue.
	gm := profile.New("two", profile.DNA, 2)
	gm.L = 5
	gm.MSC[0] = []float32{3, -5, -5, float32(math.Inf(-1))}
	gm.MSC[1] = []float32{-5, 3, -5, float32(math.Inf(-1))}
	dsq := []byte{0, 1, 3, 0, 1}
	single := []byte{0, 1, 3, 3, 3}

	multi := GMSP(dsq, gm)
	one := GMSP(single, gm)
	if !(multi > one) {
		t.Errorf("second segment should raise the multihit score: two=%f one=%f", multi, one)
	}

	gm.Mode = profile.ModeUnilocal
	if uni := GMSP(dsq, gm); !(uni < multi) {
		t.Errorf("unihit score %f should be below multihit %f", uni, multi)
	}
}

func TestEmulateEndToEnd(t *testing.T) {
	om := profile.NewOptimized(profile.DNA, 1)
	om.ReconfigLength(3)
	om.TEC = 3
	om.TBM = 0
	om.Bias = om.TJB + om.TBM + om.TEC
	om.SetCost(2, 1, 0)

	score, at := Emulate([]byte{2}, om)
	if at != 0 {
		t.Fatalf("unexpected overflow at residue %d", at)
	}
	want := -float32(om.TJB)/om.Scale - om.NNCorrection
	if math.Abs(float64(score-want)) > 1e-6 {
		t.Errorf("Emulate = %f, want %f", score, want)
	}
	if same := SameMSP([]byte{2}, om); math.Abs(float64(same-want)) > 1e-4 {
		t.Errorf("SameMSP = %f, want %f", same, want)
	}
}

func TestEmulateOverflowResidue(t *testing.T) {
	tests := []struct {
		base uint8
		want int
	}{
		{195, 2}, // xE = 215, 235
		{194, 3}, // xE = 214, 234, 254
		{150, 0}, // xE = 170, 150, 190, 170
	}
	for _, tt := range tests {
		om := profile.NewOptimized(profile.DNA, 1)
		om.Base = tt.base
		om.Bias = 20
		om.TBM, om.TEC, om.TJB = 0, 0, 0
		om.SetCost(0, 1, 0)
		om.SetCost(1, 1, 40)

		dsq := []byte{0, 0, 0, 0}
		if tt.want == 0 {
			// Alternate a good residue with a poor one so xC stays flat.
			dsq = []byte{0, 1, 0, 1}
		}
		_, at := Emulate(dsq, om)
		if at != tt.want {
			t.Errorf("base=%d: overflow at residue %d, want %d", tt.base, at, tt.want)
		}
	}
}

func TestSameMSPMatchesEmulate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	compared := 0
	for trial := 0; trial < 50; trial++ {
		gm := profile.Sample(rng, profile.Amino, 10, 50)
		om, err := profile.Convert(gm)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		dsq := profile.RandomSequence(rng, profile.Amino, 50)

		emu, at := Emulate(dsq, om)
		if at != 0 {
			continue
		}
		same := SameMSP(dsq, om)
		if math.Abs(float64(emu-same)) > 0.001 {
			t.Errorf("trial %d: Emulate=%f SameMSP=%f", trial, emu, same)
		}
		compared++
	}
	if compared == 0 {
		t.Fatal("every trial overflowed; nothing compared")
	}
}

package msp

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/reference"
)

func sampleOptimized(t testing.TB, rng *rand.Rand, abc *profile.Alphabet, m, l int) *profile.Optimized {
	t.Helper()
	om, err := profile.Convert(profile.Sample(rng, abc, m, l))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	return om
}

// constantProfile builds an M=1 profile with zero transition costs, where
// residue 0 costs 0 and every other residue costs 255.
func constantProfile(base, bias uint8) *profile.Optimized {
	om := profile.NewOptimized(profile.DNA, 1)
	om.Base = base
	om.Bias = bias
	om.TBM, om.TEC, om.TJB = 0, 0, 0
	om.SetCost(0, 1, 0)
	return om
}

// TestFilterMatchesEmulate checks every backend against the unstriped
// recurrence across model lengths around the stripe boundaries.
func TestFilterMatchesEmulate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lengths := []int{1, 2, 15, 16, 17, 31, 32, 33, 100, 257}

	for _, b := range Backends() {
		t.Run(b.String(), func(t *testing.T) {
			for _, m := range lengths {
				om := sampleOptimized(t, rng, profile.Amino, m, 200)
				row := NewRow(m)
				for trial := 0; trial < 20; trial++ {
					dsq := profile.RandomSequence(rng, profile.Amino, rng.Intn(200))

					got, err := FilterWith(b, dsq, om, row)
					if err != nil {
						t.Fatalf("M=%d: Filter failed: %v", m, err)
					}
					want, at := reference.Emulate(dsq, om)

					if got.Residue != at {
						t.Errorf("M=%d L=%d: range check at %d, want %d", m, len(dsq), got.Residue, at)
						continue
					}
					if (at > 0) != got.Overflowed() {
						t.Errorf("M=%d L=%d: status %s inconsistent with residue %d", m, len(dsq), got.Status, at)
					}
					if got.Score != want {
						t.Errorf("M=%d L=%d: score = %f, want %f", m, len(dsq), got.Score, want)
					}
				}
			}
		})
	}
}

func TestFilterMatchesSameMSP(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	row := NewRow(10)
	compared := 0

	for trial := 0; trial < 100; trial++ {
		om := sampleOptimized(t, rng, profile.Amino, 10, 50)
		dsq := profile.RandomSequence(rng, profile.Amino, 50)

		res, err := Filter(dsq, om, row)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if res.Overflowed() {
			continue
		}
		want := reference.SameMSP(dsq, om)
		if diff := math.Abs(float64(res.Score - want)); diff > 0.001 {
			t.Errorf("trial %d: filter=%f reference=%f diff=%g", trial, res.Score, want, diff)
		}
		compared++
	}
	if compared < 50 {
		t.Errorf("only %d of 100 trials stayed in range", compared)
	}
}

func TestBackendsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	om := sampleOptimized(t, rng, profile.DNA, 60, 300)
	rowA, rowB := NewRow(60), NewRow(60)

	for trial := 0; trial < 50; trial++ {
		dsq := profile.RandomSequence(rng, profile.DNA, 300)
		a, errA := FilterWith(BackendScalar, dsq, om, rowA)
		b, errB := FilterWith(BackendSWAR, dsq, om, rowB)
		if errA != nil || errB != nil {
			t.Fatalf("Filter failed: %v, %v", errA, errB)
		}
		if a != b {
			t.Errorf("trial %d: scalar=%+v swar=%+v", trial, a, b)
		}
	}
}

func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	om := sampleOptimized(t, rng, profile.Amino, 45, 120)
	dsq := profile.RandomSequence(rng, profile.Amino, 120)
	row := NewRow(45)

	first, err := Filter(dsq, om, row)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Filter(dsq, om, row)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if math.Float32bits(again.Score) != math.Float32bits(first.Score) || again.Status != first.Status {
			t.Fatalf("call %d: got %+v, want %+v", i, again, first)
		}
	}
}

func TestRowTooSmall(t *testing.T) {
	om := profile.NewOptimized(profile.DNA, 40) // Q = 3
	row := NewRow(32)                           // 2 vectors

	for _, l := range []int{0, 1, 10} {
		_, err := Filter(make([]byte, l), om, row)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("L=%d: expected ErrInvalidArgument, got %v", l, err)
		}
		var rerr *RowTooSmallError
		if !errors.As(err, &rerr) || rerr.Need != 3 || rerr.Have != 2 {
			t.Errorf("L=%d: expected RowTooSmallError{3, 2}, got %v", l, err)
		}
	}

	if _, err := Filter([]byte{0}, om, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil row: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := Filter([]byte{0}, nil, row); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil profile: expected ErrInvalidArgument, got %v", err)
	}

	row.Grow(40)
	if _, err := Filter([]byte{0, 1}, om, row); err != nil {
		t.Errorf("grown row should fit: %v", err)
	}
}

func TestRowCapacity(t *testing.T) {
	row := NewRow(17)
	if row.Capacity() != 2 {
		t.Errorf("Capacity = %d, want 2", row.Capacity())
	}
	if row.MaxM() != 32 {
		t.Errorf("MaxM = %d, want 32", row.MaxM())
	}
	row.Grow(10)
	if row.Capacity() != 2 {
		t.Errorf("Grow should never shrink, capacity = %d", row.Capacity())
	}
}

func TestRowReuseAcrossProfiles(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	big := sampleOptimized(t, rng, profile.DNA, 200, 100)
	small := sampleOptimized(t, rng, profile.DNA, 5, 100)
	dsq := profile.RandomSequence(rng, profile.DNA, 100)

	fresh, err := Filter(dsq, small, NewRow(5))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	row := NewRow(200)
	if _, err := Filter(dsq, big, row); err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	reused, err := Filter(dsq, small, row)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if reused != fresh {
		t.Errorf("stale row state leaked: got %+v, want %+v", reused, fresh)
	}
}

func TestDegenerateSizes(t *testing.T) {
	om := constantProfile(profile.DefaultBase, 10)
	row := NewRow(1)

	res, err := Filter([]byte{0}, om, row)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	// xE = 190 + 10, xC = 200.
	want := (float32(200) - 190) / om.Scale
	if res.Raw != want {
		t.Errorf("Raw = %f, want %f", res.Raw, want)
	}

	res, err = Filter(nil, om, row)
	if err != nil {
		t.Fatalf("Filter failed on empty sequence: %v", err)
	}
	if want := -190/om.Scale - om.NNCorrection; res.Score != want {
		t.Errorf("empty sequence score = %f, want %f", res.Score, want)
	}
}

func TestEndToEndConstantScore(t *testing.T) {
	om := profile.NewOptimized(profile.DNA, 1)
	om.ReconfigLength(3)
	om.TEC = 3
	om.Bias = om.TJB + om.TBM + om.TEC
	om.SetCost(1, 1, 0)

	res, err := Filter([]byte{1}, om, NewRow(1))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	want := (float32(om.Base)-float32(om.TJB)-float32(om.Base))/om.Scale - om.NNCorrection
	if res.Score != want {
		t.Errorf("Score = %f, want %f", res.Score, want)
	}
}

func TestOverflowBoundary(t *testing.T) {
	tests := []struct {
		name    string
		base    uint8
		residue int
	}{
		{"lands on threshold at residue 2", 195, 2},
		{"one below threshold at residue 2", 194, 3},
		{"threshold at first residue", 215, 1},
		{"one below at first residue", 214, 2},
	}
	dsq := []byte{0, 0, 0, 0, 0}

	for _, b := range Backends() {
		for _, tt := range tests {
			t.Run(b.String()+"/"+tt.name, func(t *testing.T) {
				om := constantProfile(tt.base, 20)
				res, err := FilterWith(b, dsq, om, NewRow(1))
				if err != nil {
					t.Fatalf("Filter failed: %v", err)
				}
				if res.Status != StatusRangeExceeded {
					t.Fatalf("status = %s, want range_exceeded", res.Status)
				}
				if res.Residue != tt.residue {
					t.Errorf("range check fired at residue %d, want %d", res.Residue, tt.residue)
				}
				if !math.IsInf(float64(res.Score), 1) {
					t.Errorf("Score = %f, want +Inf", res.Score)
				}
			})
		}
	}

	// Stopping one residue short of the threshold stays in range.
	res, err := Filter([]byte{0}, constantProfile(195, 20), NewRow(1))
	if err != nil || res.Status != StatusOK {
		t.Errorf("single residue should stay in range: %+v, %v", res, err)
	}
}

func TestMonotonicEmissionCost(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	row := NewRow(20)
	checked := 0

	for trial := 0; trial < 200; trial++ {
		om := sampleOptimized(t, rng, profile.DNA, 20, 60)
		dsq := profile.RandomSequence(rng, profile.DNA, 60)

		x := byte(rng.Intn(4))
		k := rng.Intn(20) + 1
		cost := om.Cost(x, k)
		if cost == 0 {
			continue
		}

		before, err := Filter(dsq, om, row)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		om.SetCost(x, k, cost-uint8(rng.Intn(int(cost))+1))
		after, err := Filter(dsq, om, row)
		if err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
		if before.Overflowed() || after.Overflowed() {
			continue
		}
		if after.Score < before.Score {
			t.Errorf("trial %d: lowering cost(%d,%d) from %d lowered score %f -> %f",
				trial, x, k, cost, before.Score, after.Score)
		}
		checked++
	}
	if checked == 0 {
		t.Fatal("no trial exercised the property")
	}
}

func TestNNCorrectionOverride(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	om := sampleOptimized(t, rng, profile.DNA, 8, 30)
	dsq := profile.RandomSequence(rng, profile.DNA, 30)
	row := NewRow(8)

	a, _ := Filter(dsq, om, row)
	if a.Overflowed() {
		t.Skip("sampled input exceeded the range")
	}
	om.NNCorrection = 0
	b, _ := Filter(dsq, om, row)
	if b.Score != a.Raw {
		t.Errorf("zero correction: Score = %f, want Raw %f", b.Score, a.Raw)
	}
	if d := a.Raw - a.Score - profile.ModeLocal.DefaultCorrection(); math.Abs(float64(d)) > 1e-5 {
		t.Errorf("default correction not applied: Raw=%f Score=%f", a.Raw, a.Score)
	}
}

func TestParseBackend(t *testing.T) {
	for _, b := range Backends() {
		got, err := ParseBackend(b.String())
		if err != nil || got != b {
			t.Errorf("ParseBackend(%q) = %v, %v", b.String(), got, err)
		}
	}
	if _, err := ParseBackend("avx512"); err == nil {
		t.Error("expected error for unknown backend")
	}
	if StatusRangeExceeded.String() != "range_exceeded" {
		t.Errorf("StatusRangeExceeded.String() = %q", StatusRangeExceeded.String())
	}
}

func TestActiveBackend(t *testing.T) {
	t.Logf("Active MSP backend: %s", ActiveBackend)
	if ActiveBackend != BackendScalar && ActiveBackend != BackendSWAR {
		t.Errorf("unexpected active backend %v", ActiveBackend)
	}
}

func BenchmarkFilter(b *testing.B) {
	rng := rand.New(rand.NewSource(8))
	om := sampleOptimized(b, rng, profile.Amino, 200, 400)
	dsq := profile.RandomSequence(rng, profile.Amino, 400)
	row := NewRow(200)

	for _, backend := range Backends() {
		b.Run(backend.String(), func(b *testing.B) {
			b.SetBytes(int64(len(dsq)))
			for i := 0; i < b.N; i++ {
				if _, err := FilterWith(backend, dsq, om, row); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestShortEmissionTable(t *testing.T) {
	om := profile.NewOptimized(profile.DNA, 40) // Q = 3
	om.RM[2] = om.RM[2][:2]
	row := NewRow(om.M)

	for _, b := range Backends() {
		if _, err := FilterWith(b, []byte{0, 2}, om, row); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument for a truncated residue table, got %v", b, err)
		}
	}
}

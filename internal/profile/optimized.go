package profile

import (
	"fmt"
	"math"

	"github.com/cwbudde/mspfilter/internal/lanes"
)

const (
	// DefaultBase is the offset that keeps all filter values non-negative.
	DefaultBase = 190
	// paddingCost pins unused striped lanes to the zero sentinel.
	paddingCost = lanes.Ceiling
)

// DefaultScale converts nats to third-bits.
var DefaultScale = float32(3.0 / math.Ln2)

// Optimized is the striped, quantized form of a profile consumed by the MSP
// filter. Values are costs in an offset unsigned byte domain where zero is
// -infinity and Base is a score of zero.
//
// An Optimized profile is read-only once built and may be shared by any
// number of concurrent filter calls.
type Optimized struct {
	M        int
	Q        int
	Alphabet *Alphabet

	// RM[x][q] holds the emission costs of residue code x, canonical or
	// degenerate, for striped vector q.
	// Model position k sits in vector (k-1)%Q, lane (k-1)/Q.
	RM [][]lanes.U8x16

	Base  uint8
	Bias  uint8
	Scale float32

	// Filter transition costs: B->Mk, E->C (=E->J) and C->T (=J->B, N->B).
	TBM uint8
	TEC uint8
	TJB uint8

	Mode Mode
	L    int

	// NNCorrection is subtracted from the final nat score for the
	// N, C and J loop contributions the filter leaves out.
	NNCorrection float32
}

// NQ returns the number of striped vectors needed for a model of length m.
func NQ(m int) int {
	if m < 1 {
		return 0
	}
	return (m-1)/lanes.Width + 1
}

// NewOptimized allocates an optimized profile of length m with every
// emission cost at the padding value and default constants. Callers fill in
// costs with SetCost.
func NewOptimized(abc *Alphabet, m int) *Optimized {
	q := NQ(m)
	rm := make([][]lanes.U8x16, abc.Kp())
	for x := range rm {
		rm[x] = make([]lanes.U8x16, q)
		for i := range rm[x] {
			rm[x][i] = lanes.Splat(paddingCost)
		}
	}
	return &Optimized{
		M:            m,
		Q:            q,
		Alphabet:     abc,
		RM:           rm,
		Base:         DefaultBase,
		Scale:        DefaultScale,
		Mode:         ModeLocal,
		L:            DefaultLength,
		NNCorrection: ModeLocal.DefaultCorrection(),
	}
}

// Convert quantizes a generic profile into its striped optimized form.
func Convert(gm *Profile) (*Optimized, error) {
	if err := gm.Validate(); err != nil {
		return nil, fmt.Errorf("failed to convert profile: %w", err)
	}

	om := NewOptimized(gm.Alphabet, gm.M)
	om.Mode = gm.Mode
	om.NNCorrection = gm.Mode.DefaultCorrection()

	bias := math.Round(float64(om.Scale) * float64(gm.MaxScore()))
	om.Bias = clampByte(bias)

	for k := 1; k <= gm.M; k++ {
		for x := 0; x < gm.Alphabet.Kp(); x++ {
			om.SetCost(byte(x), k, om.biasedByteify(gm.Match(k, byte(x))))
		}
	}

	m := float64(gm.M)
	om.TBM = om.unbiasedByteify(float32(math.Log(2.0 / (m * (m + 1)))))
	om.TEC = om.unbiasedByteify(float32(math.Log(0.5)))
	om.ReconfigLength(gm.L)

	return om, nil
}

// ReconfigLength sets the length-dependent C->T and J->B cost for targets of
// length l.
func (om *Optimized) ReconfigLength(l int) {
	om.L = l
	om.TJB = om.unbiasedByteify(float32(math.Log(3.0 / float64(l+3))))
}

// Cost returns the emission cost of residue x at model position k (1..M).
func (om *Optimized) Cost(x byte, k int) uint8 {
	q, z := om.stripe(k)
	return om.RM[x][q][z]
}

// SetCost sets the emission cost of residue x at model position k (1..M).
func (om *Optimized) SetCost(x byte, k int, cost uint8) {
	q, z := om.stripe(k)
	om.RM[x][q][z] = cost
}

func (om *Optimized) stripe(k int) (q, z int) {
	return (k - 1) % om.Q, (k - 1) / om.Q
}

// Score converts an emission cost back to a quantized nat score.
func (om *Optimized) Score(cost uint8) float32 {
	return (float32(om.Bias) - float32(cost)) / om.Scale
}

// Validate checks the table shapes and constants the filter relies on.
func (om *Optimized) Validate() error {
	if om.Alphabet == nil {
		return &ValidationError{Field: "Alphabet", Reason: "cannot be nil"}
	}
	if om.M < 1 {
		return &ValidationError{Field: "M", Reason: "must be positive"}
	}
	if om.Q != NQ(om.M) {
		return &ValidationError{Field: "Q", Reason: fmt.Sprintf("is %d, want %d for M=%d", om.Q, NQ(om.M), om.M)}
	}
	if len(om.RM) != om.Alphabet.Kp() {
		return &ValidationError{Field: "RM", Reason: fmt.Sprintf("has %d residues, want %d", len(om.RM), om.Alphabet.Kp())}
	}
	for x, row := range om.RM {
		if len(row) != om.Q {
			return &ValidationError{Field: "RM", Reason: fmt.Sprintf("residue %d has %d vectors, want %d", x, len(row), om.Q)}
		}
		for q := range row {
			for z := 0; z < lanes.Width; z++ {
				if z*om.Q+q+1 > om.M && row[q][z] != paddingCost {
					return &ValidationError{Field: "RM", Reason: fmt.Sprintf("padding lane %d of vector %d is not %d", z, q, paddingCost)}
				}
			}
		}
	}
	if !(om.Scale > 0) {
		return &ValidationError{Field: "Scale", Reason: "must be positive"}
	}
	if om.Base < om.TJB {
		return &ValidationError{Field: "Base", Reason: "must be at least TJB"}
	}
	return nil
}

// unbiasedByteify quantizes a non-positive nat score into a cost.
func (om *Optimized) unbiasedByteify(sc float32) uint8 {
	return clampByte(-math.Round(float64(om.Scale) * float64(sc)))
}

// biasedByteify quantizes an emission score into a cost offset by Bias, so
// the best possible emission costs zero.
func (om *Optimized) biasedByteify(sc float32) uint8 {
	if math.IsInf(float64(sc), -1) {
		return lanes.Ceiling
	}
	return clampByte(float64(om.Bias) - math.Round(float64(om.Scale)*float64(sc)))
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= lanes.Ceiling:
		return lanes.Ceiling
	default:
		return uint8(v)
	}
}

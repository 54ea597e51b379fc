// Package profile holds the query models consumed by the MSP filter: the
// full-precision generic profile and its striped, quantized counterpart.
package profile

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Mode selects the alignment topology a profile is configured for.
type Mode int

const (
	// ModeLocal is multihit local alignment.
	ModeLocal Mode = iota
	// ModeUnilocal is unihit local alignment.
	ModeUnilocal
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeUnilocal:
		return "unilocal"
	default:
		return "unknown"
	}
}

// ParseMode parses the name produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "local", "multihit":
		return ModeLocal, nil
	case "unilocal", "unihit":
		return ModeUnilocal, nil
	default:
		return 0, fmt.Errorf("unknown mode: %q", s)
	}
}

// DefaultCorrection is the nat correction for the N, C and J loop
// contributions the filter leaves out, roughly L log(L/(L+3)) for multihit
// and L log(L/(L+2)) for unihit.
func (m Mode) DefaultCorrection() float32 {
	if m == ModeUnilocal {
		return 2.0
	}
	return 3.0
}

// DefaultLength is the target length a profile is configured for when none
// is given.
const DefaultLength = 400

// Profile is a full-precision profile: match emission log-odds scores in
// nats for model positions 1..M.
type Profile struct {
	Name     string
	M        int
	Alphabet *Alphabet
	// MSC[k-1][x] is the match score of residue x at model position k.
	MSC  [][]float32
	Mode Mode
	// L is the expected target length used for the length-dependent
	// transitions.
	L int
}

// New creates a profile of length m with all match scores zero.
func New(name string, abc *Alphabet, m int) *Profile {
	msc := make([][]float32, m)
	for k := range msc {
		msc[k] = make([]float32, abc.K())
	}
	return &Profile{
		Name:     name,
		M:        m,
		Alphabet: abc,
		MSC:      msc,
		Mode:     ModeLocal,
		L:        DefaultLength,
	}
}

// Validate checks that the profile tables are consistent.
func (p *Profile) Validate() error {
	if p.Alphabet == nil {
		return &ValidationError{Field: "Alphabet", Reason: "cannot be nil"}
	}
	if p.M < 1 {
		return &ValidationError{Field: "M", Reason: "must be positive"}
	}
	if len(p.MSC) != p.M {
		return &ValidationError{Field: "MSC", Reason: fmt.Sprintf("has %d rows, want %d", len(p.MSC), p.M)}
	}
	for k, row := range p.MSC {
		if len(row) != p.Alphabet.K() {
			return &ValidationError{Field: "MSC", Reason: fmt.Sprintf("row %d has %d scores, want %d", k+1, len(row), p.Alphabet.K())}
		}
		for _, sc := range row {
			if math.IsNaN(float64(sc)) || math.IsInf(float64(sc), 1) {
				return &ValidationError{Field: "MSC", Reason: fmt.Sprintf("row %d has a non-finite score", k+1)}
			}
		}
	}
	if p.L < 1 {
		return &ValidationError{Field: "L", Reason: "must be positive"}
	}
	return nil
}

// MaxScore returns the largest match emission score in the profile.
func (p *Profile) MaxScore() float32 {
	best := float32(math.Inf(-1))
	for _, row := range p.MSC {
		for _, sc := range row {
			if sc > best {
				best = sc
			}
		}
	}
	return best
}

// Match returns the match score of residue code x at model position k
// (1..M). A degenerate code scores as the mean over the residues it stands
// for, the expected score under a uniform background; a non-residue scores
// -Inf.
func (p *Profile) Match(k int, x byte) float32 {
	row := p.MSC[k-1]
	if p.Alphabet.IsCanonical(x) {
		return row[x]
	}
	set := p.Alphabet.Members(x)
	if len(set) == 0 {
		return float32(math.Inf(-1))
	}
	var sum float64
	for _, y := range set {
		sum += float64(row[y])
	}
	return float32(sum / float64(len(set)))
}

// Transitions are the state transition scores in nats for the gapless
// filter topology S->N->B->Mk->E->{C,J}, J->B, C->T.
type Transitions struct {
	BM   float32 // B->Mk, uniform over entry positions
	EC   float32 // E->C
	EJ   float32 // E->J, -Inf in unihit mode
	NB   float32 // N->B, J->B and C->T
	Loop float32 // N->N, C->C and J->J
}

// Transitions returns the scores implied by the profile's mode and L.
func (p *Profile) Transitions() Transitions {
	m := float64(p.M)
	l := float64(p.L)
	t := Transitions{BM: float32(math.Log(2.0 / (m * (m + 1))))}
	switch p.Mode {
	case ModeUnilocal:
		t.EC = 0
		t.EJ = float32(math.Inf(-1))
		t.NB = float32(math.Log(2.0 / (l + 2)))
		t.Loop = float32(math.Log(l / (l + 2)))
	default:
		t.EC = float32(math.Log(0.5))
		t.EJ = float32(math.Log(0.5))
		t.NB = float32(math.Log(3.0 / (l + 3)))
		t.Loop = float32(math.Log(l / (l + 3)))
	}
	return t
}

// Sample creates a random profile of length m configured for target
// length l. Emission probabilities are normalized uniform draws scored
// against a uniform background.
func Sample(rng *rand.Rand, abc *Alphabet, m, l int) *Profile {
	p := New(fmt.Sprintf("sample-%d", m), abc, m)
	p.L = l
	k := abc.K()
	probs := make([]float64, k)
	for pos := 0; pos < m; pos++ {
		var total float64
		for x := range probs {
			probs[x] = rng.Float64() + 1e-3
			total += probs[x]
		}
		for x := range probs {
			p.MSC[pos][x] = float32(math.Log(probs[x] / total * float64(k)))
		}
	}
	return p
}

// RandomSequence samples an i.i.d. uniform digital sequence of length l.
func RandomSequence(rng *rand.Rand, abc *Alphabet, l int) []byte {
	dsq := make([]byte, l)
	k := abc.K()
	for i := range dsq {
		dsq[i] = byte(rng.Intn(k))
	}
	return dsq
}

// ValidationError reports an inconsistent profile field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

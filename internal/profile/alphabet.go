package profile

import (
	"fmt"
	"strings"
)

// Alphabet maps residue symbols to digital codes. Codes 0..K-1 are the
// canonical residues that index emission tables; codes K..Kp-1 are
// degenerate symbols that stand for a set of canonical residues, or for no
// residue at all.
type Alphabet struct {
	Name    string
	Symbols string
	k       int
	// members[x-k] lists the canonical codes degenerate code x stands for.
	members [][]byte
	index   [256]int16
}

// DNA is the four-letter nucleotide alphabet plus the IUPAC degeneracy codes
// and '*'.
var DNA = NewAlphabet("dna", "ACGT").
	WithDegenerate('R', "AG").
	WithDegenerate('Y', "CT").
	WithDegenerate('M', "AC").
	WithDegenerate('K', "GT").
	WithDegenerate('S', "CG").
	WithDegenerate('W', "AT").
	WithDegenerate('H', "ACT").
	WithDegenerate('B', "CGT").
	WithDegenerate('V', "ACG").
	WithDegenerate('D', "AGT").
	WithDegenerate('N', "ACGT").
	WithDegenerate('*', "")

// Amino is the twenty canonical amino acids plus the ambiguity codes
// B, J, Z and X, the rare residues U and O, and '*'.
var Amino = NewAlphabet("amino", "ACDEFGHIKLMNPQRSTVWY").
	WithDegenerate('B', "ND").
	WithDegenerate('J', "IL").
	WithDegenerate('Z', "QE").
	WithDegenerate('O', "K").
	WithDegenerate('U', "C").
	WithDegenerate('X', "ACDEFGHIKLMNPQRSTVWY").
	WithDegenerate('*', "")

// NewAlphabet builds an alphabet over the given canonical symbols. Lookups
// are case-insensitive.
func NewAlphabet(name, symbols string) *Alphabet {
	a := &Alphabet{Name: name, Symbols: strings.ToUpper(symbols), k: len(symbols)}
	for i := range a.index {
		a.index[i] = -1
	}
	for code := 0; code < len(a.Symbols); code++ {
		a.setIndex(a.Symbols[code], code)
	}
	return a
}

// WithDegenerate appends a degenerate symbol standing for the given
// canonical residues. An empty set marks a non-residue such as a stop, which
// scores as the worst possible emission.
func (a *Alphabet) WithDegenerate(sym byte, canonical string) *Alphabet {
	set := make([]byte, 0, len(canonical))
	for i := 0; i < len(canonical); i++ {
		code := a.index[canonical[i]]
		if code < 0 || int(code) >= a.k {
			panic(fmt.Sprintf("profile: %q is not a canonical %s residue", canonical[i], a.Name))
		}
		set = append(set, byte(code))
	}
	code := len(a.Symbols)
	a.Symbols += strings.ToUpper(string(sym))
	a.members = append(a.members, set)
	a.setIndex(a.Symbols[code], code)
	return a
}

func (a *Alphabet) setIndex(c byte, code int) {
	a.index[c] = int16(code)
	a.index[strings.ToLower(string(c))[0]] = int16(code)
}

// AlphabetByName returns one of the built-in alphabets.
func AlphabetByName(name string) (*Alphabet, error) {
	switch strings.ToLower(name) {
	case "dna", "nucleotide":
		return DNA, nil
	case "amino", "protein":
		return Amino, nil
	default:
		return nil, fmt.Errorf("unknown alphabet: %q", name)
	}
}

// K returns the number of canonical residues.
func (a *Alphabet) K() int {
	return a.k
}

// Kp returns the number of digital codes, canonical and degenerate.
func (a *Alphabet) Kp() int {
	return len(a.Symbols)
}

// IsCanonical reports whether code x is a canonical residue.
func (a *Alphabet) IsCanonical(x byte) bool {
	return int(x) < a.k
}

// Members returns the canonical codes that code x stands for. A canonical
// code stands for itself; a non-residue stands for nothing.
func (a *Alphabet) Members(x byte) []byte {
	if int(x) < a.k {
		return []byte{x}
	}
	return a.members[int(x)-a.k]
}

// Code returns the digital code of symbol c, or -1 if c is not in the
// alphabet.
func (a *Alphabet) Code(c byte) int {
	return int(a.index[c])
}

// Digitize converts a text sequence into residue codes.
func (a *Alphabet) Digitize(seq string) ([]byte, error) {
	dsq := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		code := a.index[seq[i]]
		if code < 0 {
			return nil, fmt.Errorf("invalid %s residue %q at position %d", a.Name, seq[i], i+1)
		}
		dsq[i] = byte(code)
	}
	return dsq, nil
}

// Textize converts residue codes back into symbols.
func (a *Alphabet) Textize(dsq []byte) string {
	var b strings.Builder
	b.Grow(len(dsq))
	for _, x := range dsq {
		b.WriteByte(a.Symbols[x])
	}
	return b.String()
}

// Package msp computes the MSP filter score: a striped, saturating 8-bit
// approximation of the best gapless local multihit alignment score of an
// optimized profile against a digital sequence.
//
// The recurrence keeps one row of match-state values and three running
// specials (xB, xE, xC). It runs in an offset unsigned byte domain where 0 is
// -infinity; an explicit range check per residue reports StatusRangeExceeded
// before any value could saturate at the ceiling. Callers re-score
// range-exceeded inputs with an exact method.
//
// Two backends implement the same recurrence:
//   - msp_scalar.go: per-lane operations on lanes.U8x16
//   - msp_swar.go:   the 16 lanes packed into two uint64 words
//
// Both produce bit-identical results. The active backend is chosen once at
// init.
package msp

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/cwbudde/mspfilter/internal/lanes"
	"github.com/cwbudde/mspfilter/internal/profile"
)

// Status is the outcome of a successful filter call.
type Status int

const (
	StatusOK            Status = iota // Score is valid
	StatusRangeExceeded               // score is too high for 8 bits; re-score exactly
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRangeExceeded:
		return "range_exceeded"
	default:
		return "unknown"
	}
}

// ErrInvalidArgument marks caller errors detected before any computation.
var ErrInvalidArgument = errors.New("invalid argument")

// RowTooSmallError reports a scratch row with fewer vectors than the profile
// needs.
type RowTooSmallError struct {
	Need int
	Have int
}

func (e *RowTooSmallError) Error() string {
	return fmt.Sprintf("scratch row too small: need %d vectors, have %d", e.Need, e.Have)
}

// Is reports whether target is ErrInvalidArgument.
func (e *RowTooSmallError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Result is the outcome of one filter call.
type Result struct {
	Status Status
	// Score is the corrected nat score, +Inf when the range was exceeded.
	Score float32
	// Raw is the nat score before the loop-state correction is subtracted.
	Raw float32
	// Residue is the 1-based residue at which the range check fired, 0 when
	// Status is StatusOK.
	Residue int
}

// Overflowed reports whether the filter range was exceeded.
func (r Result) Overflowed() bool {
	return r.Status == StatusRangeExceeded
}

// Row is a reusable scratch row for the recurrence. A Row must be used by
// one call at a time; concurrent callers each need their own.
type Row struct {
	dp    []lanes.U8x16
	words []lanes.Words
}

// NewRow allocates a scratch row large enough for models up to length maxM.
func NewRow(maxM int) *Row {
	q := profile.NQ(maxM)
	return &Row{
		dp:    make([]lanes.U8x16, q),
		words: make([]lanes.Words, q),
	}
}

// Capacity returns the number of vectors the row holds.
func (r *Row) Capacity() int {
	if r == nil {
		return 0
	}
	return len(r.dp)
}

// MaxM returns the longest model the row can serve.
func (r *Row) MaxM() int {
	return r.Capacity() * lanes.Width
}

// Grow reallocates the row if it cannot serve a model of length m.
func (r *Row) Grow(m int) {
	q := profile.NQ(m)
	if q <= len(r.dp) {
		return
	}
	r.dp = make([]lanes.U8x16, q)
	r.words = make([]lanes.Words, q)
}

// Backend identifies a recurrence implementation.
type Backend int

const (
	BackendScalar Backend = iota // per-lane U8x16 operations
	BackendSWAR                  // packed uint64 lane arithmetic
)

func (b Backend) String() string {
	switch b {
	case BackendScalar:
		return "scalar"
	case BackendSWAR:
		return "swar"
	default:
		return "unknown"
	}
}

// ParseBackend maps a backend name to its identifier.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "scalar", "generic":
		return BackendScalar, nil
	case "swar", "packed":
		return BackendSWAR, nil
	default:
		return 0, fmt.Errorf("unknown backend: %q", name)
	}
}

// Backends lists all implementations.
func Backends() []Backend {
	return []Backend{BackendScalar, BackendSWAR}
}

// DisableEnv forces the scalar backend when set to a true value.
const DisableEnv = "MSPFILTER_NO_SIMD"

// ActiveBackend reports which backend was selected at initialization.
var ActiveBackend Backend

// kernel is the runtime-dispatched recurrence. Set by init().
var kernel func(dsq []byte, om *profile.Optimized, row *Row) (xC uint8, overflowAt int)

func init() {
	disabled, _ := strconv.ParseBool(os.Getenv(DisableEnv))
	switch {
	case disabled:
		ActiveBackend = BackendScalar
		slog.Debug("MSP kernel initialized", "backend", "scalar", "reason", DisableEnv)
	case strconv.IntSize == 64:
		ActiveBackend = BackendSWAR
		slog.Debug("MSP kernel initialized", "backend", "swar", "width", "2x64-bit",
			"avx2", cpu.X86.HasAVX2, "sse41", cpu.X86.HasSSE41, "asimd", cpu.ARM64.HasASIMD)
	default:
		ActiveBackend = BackendScalar
		slog.Debug("MSP kernel initialized", "backend", "scalar", "reason", "32-bit target")
	}
	kernel = kernelFor(ActiveBackend)
}

func kernelFor(b Backend) func([]byte, *profile.Optimized, *Row) (uint8, int) {
	if b == BackendSWAR {
		return mspSWAR
	}
	return mspScalar
}

// Filter scores dsq against om using the active backend. The returned error
// is non-nil only for invalid arguments; a range-exceeded score is reported
// through Result.Status. Residue codes must be valid for om.Alphabet.
func Filter(dsq []byte, om *profile.Optimized, row *Row) (Result, error) {
	return run(kernel, dsq, om, row)
}

// FilterWith scores dsq against om with a specific backend. Residue codes
// must be below len(om.RM).
func FilterWith(b Backend, dsq []byte, om *profile.Optimized, row *Row) (Result, error) {
	return run(kernelFor(b), dsq, om, row)
}

func run(k func([]byte, *profile.Optimized, *Row) (uint8, int), dsq []byte, om *profile.Optimized, row *Row) (Result, error) {
	if om == nil {
		return Result{}, fmt.Errorf("%w: nil profile", ErrInvalidArgument)
	}
	if om.Q < 1 || len(om.RM) == 0 {
		return Result{}, fmt.Errorf("%w: empty profile", ErrInvalidArgument)
	}
	for x, rsc := range om.RM {
		if len(rsc) < om.Q {
			return Result{}, fmt.Errorf("%w: residue %d has %d vectors, want %d", ErrInvalidArgument, x, len(rsc), om.Q)
		}
	}
	if row == nil || row.Capacity() < om.Q {
		return Result{}, &RowTooSmallError{Need: om.Q, Have: row.Capacity()}
	}

	xC, at := k(dsq, om, row)
	if at > 0 {
		inf := float32(math.Inf(1))
		return Result{Status: StatusRangeExceeded, Score: inf, Raw: inf, Residue: at}, nil
	}
	raw := Finalize(xC, om)
	return Result{Status: StatusOK, Score: raw - om.NNCorrection, Raw: raw}, nil
}

// Finalize converts the final accumulator xC to an uncorrected nat score.
func Finalize(xC uint8, om *profile.Optimized) float32 {
	return (float32(int(xC)-int(om.TJB)) - float32(om.Base)) / om.Scale
}

// Threshold returns the xE value at which the range check fires.
func Threshold(om *profile.Optimized) uint8 {
	return lanes.Ceiling - om.Bias
}

// Package calibrate fits the filter's loop-state correction constant
// against full-precision GMSP scores.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/mspfilter/internal/msp"
	"github.com/cwbudde/mspfilter/internal/opt"
	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/reference"
)

// Search range for the correction in nats.
const (
	MinCorrection = -10.0
	MaxCorrection = 20.0
)

// ErrNoData is returned when no sequence stayed within the filter range.
var ErrNoData = errors.New("no usable sequences")

// Result is a fitted correction.
type Result struct {
	Correction float32 `json:"correction"`
	// RMSE is the root mean squared error of the corrected filter scores
	// against GMSP over the used sequences.
	RMSE    float64 `json:"rmse"`
	Used    int     `json:"used"`
	Skipped int     `json:"skipped"`
}

type pair struct {
	raw, exact float64
}

// Correction fits the constant c minimizing the mean squared difference
// between the uncorrected filter score minus c and GMSP over seqs. Each
// sequence is scored with the profiles configured to its own length;
// sequences that exceed the filter range or score -Inf are skipped. The
// profiles are not modified.
func Correction(ctx context.Context, om *profile.Optimized, gm *profile.Profile, seqs [][]byte, optimizer opt.Optimizer) (*Result, error) {
	if om == nil || gm == nil {
		return nil, fmt.Errorf("failed to calibrate: %w", msp.ErrInvalidArgument)
	}
	if om.M != gm.M {
		return nil, fmt.Errorf("failed to calibrate: profile lengths differ (%d vs %d)", om.M, gm.M)
	}

	row := msp.NewRow(om.M)
	local := *om
	generic := *gm
	pairs := make([]pair, 0, len(seqs))
	skipped := 0

	for _, dsq := range seqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(dsq) == 0 {
			skipped++
			continue
		}
		local.ReconfigLength(len(dsq))
		generic.L = len(dsq)

		res, err := msp.Filter(dsq, &local, row)
		if err != nil {
			return nil, fmt.Errorf("failed to calibrate: %w", err)
		}
		exact := reference.GMSP(dsq, &generic)
		if res.Overflowed() || math.IsInf(float64(exact), 0) {
			skipped++
			continue
		}
		pairs = append(pairs, pair{raw: float64(res.Raw), exact: float64(exact)})
	}
	if len(pairs) == 0 {
		return nil, ErrNoData
	}

	mse := func(x []float64) float64 {
		var sum float64
		for _, p := range pairs {
			d := p.raw - x[0] - p.exact
			sum += d * d
		}
		return sum / float64(len(pairs))
	}

	best, cost, err := optimizer.Run(mse, []float64{MinCorrection}, []float64{MaxCorrection}, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to calibrate: %w", err)
	}

	res := &Result{
		Correction: float32(best[0]),
		RMSE:       math.Sqrt(cost),
		Used:       len(pairs),
		Skipped:    skipped,
	}
	slog.Debug("Correction fitted", "correction", res.Correction, "rmse", res.RMSE,
		"used", res.Used, "skipped", res.Skipped)
	return res, nil
}

// Optimal returns the closed-form least-squares correction, the mean of
// raw minus exact, for comparison with the optimizer's result.
func Optimal(raw, exact []float64) float64 {
	if len(raw) == 0 || len(raw) != len(exact) {
		return math.NaN()
	}
	var sum float64
	for i := range raw {
		sum += raw[i] - exact[i]
	}
	return sum / float64(len(raw))
}

// Package reference holds the slow, straightforward scoring algorithms the
// MSP filter is checked against and falls back to:
//   - GMSP:    full-precision float DP on the generic profile
//   - Emulate: unstriped byte DP on the optimized profile, bit-exact with the filter
//   - SameMSP: float DP on the optimized profile's quantized scores
package reference

import (
	"math"

	"github.com/cwbudde/mspfilter/internal/lanes"
	"github.com/cwbudde/mspfilter/internal/profile"
)

var negInf = float32(math.Inf(-1))

// GMSP computes the best gapless local alignment score of dsq against gm in
// nats, including the N, C and J loop transitions the filter approximates
// with a constant. In ModeLocal segments may repeat through J; in
// ModeUnilocal only one segment is scored.
func GMSP(dsq []byte, gm *profile.Profile) float32 {
	t := gm.Transitions()
	dp := make([]float32, gm.M+1)
	for k := range dp {
		dp[k] = negInf
	}

	var xN float32
	xB := t.NB
	xJ, xC := negInf, negInf

	for _, x := range dsq {
		mpv := negInf // dp[0]
		xE := negInf
		bm := xB + t.BM
		for k := 1; k <= gm.M; k++ {
			sc := max(mpv, bm) + gm.Match(k, x)
			xE = max(xE, sc)
			mpv = dp[k]
			dp[k] = sc
		}

		xJ = max(xJ+t.Loop, xE+t.EJ)
		xC = max(xC+t.Loop, xE+t.EC)
		xN += t.Loop
		xB = max(xN, xJ) + t.NB
	}
	return xC + t.NB
}

// Emulate runs the filter recurrence position by position instead of
// striped, with the same saturating byte arithmetic, range check and
// finalization. It returns the corrected score and 0, or +Inf and the
// 1-based residue at which the range check fired.
func Emulate(dsq []byte, om *profile.Optimized) (score float32, overflowAt int) {
	dp := make([]uint8, om.M+1)
	limit := lanes.Ceiling - om.Bias
	xB := lanes.SatSub(om.Base, om.TJB)
	var xC uint8

	for i, x := range dsq {
		var mpv, xE uint8
		bm := lanes.SatSub(xB, om.TBM)
		for k := 1; k <= om.M; k++ {
			sv := lanes.SatSub(lanes.SatAdd(max(mpv, bm), om.Bias), om.Cost(x, k))
			xE = max(xE, sv)
			mpv = dp[k]
			dp[k] = sv
		}

		if xE >= limit {
			return float32(math.Inf(1)), i + 1
		}
		xC = max(xC, lanes.SatSub(xE, om.TEC))
		xB = lanes.SatSub(max(om.Base, xC), om.TJB)
	}

	raw := (float32(int(xC)-int(om.TJB)) - float32(om.Base)) / om.Scale
	return raw - om.NNCorrection, 0
}

// SameMSP computes the score the filter approximates, in float nats, from
// the optimized profile's quantized emission and transition scores. It
// models the filter's zero sentinel as a floor at -Base/Scale and leaves out
// the N, C and J loop costs, so it agrees with the filter up to float
// rounding whenever the filter does not exceed its range.
func SameMSP(dsq []byte, om *profile.Optimized) float32 {
	scale := om.Scale
	floor := -float32(om.Base) / scale
	tbm := -float32(om.TBM) / scale
	tec := -float32(om.TEC) / scale
	tjb := -float32(om.TJB) / scale

	dp := make([]float32, om.M+1)
	for k := range dp {
		dp[k] = floor
	}
	xB := max(floor, tjb)
	xC := floor

	for _, x := range dsq {
		mpv := floor
		xE := floor
		bm := max(floor, xB+tbm)
		for k := 1; k <= om.M; k++ {
			sc := max(floor, max(mpv, bm)+om.Score(om.Cost(x, k)))
			xE = max(xE, sc)
			mpv = dp[k]
			dp[k] = sc
		}
		xC = max(xC, max(floor, xE+tec))
		xB = max(floor, max(0, xC)+tjb)
	}
	return xC + tjb - om.NNCorrection
}

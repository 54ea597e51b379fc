package msp

import (
	"github.com/cwbudde/mspfilter/internal/lanes"
	"github.com/cwbudde/mspfilter/internal/profile"
)

// mspScalar runs the recurrence with per-lane U8x16 operations. It is the
// reference for the packed backend and the fallback on 32-bit targets.
//
// Returns the final xC, or the 1-based residue at which xE reached the range
// threshold (xC is then meaningless).
func mspScalar(dsq []byte, om *profile.Optimized, row *Row) (uint8, int) {
	nq := om.Q
	dp := row.dp[:nq]
	for q := range dp {
		dp[q] = lanes.U8x16{}
	}

	biasv := lanes.Splat(om.Bias)
	limit := Threshold(om)
	xB := lanes.SatSub(om.Base, om.TJB)
	var xC uint8

	for i, x := range dsq {
		rsc := om.RM[x]
		xBv := lanes.Splat(lanes.SatSub(xB, om.TBM))

		// Lane z of the last vector precedes lane z+1 of the first.
		mpv := dp[nq-1].ShiftUp()
		var xEv lanes.U8x16
		for q := 0; q < nq; q++ {
			sv := mpv.Max(xBv).AddSat(biasv).SubSat(rsc[q])
			xEv = xEv.Max(sv)
			mpv = dp[q]
			dp[q] = sv
		}

		xE := xEv.ReduceMax()
		if xE >= limit {
			return 0, i + 1
		}

		if e := lanes.SatSub(xE, om.TEC); e > xC {
			xC = e
		}
		xB = lanes.SatSub(max(om.Base, xC), om.TJB)
	}
	return xC, 0
}

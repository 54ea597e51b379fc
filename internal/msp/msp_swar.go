package msp

import (
	"github.com/cwbudde/mspfilter/internal/lanes"
	"github.com/cwbudde/mspfilter/internal/profile"
)

// mspSWAR runs the recurrence on packed words: each 16-lane vector is two
// uint64 values and every lane operation is a handful of word operations
// with no per-lane branches. Emission vectors are packed as they are read.
func mspSWAR(dsq []byte, om *profile.Optimized, row *Row) (uint8, int) {
	nq := om.Q
	dp := row.words[:nq]
	for q := range dp {
		dp[q] = lanes.Words{}
	}

	biasv := lanes.SplatWords(om.Bias)
	limit := Threshold(om)
	xB := lanes.SatSub(om.Base, om.TJB)
	var xC uint8

	for i, x := range dsq {
		rsc := om.RM[x]
		xBv := lanes.SplatWords(lanes.SatSub(xB, om.TBM))

		mpv := lanes.ShiftUpSWAR(dp[nq-1])
		var xEv lanes.Words
		for q := 0; q < nq; q++ {
			sv := lanes.MaxSWAR(mpv, xBv)
			sv = lanes.AddSatSWAR(sv, biasv)
			sv = lanes.SubSatSWAR(sv, lanes.Pack(rsc[q]))
			xEv = lanes.MaxSWAR(xEv, sv)
			mpv = dp[q]
			dp[q] = sv
		}

		xE := lanes.ReduceMaxSWAR(xEv)
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

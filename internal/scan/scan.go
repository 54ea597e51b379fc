// Package scan runs the MSP filter over a sequence database with a worker
// pool, re-scoring range-exceeded targets with the full-precision GMSP.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/mspfilter/internal/msp"
	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/reference"
	"github.com/cwbudde/mspfilter/internal/seqio"
)

// Hit is the filter result for one target.
type Hit struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Length int     `json:"length"`
	Score  float32 `json:"score"`
	// Raw is the uncorrected filter score; zero when Fallback is set.
	Raw float32 `json:"raw,omitempty"`
	// Fallback is set when the filter range was exceeded and Score came
	// from the full-precision reference.
	Fallback bool `json:"fallback,omitempty"`
	// Residue is where the filter's range check fired.
	Residue int  `json:"residue,omitempty"`
	Pass    bool `json:"pass"`
}

// Report summarizes a scan. Hits are in input order.
type Report struct {
	Profile    string        `json:"profile"`
	Backend    string        `json:"backend"`
	Threshold  float32       `json:"threshold"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Overflowed int           `json:"overflowed"`
	Elapsed    time.Duration `json:"elapsed"`
	Hits       []Hit         `json:"hits"`
}

// Validate checks that the summary counts agree with the hits.
func (r *Report) Validate() error {
	if r.Total != len(r.Hits) {
		return fmt.Errorf("invalid report: total %d but %d hits", r.Total, len(r.Hits))
	}
	var passed, overflowed int
	for i, h := range r.Hits {
		if h.Index != i {
			return fmt.Errorf("invalid report: hit %d has index %d", i, h.Index)
		}
		if h.Pass {
			passed++
		}
		if h.Fallback {
			overflowed++
		}
	}
	if passed != r.Passed || overflowed != r.Overflowed {
		return fmt.Errorf("invalid report: counts passed=%d overflowed=%d, hits say %d and %d",
			r.Passed, r.Overflowed, passed, overflowed)
	}
	return nil
}

// ProgressFunc receives the number of finished targets. Calls are
// serialized.
type ProgressFunc func(done, total int)

// ErrNoProfile is returned when the scanner has no optimized profile.
var ErrNoProfile = errors.New("scanner has no profile")

// Scanner scores targets against one profile.
type Scanner struct {
	Profile *profile.Optimized
	// Generic is the full-precision profile used to re-score range-exceeded
	// targets. Without it such targets score math.MaxFloat32 and always
	// pass.
	Generic *profile.Profile
	// Workers defaults to GOMAXPROCS.
	Workers   int
	Threshold float32
	// FixedLength keeps the profile's configured target length instead of
	// reconfiguring it to each target.
	FixedLength bool
	// OnHit, if set, receives each hit as it is scored. Calls are
	// serialized but not in input order.
	OnHit func(Hit) error
}

// Scan scores all records. It stops at the first digitization or callback
// error, or when ctx is cancelled; cancellation is observed between targets.
func (s *Scanner) Scan(ctx context.Context, records []seqio.Record, progress ProgressFunc) (*Report, error) {
	if s.Profile == nil {
		return nil, ErrNoProfile
	}
	workers := s.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, max(len(records), 1))

	start := time.Now()
	hits := make([]Hit, len(records))
	total := len(records)

	var mu sync.Mutex
	done := 0
	finish := func(h Hit) error {
		mu.Lock()
		defer mu.Unlock()
		if s.OnHit != nil {
			if err := s.OnHit(h); err != nil {
				return fmt.Errorf("hit callback failed: %w", err)
			}
		}
		done++
		if progress != nil {
			progress(done, total)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range records {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			row := msp.NewRow(s.Profile.M)
			om := *s.Profile
			var gm profile.Profile
			if s.Generic != nil {
				gm = *s.Generic
			}
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				h, err := s.score(i, records[i], &om, &gm, row)
				if err != nil {
					return err
				}
				hits[i] = h
				if err := finish(h); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		Profile:   s.profileName(),
		Backend:   msp.ActiveBackend.String(),
		Threshold: s.Threshold,
		Total:     total,
		Elapsed:   time.Since(start),
		Hits:      hits,
	}
	for _, h := range hits {
		if h.Pass {
			rep.Passed++
		}
		if h.Fallback {
			rep.Overflowed++
		}
	}
	slog.Debug("Scan finished", "targets", total, "passed", rep.Passed,
		"overflowed", rep.Overflowed, "workers", workers, "elapsed", rep.Elapsed)
	return rep, nil
}

// score filters one record. om and gm are worker-local copies whose length
// parameters may be reconfigured; their tables are shared.
func (s *Scanner) score(i int, rec seqio.Record, om *profile.Optimized, gm *profile.Profile, row *msp.Row) (Hit, error) {
	dsq, err := om.Alphabet.Digitize(rec.Seq)
	if err != nil {
		return Hit{}, fmt.Errorf("target %q: %w", rec.Name, err)
	}
	if !s.FixedLength {
		// Empty targets score at the configured length.
		if len(dsq) > 0 {
			om.ReconfigLength(len(dsq))
			gm.L = len(dsq)
		} else {
			om.ReconfigLength(s.Profile.L)
			if s.Generic != nil {
				gm.L = s.Generic.L
			}
		}
	}

	res, err := msp.Filter(dsq, om, row)
	if err != nil {
		return Hit{}, fmt.Errorf("target %q: %w", rec.Name, err)
	}

	h := Hit{Index: i, Name: rec.Name, Length: len(dsq), Score: res.Score, Raw: res.Raw}
	if res.Overflowed() {
		h.Raw = 0
		h.Residue = res.Residue
		h.Fallback = true
		if s.Generic != nil {
			h.Score = reference.GMSP(dsq, gm)
		} else {
			h.Score = float32(math.MaxFloat32)
		}
		slog.Debug("Filter range exceeded, re-scored", "target", rec.Name, "residue", res.Residue, "score", h.Score)
	}
	h.Pass = h.Score >= s.Threshold
	return h, nil
}

func (s *Scanner) profileName() string {
	if s.Generic != nil {
		return s.Generic.Name
	}
	return ""
}

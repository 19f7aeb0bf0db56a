package lca

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MinClusters is the default lower bound for candidate counts.
	MinClusters = 2
	// MaxClusters is the default upper bound for candidate counts.
	MaxClusters = 10

	// tieTolerance is the relative BIC difference below which two
	// candidates count as tied.
	tieTolerance = 1e-9
)

// Bounds limits the cluster counts a Selector accepts.
type Bounds struct {
	Lower int
	Upper int
}

// DefaultBounds returns the 2..10 range.
func DefaultBounds() Bounds {
	return Bounds{Lower: MinClusters, Upper: MaxClusters}
}

// ValidateRange checks lower <= min <= max <= upper.
func ValidateRange(min, max int, b Bounds) error {
	if min < b.Lower || max > b.Upper || min > max {
		return &RangeError{Min: min, Max: max, Bounds: b}
	}
	return nil
}

// Candidate is the outcome of fitting one cluster count.
type Candidate struct {
	Clusters      int
	BIC           float64
	LogLikelihood float64
	Params        int
	Iterations    int
	Converged     bool
	Duration      time.Duration
}

// Selection is the outcome of a sweep. Candidates are ordered by
// ascending cluster count.
type Selection struct {
	Best       int
	Candidates []Candidate
}

// BestCandidate returns the candidate for the selected count.
func (s *Selection) BestCandidate() Candidate {
	for _, c := range s.Candidates {
		if c.Clusters == s.Best {
			return c
		}
	}
	return Candidate{}
}

// Selector sweeps a range of cluster counts and keeps the one with the
// lowest BIC.
type Selector struct {
	Bounds Bounds
	Fit    FitConfig
	// Workers caps concurrent fits; zero means one per candidate.
	Workers int
	// OnCandidate, when set, is called from worker goroutines as each
	// candidate finishes.
	OnCandidate func(Candidate)

	evaluate func(ctx context.Context, x *Matrix, n int, cfg FitConfig) (Candidate, error)
}

// NewSelector returns a Selector with default bounds.
func NewSelector(cfg FitConfig) *Selector {
	return &Selector{
		Bounds: DefaultBounds(),
		Fit:    cfg,
	}
}

// Select fits every count in [min, max] and returns the count whose model
// has the lowest BIC. Exact or near-exact ties go to the smaller count.
// A failure in any candidate aborts the whole sweep.
func (s *Selector) Select(ctx context.Context, x *Matrix, min, max int) (*Selection, error) {
	if err := ValidateRange(min, max, s.Bounds); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidMatrix)
	}

	eval := s.evaluate
	if eval == nil {
		eval = Evaluate
	}

	size := max - min + 1
	workers := s.Workers
	if workers <= 0 || workers > size {
		workers = size
	}

	candidates := make([]Candidate, size)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx := 0; idx < size; idx++ {
		idx := idx
		n := min + idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := eval(gctx, x, n, s.Fit)
			if err != nil {
				return fmt.Errorf("fitting %d clusters: %w", n, err)
			}
			candidates[idx] = c
			if s.OnCandidate != nil {
				s.OnCandidate(c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Selection{
		Best:       candidates[bestIndex(candidates)].Clusters,
		Candidates: candidates,
	}, nil
}

// Evaluate fits an n-class model and scores it.
func Evaluate(ctx context.Context, x *Matrix, n int, cfg FitConfig) (Candidate, error) {
	start := time.Now()
	model, err := Fit(ctx, x, n, cfg)
	if err != nil {
		return Candidate{}, err
	}
	bic, err := BIC(x, model)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Clusters:      n,
		BIC:           bic,
		LogLikelihood: model.LogLikelihood,
		Params:        model.NumParams(),
		Iterations:    model.Iterations,
		Converged:     model.Converged,
		Duration:      time.Since(start),
	}, nil
}

// bestIndex scans in order and only moves past the current best when a
// later score is lower by more than the tie tolerance.
func bestIndex(candidates []Candidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		cur := candidates[best].BIC
		margin := tieTolerance * math.Max(1, math.Abs(cur))
		if candidates[i].BIC < cur-margin {
			best = i
		}
	}
	return best
}

package lca

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	// DefaultSeed seeds every fit unless the caller overrides it.
	DefaultSeed = 123
	// DefaultMaxIter caps EM iterations per fit.
	DefaultMaxIter = 1000
	// DefaultTol is the convergence threshold on the change in mean
	// per-respondent log-likelihood between iterations.
	DefaultTol = 1e-10

	// probFloor keeps every category probability strictly positive so a
	// single unseen answer cannot drive a class likelihood to zero.
	probFloor = 1e-12
	// massFloor is the total responsibility below which a class counts
	// as collapsed.
	massFloor = 1e-100
)

// FitConfig controls a single EM run.
type FitConfig struct {
	Seed    uint64
	MaxIter int
	Tol     float64
}

// DefaultFitConfig returns the configuration used when none is supplied.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		Seed:    DefaultSeed,
		MaxIter: DefaultMaxIter,
		Tol:     DefaultTol,
	}
}

func (c FitConfig) withDefaults() FitConfig {
	if c.MaxIter <= 0 {
		c.MaxIter = DefaultMaxIter
	}
	if c.Tol <= 0 {
		c.Tol = DefaultTol
	}
	return c
}

// Model is a fitted latent class model.
type Model struct {
	// Weights holds the mixing proportion of each class.
	Weights []float64
	// Profiles[c][j][k] is the probability that a member of class c gives
	// the k-th code of Codes[j] to question j.
	Profiles [][][]float64
	// Codes lists, per question, the response codes the model knows.
	Codes [][]int

	LogLikelihood float64
	Iterations    int
	Converged     bool
	Seed          uint64
	Respondents   int

	cb *codebook
}

// Clusters returns the number of classes.
func (m *Model) Clusters() int {
	return len(m.Weights)
}

// NumParams returns the free-parameter count: n-1 mixing weights plus
// K_j-1 probabilities per class per question.
func (m *Model) NumParams() int {
	n := len(m.Weights)
	k := n - 1
	for _, codes := range m.Codes {
		k += n * (len(codes) - 1)
	}
	return k
}

// ExpectedCode returns the mean response code class c gives to question j.
func (m *Model) ExpectedCode(c, j int) float64 {
	var mean float64
	for k, p := range m.Profiles[c][j] {
		mean += p * float64(m.Codes[j][k])
	}
	return mean
}

// Fit estimates an n-class model for the responses in x by
// expectation-maximization. The context is checked once per iteration.
// If MaxIter is reached first the last iterate is returned with
// Converged set to false.
func Fit(ctx context.Context, x *Matrix, n int, cfg FitConfig) (*Model, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidMatrix)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one class, got %d", ErrInvalidMatrix, n)
	}
	if x.rows < n {
		return nil, fmt.Errorf("%w: %d respondents cannot support %d classes", ErrInvalidMatrix, x.rows, n)
	}
	cfg = cfg.withDefaults()

	cb := newCodebook(x)
	data, err := cb.encode(x)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Codes:       cb.codes,
		Seed:        cfg.Seed,
		Respondents: x.rows,
		cb:          cb,
	}
	initialize(model, n, cfg.Seed)

	resp := mat.NewDense(x.rows, n, nil)
	perRow := float64(x.rows)
	prev := math.Inf(-1)

	for iter := 1; iter <= cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ll := expectation(data, model, resp)
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return nil, &ConvergenceError{Clusters: n, Component: -1, Iteration: iter, Reason: "non-finite log-likelihood"}
		}
		model.LogLikelihood = ll
		model.Iterations = iter

		if iter > 1 && math.Abs(ll/perRow-prev/perRow) < cfg.Tol {
			model.Converged = true
			return model, nil
		}
		prev = ll

		if err := maximization(data, resp, model, iter); err != nil {
			return nil, err
		}
	}

	// The cap was hit right after an M-step; score the parameters being returned.
	model.LogLikelihood = expectation(data, model, resp)
	return model, nil
}

// initialize sets uniform weights and draws each class's category
// probabilities from a flat Dirichlet. Draw order is fixed so a seed
// fully determines the starting point.
func initialize(model *Model, n int, seed uint64) {
	src := rand.NewSource(seed)

	model.Weights = make([]float64, n)
	for c := range model.Weights {
		model.Weights[c] = 1 / float64(n)
	}

	model.Profiles = make([][][]float64, n)
	for c := range model.Profiles {
		model.Profiles[c] = make([][]float64, len(model.Codes))
	}
	for j, codes := range model.Codes {
		if len(codes) == 1 {
			for c := 0; c < n; c++ {
				model.Profiles[c][j] = []float64{1}
			}
			continue
		}
		alpha := make([]float64, len(codes))
		for k := range alpha {
			alpha[k] = 1
		}
		dir := distmv.NewDirichlet(alpha, src)
		for c := 0; c < n; c++ {
			model.Profiles[c][j] = dir.Rand(nil)
		}
	}
}

// logJoint fills dst[c] with log P(class c) + log P(row | class c).
func logJoint(dst []float64, row []int, logW []float64, logP [][][]float64) {
	for c := range dst {
		s := logW[c]
		for j, k := range row {
			s += logP[c][j][k]
		}
		dst[c] = s
	}
}

func logParams(model *Model) ([]float64, [][][]float64) {
	logW := make([]float64, len(model.Weights))
	for c, w := range model.Weights {
		logW[c] = math.Log(w)
	}
	logP := make([][][]float64, len(model.Profiles))
	for c, questions := range model.Profiles {
		logP[c] = make([][]float64, len(questions))
		for j, probs := range questions {
			logP[c][j] = make([]float64, len(probs))
			for k, p := range probs {
				logP[c][j][k] = math.Log(p)
			}
		}
	}
	return logW, logP
}

// expectation writes posterior class probabilities into resp and returns
// the total log-likelihood of data under model.
func expectation(data [][]int, model *Model, resp *mat.Dense) float64 {
	logW, logP := logParams(model)
	buf := make([]float64, len(model.Weights))

	var ll float64
	for i, row := range data {
		logJoint(buf, row, logW, logP)
		lse := floats.LogSumExp(buf)
		r := resp.RawRowView(i)
		for c, v := range buf {
			r[c] = math.Exp(v - lse)
		}
		ll += lse
	}
	return ll
}

// maximization re-estimates weights and profiles from resp.
func maximization(data [][]int, resp *mat.Dense, model *Model, iter int) error {
	rows, n := resp.Dims()

	mass := make([]float64, n)
	for i := 0; i < rows; i++ {
		floats.Add(mass, resp.RawRowView(i))
	}
	for c, m := range mass {
		if !(m >= massFloor) {
			return &ConvergenceError{Clusters: n, Component: c, Iteration: iter, Reason: "has zero responsibility mass"}
		}
	}

	for c := range model.Profiles {
		for j := range model.Profiles[c] {
			for k := range model.Profiles[c][j] {
				model.Profiles[c][j][k] = 0
			}
		}
	}
	for i, row := range data {
		r := resp.RawRowView(i)
		for c := 0; c < n; c++ {
			for j, k := range row {
				model.Profiles[c][j][k] += r[c]
			}
		}
	}

	total := floats.Sum(mass)
	for c := 0; c < n; c++ {
		model.Weights[c] = mass[c] / total
		for j := range model.Profiles[c] {
			probs := model.Profiles[c][j]
			floats.Scale(1/mass[c], probs)
			for k, p := range probs {
				if p < probFloor {
					probs[k] = probFloor
				}
			}
			floats.Scale(1/floats.Sum(probs), probs)
		}
	}
	return nil
}

package lca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Evaluate returns the total log-likelihood of x under the model.
func (m *Model) Evaluate(x *Matrix) (float64, error) {
	data, err := m.encode(x)
	if err != nil {
		return 0, err
	}
	resp := mat.NewDense(len(data), m.Clusters(), nil)
	return expectation(data, m, resp), nil
}

// BIC scores model against x as -2·LL + k·ln(N); lower is better.
func BIC(x *Matrix, model *Model) (float64, error) {
	ll, err := model.Evaluate(x)
	if err != nil {
		return 0, err
	}
	rows, _ := x.Dims()
	return -2*ll + float64(model.NumParams())*math.Log(float64(rows)), nil
}

// Posterior returns the per-respondent class probabilities for x as an
// N × n matrix.
func (m *Model) Posterior(x *Matrix) (*mat.Dense, error) {
	data, err := m.encode(x)
	if err != nil {
		return nil, err
	}
	resp := mat.NewDense(len(data), m.Clusters(), nil)
	expectation(data, m, resp)
	return resp, nil
}

// Predict returns the most probable class for every respondent in x.
// Ties resolve to the lowest class index.
func (m *Model) Predict(x *Matrix) ([]int, error) {
	resp, err := m.Posterior(x)
	if err != nil {
		return nil, err
	}
	rows, _ := resp.Dims()
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = floats.MaxIdx(resp.RawRowView(i))
	}
	return labels, nil
}

func (m *Model) encode(x *Matrix) ([][]int, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidMatrix)
	}
	cb := m.cb
	if cb == nil {
		cb = codebookFrom(m.Codes)
	}
	return cb.encode(x)
}

// codebookFrom rebuilds the lookup tables for a Model assembled outside Fit.
func codebookFrom(codes [][]int) *codebook {
	cb := &codebook{codes: codes, index: make([]map[int]int, len(codes))}
	for j, cats := range codes {
		cb.index[j] = make(map[int]int, len(cats))
		for k, code := range cats {
			cb.index[j][code] = k
		}
	}
	return cb
}

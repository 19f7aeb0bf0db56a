package lca

import (
	"context"
	"fmt"
)

// Assignment holds one label per respondent, in matrix row order, and the
// model that produced them.
type Assignment struct {
	Clusters int
	Labels   []int
	Model    *Model
}

// Assign refits an n-class model with cfg and labels every respondent.
// The same matrix, count and seed always reproduce the same labels.
func Assign(ctx context.Context, x *Matrix, n int, cfg FitConfig) (*Assignment, error) {
	model, err := Fit(ctx, x, n, cfg)
	if err != nil {
		return nil, fmt.Errorf("refitting %d clusters: %w", n, err)
	}
	labels, err := model.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predicting clusters: %w", err)
	}
	return &Assignment{Clusters: n, Labels: labels, Model: model}, nil
}

// Sizes returns the number of respondents in each cluster.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.Clusters)
	for _, l := range a.Labels {
		sizes[l]++
	}
	return sizes
}

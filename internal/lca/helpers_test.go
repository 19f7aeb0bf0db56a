package lca

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// surveyRows builds n respondents answering q binary questions coded 1/2.
// The first half leans towards 1, the second half towards 2, and each
// answer flips with probability noise.
func surveyRows(n, q int, noise float64, seed uint64) [][]int {
	r := rand.New(rand.NewSource(seed))
	rows := make([][]int, n)
	for i := range rows {
		lean := 1
		if i >= n/2 {
			lean = 2
		}
		row := make([]int, q)
		for j := range row {
			row[j] = lean
			if r.Float64() < noise {
				row[j] = 3 - lean
			}
		}
		rows[i] = row
	}
	return rows
}

func surveyMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := NewMatrix(surveyRows(100, 5, 0.15, 7))
	require.NoError(t, err)
	return m
}

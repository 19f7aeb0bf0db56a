package lca

import (
	"fmt"
	"sort"
)

// Matrix is an immutable respondent × question table of category codes.
// Codes are arbitrary integers; only their identity matters.
type Matrix struct {
	rows  int
	cols  int
	codes []int
}

// NewMatrix copies rows into a Matrix. Every row must have the same,
// non-zero number of answers.
func NewMatrix(rows [][]int) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no respondents", ErrInvalidMatrix)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidMatrix)
	}

	codes := make([]int, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d answers, want %d", ErrInvalidMatrix, i, len(row), cols)
		}
		codes = append(codes, row...)
	}

	return &Matrix{rows: len(rows), cols: cols, codes: codes}, nil
}

// Dims returns the number of respondents and questions.
func (m *Matrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// At returns the code respondent i gave to question j.
func (m *Matrix) At(i, j int) int {
	return m.codes[i*m.cols+j]
}

// Row returns a copy of respondent i's answers.
func (m *Matrix) Row(i int) []int {
	out := make([]int, m.cols)
	copy(out, m.codes[i*m.cols:(i+1)*m.cols])
	return out
}

// Categories returns the distinct codes observed for question j, ascending.
func (m *Matrix) Categories(j int) []int {
	seen := make(map[int]struct{})
	for i := 0; i < m.rows; i++ {
		seen[m.At(i, j)] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

// codebook maps raw codes to dense category indexes, one table per question.
type codebook struct {
	codes [][]int
	index []map[int]int
}

func newCodebook(m *Matrix) *codebook {
	cb := &codebook{
		codes: make([][]int, m.cols),
		index: make([]map[int]int, m.cols),
	}
	for j := 0; j < m.cols; j++ {
		cats := m.Categories(j)
		cb.codes[j] = cats
		cb.index[j] = make(map[int]int, len(cats))
		for k, code := range cats {
			cb.index[j][code] = k
		}
	}
	return cb
}

// encode translates m into category indexes. It fails when m has a
// different question count or a code missing from the codebook.
func (cb *codebook) encode(m *Matrix) ([][]int, error) {
	if m.cols != len(cb.codes) {
		return nil, fmt.Errorf("%w: matrix has %d questions, model has %d", ErrInvalidMatrix, m.cols, len(cb.codes))
	}
	out := make([][]int, m.rows)
	for i := 0; i < m.rows; i++ {
		row := make([]int, m.cols)
		for j := 0; j < m.cols; j++ {
			k, ok := cb.index[j][m.At(i, j)]
			if !ok {
				return nil, fmt.Errorf("%w: respondent %d question %d code %d", ErrUnknownCategory, i, j, m.At(i, j))
			}
			row[j] = k
		}
		out[i] = row
	}
	return out, nil
}

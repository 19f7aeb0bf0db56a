package survey

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound indicates the survey path does not exist.
	ErrFileNotFound = errors.New("survey: the path/file does not exist")
	// ErrNotCSV indicates the survey path lacks a .csv extension.
	ErrNotCSV = errors.New("survey: the file is not a csv file")
	// ErrSchema indicates a required column is missing.
	ErrSchema = errors.New("survey: incorrect file structure")
	// ErrValue indicates a cell outside its column's allowed values.
	ErrValue = errors.New("survey: incorrect option value")
)

// Rule bounds the integer codes allowed in one column.
type Rule struct {
	Column string
	Min    int
	Max    int
}

// Check returns a *RuleError when v lies outside [Min, Max].
func (r Rule) Check(line, v int) error {
	if v < r.Min || v > r.Max {
		return &RuleError{Rule: r, Line: line, Value: v}
	}
	return nil
}

// RuleError reports the first cell that broke a Rule.
type RuleError struct {
	Rule  Rule
	Line  int
	Value int
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("survey: incorrect option value for %s on line %d: %d not in [%d, %d]",
		e.Rule.Column, e.Line, e.Value, e.Rule.Min, e.Rule.Max)
}

// Is reports whether target is ErrValue.
func (e *RuleError) Is(target error) bool {
	return target == ErrValue
}

// Schema describes the expected survey columns.
type Schema struct {
	Questions []string
	Rules     []Rule
}

// DefaultSchema returns the Serial/Area/Age/Sex/Q1..Q5 layout with
// Area and Age coded 1..3 and Sex coded 1..2.
func DefaultSchema() Schema {
	return Schema{
		Questions: append([]string(nil), DefaultQuestions...),
		Rules: []Rule{
			{Column: ColumnArea, Min: 1, Max: 3},
			{Column: ColumnAge, Min: 1, Max: 3},
			{Column: ColumnSex, Min: 1, Max: 2},
		},
	}
}

// Required returns every column the schema needs, in file-independent order.
func (s Schema) Required() []string {
	cols := []string{ColumnSerial, ColumnArea, ColumnAge, ColumnSex}
	return append(cols, s.Questions...)
}

func (s Schema) rule(column string) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Column == column {
			return r, true
		}
	}
	return Rule{}, false
}

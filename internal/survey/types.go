// Package survey loads respondent CSV files and validates them against a
// schema before they reach the clustering core.
package survey

// Demographic dimensions every respondent carries.
const (
	ColumnSerial = "Serial"
	ColumnArea   = "Area"
	ColumnAge    = "Age"
	ColumnSex    = "Sex"
)

// DefaultQuestions lists the question columns of the standard survey layout.
var DefaultQuestions = []string{"Q1", "Q2", "Q3", "Q4", "Q5"}

// Respondent is one row of the survey.
type Respondent struct {
	Serial  int
	Area    int
	Age     int
	Sex     int
	Answers []int
}

// Demographic returns the respondent's value for an Area, Age or Sex column.
func (r Respondent) Demographic(column string) (int, bool) {
	switch column {
	case ColumnArea:
		return r.Area, true
	case ColumnAge:
		return r.Age, true
	case ColumnSex:
		return r.Sex, true
	}
	return 0, false
}

// Dataset is a validated survey with incomplete rows removed.
type Dataset struct {
	Source      string
	Questions   []string
	Respondents []Respondent
	// Dropped counts rows removed for missing answers.
	Dropped int
}

// Labelled is a respondent joined with its cluster label.
type Labelled struct {
	Respondent
	Cluster int
}

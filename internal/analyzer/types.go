package analyzer

import (
	"github.com/blackwell-systems/surveylca/internal/store"
	"github.com/blackwell-systems/surveylca/internal/survey"
)

// Dimensions are the demographic columns summarised per cluster.
var Dimensions = []string{survey.ColumnArea, survey.ColumnAge, survey.ColumnSex}

// ScatterPairs are the demographic pairs plotted against each other.
var ScatterPairs = [][2]string{
	{survey.ColumnArea, survey.ColumnAge},
	{survey.ColumnArea, survey.ColumnSex},
	{survey.ColumnAge, survey.ColumnSex},
}

// Labels maps each demographic code to its display name.
var Labels = map[string]map[int]string{
	survey.ColumnArea: {1: "District A", 2: "District B", 3: "District C"},
	survey.ColumnAge:  {1: "18-34", 2: "35-64", 3: "65+"},
	survey.ColumnSex:  {1: "Male", 2: "Female"},
}

// MeanRow holds one cluster's average answer per question.
type MeanRow struct {
	Cluster int
	Size    int
	Means   []float64
}

// Means is the cluster-by-question table of average answers.
type Means struct {
	Questions []string
	Rows      []MeanRow
}

// Table is a demographic cross-tabulation. Share[i][j] is the fraction of
// respondents with Codes[j] that fall in Clusters[i]; each column sums to 1
// unless it is empty.
type Table struct {
	Dimension string
	Codes     []int
	Labels    []string
	Clusters  []int
	Counts    [][]int
	Share     [][]float64
}

// Point is one jittered respondent in a demographic scatter.
type Point struct {
	Serial  int
	Cluster int
	X       float64
	Y       float64
}

// Tick is an axis label placed at the centre of a jittered band.
type Tick struct {
	Position float64
	Label    string
}

// ScatterData is a jittered demographic pair ready for plotting.
type ScatterData struct {
	X      string
	Y      string
	Points []Point
	XTicks []Tick
	YTicks []Tick
}

// Report collects everything shown for a finished run.
type Report struct {
	Run        *store.Run
	Candidates []*store.Candidate
	Components []*store.Component
	Profiles   []*store.Profile
	Rows       []survey.Labelled
	Means      *Means
	CrossTabs  []*Table
	Scatters   []*ScatterData
}

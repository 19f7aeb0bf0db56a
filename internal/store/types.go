package store

import "time"

// Run is one completed analysis of a survey file.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Source      string
	Respondents int
	Dropped     int
	Questions   []string
	MinClusters int
	MaxClusters int
	Selected    int
	Seed        uint64
}

// Candidate is the fit score recorded for one cluster count of a run.
type Candidate struct {
	Clusters      int
	BIC           float64
	LogLikelihood float64
	Params        int
	Iterations    int
	Converged     bool
	Duration      time.Duration
}

// Component is the mixing weight and size of one cluster in the final model.
type Component struct {
	Cluster int
	Weight  float64
	Size    int
}

// Profile is one category probability of the final model.
type Profile struct {
	Cluster     int
	Question    int
	Code        int
	Probability float64
}

// Assignment is a respondent's cluster label with the demographics used
// for cross-tabulation.
type Assignment struct {
	Serial  int
	Cluster int
	Area    int
	Age     int
	Sex     int
	Answers []int
}

// RunRecord bundles everything SaveRun writes for a single run.
type RunRecord struct {
	Run         *Run
	Candidates  []*Candidate
	Components  []*Component
	Profiles    []*Profile
	Assignments []*Assignment
}

package analyzer

import (
	"fmt"

	"github.com/blackwell-systems/surveylca/internal/store"
	"github.com/blackwell-systems/surveylca/internal/survey"
)

// Analyzer rebuilds per-cluster summaries for stored runs.
type Analyzer struct {
	store *store.Store
}

// New creates a new Analyzer instance with the given store.
func New(store *store.Store) *Analyzer {
	return &Analyzer{store: store}
}

// Report loads a run and recomputes its cluster means, cross-tabulations
// and scatter data. seed drives the scatter jitter.
func (a *Analyzer) Report(runID string, seed uint64) (*Report, error) {
	run, err := a.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	rec := &store.RunRecord{Run: run}

	if rec.Candidates, err = a.store.ListCandidates(runID); err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	if rec.Components, err = a.store.ListComponents(runID); err != nil {
		return nil, fmt.Errorf("failed to get components: %w", err)
	}
	if rec.Profiles, err = a.store.ListProfiles(runID); err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	if rec.Assignments, err = a.store.ListAssignments(runID); err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}

	return Build(rec, seed)
}

// Build assembles a Report from a run held in memory.
func Build(rec *store.RunRecord, seed uint64) (*Report, error) {
	rows := FromAssignments(rec.Assignments)
	report := &Report{
		Run:        rec.Run,
		Candidates: rec.Candidates,
		Components: rec.Components,
		Profiles:   rec.Profiles,
		Rows:       rows,
		Means:      ClusterMeans(rows, rec.Run.Questions),
	}

	for _, dim := range Dimensions {
		tab, err := CrossTab(rows, dim)
		if err != nil {
			return nil, err
		}
		report.CrossTabs = append(report.CrossTabs, tab)
	}

	for i, pair := range ScatterPairs {
		sc, err := Scatter(rows, pair[0], pair[1], seed+uint64(i))
		if err != nil {
			return nil, err
		}
		report.Scatters = append(report.Scatters, sc)
	}
	return report, nil
}

// FromAssignments converts stored assignment rows back to labelled respondents.
func FromAssignments(assignments []*store.Assignment) []survey.Labelled {
	rows := make([]survey.Labelled, len(assignments))
	for i, a := range assignments {
		rows[i] = survey.Labelled{
			Respondent: survey.Respondent{
				Serial:  a.Serial,
				Area:    a.Area,
				Age:     a.Age,
				Sex:     a.Sex,
				Answers: a.Answers,
			},
			Cluster: a.Cluster,
		}
	}
	return rows
}

package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/store"
)

func sampleReport(t *testing.T) *analyzer.Report {
	t.Helper()
	rec := &store.RunRecord{
		Run: &store.Run{
			ID:          "run-1",
			CreatedAt:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			Source:      "survey.csv",
			Respondents: 4,
			Dropped:     1,
			Questions:   []string{"Q1", "Q2"},
			MinClusters: 2,
			MaxClusters: 3,
			Selected:    2,
			Seed:        123,
		},
		Candidates: []*store.Candidate{
			{Clusters: 2, BIC: 40.5, LogLikelihood: -12, Params: 5, Iterations: 9, Converged: true},
			{Clusters: 3, BIC: 48.25, LogLikelihood: -11, Params: 8, Iterations: 14, Converged: true},
		},
		Components: []*store.Component{
			{Cluster: 0, Weight: 0.5, Size: 2},
			{Cluster: 1, Weight: 0.5, Size: 2},
		},
		Profiles: []*store.Profile{
			{Cluster: 0, Question: 0, Code: 1, Probability: 0.9},
			{Cluster: 0, Question: 0, Code: 2, Probability: 0.1},
			{Cluster: 1, Question: 1, Code: 2, Probability: 0.7},
		},
		Assignments: []*store.Assignment{
			{Serial: 1, Cluster: 0, Area: 1, Age: 1, Sex: 1, Answers: []int{1, 1}},
			{Serial: 2, Cluster: 0, Area: 2, Age: 2, Sex: 2, Answers: []int{1, 2}},
			{Serial: 3, Cluster: 1, Area: 3, Age: 3, Sex: 1, Answers: []int{2, 2}},
			{Serial: 4, Cluster: 1, Area: 1, Age: 3, Sex: 2, Answers: []int{2, 1}},
		},
	}
	report, err := analyzer.Build(rec, 5)
	require.NoError(t, err)
	return report
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWrite_Files(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	written, err := New(dir).Write(sampleReport(t))
	require.NoError(t, err)

	var names []string
	for _, p := range written {
		names = append(names, filepath.Base(p))
		assert.FileExists(t, p)
	}
	assert.Equal(t, []string{
		"combined.csv",
		"Area.csv", "Age.csv", "Sex.csv",
		"scatter_area_age.csv", "scatter_area_sex.csv", "scatter_age_sex.csv",
		"summary.yaml",
	}, names)
}

func TestWrite_Combined(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport(t))
	require.NoError(t, err)

	records := readCSV(t, filepath.Join(dir, CombinedFile))
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Serial", "Q1", "Q2", "cluster", "Area", "Age", "Sex"}, records[0])
	assert.Equal(t, []string{"3", "2", "2", "1", "3", "3", "1"}, records[3])
}

func TestWrite_CrossTabPercentages(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport(t))
	require.NoError(t, err)

	records := readCSV(t, filepath.Join(dir, "Area.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"cluster", "District A", "District B", "District C"}, records[0])
	// District A: serial 1 in cluster 0, serial 4 in cluster 1.
	assert.Equal(t, []string{"0", "50.00", "100.00", "0.00"}, records[1])
	assert.Equal(t, []string{"1", "50.00", "0.00", "100.00"}, records[2])
}

func TestWrite_Scatter(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport(t))
	require.NoError(t, err)

	records := readCSV(t, filepath.Join(dir, "scatter_age_sex.csv"))
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Serial", "cluster", "Age", "Sex"}, records[0])
}

func TestSummary_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Write(sampleReport(t))
	require.NoError(t, err)

	s, err := ReadSummary(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.Selected)
	assert.Equal(t, Range{Min: 2, Max: 3}, s.Range)
	assert.Equal(t, uint64(123), s.Seed)
	require.Len(t, s.Candidates, 2)
	assert.InDelta(t, 40.5, s.Candidates[0].BIC, 1e-12)
	require.Len(t, s.Clusters, 2)
	assert.InDelta(t, 1.0, s.Clusters[0].Means["Q1"], 1e-12)
	assert.InDelta(t, 0.9, s.Clusters[0].Profiles["Q1"][1], 1e-12)
	assert.InDelta(t, 0.7, s.Clusters[1].Profiles["Q2"][2], 1e-12)
	assert.True(t, s.CreatedAt.Equal(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)))
}

func TestWrite_UnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := New(filepath.Join(blocker, "out")).Write(sampleReport(t))
	assert.Error(t, err)
}

func TestReadSummary_Missing(t *testing.T) {
	_, err := ReadSummary(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

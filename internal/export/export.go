// Package export writes a finished run to a directory of CSV tables and a
// YAML summary.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/survey"
)

const (
	CombinedFile = "combined.csv"
	SummaryFile  = "summary.yaml"
)

// Summary is the YAML document written alongside the tables.
type Summary struct {
	RunID       string             `yaml:"run_id,omitempty"`
	Source      string             `yaml:"source"`
	CreatedAt   time.Time          `yaml:"created_at"`
	Respondents int                `yaml:"respondents"`
	Dropped     int                `yaml:"dropped"`
	Seed        uint64             `yaml:"seed"`
	Range       Range              `yaml:"range"`
	Selected    int                `yaml:"selected"`
	Candidates  []CandidateSummary `yaml:"candidates"`
	Clusters    []ClusterSummary   `yaml:"clusters"`
}

// Range is the inclusive cluster-count interval that was searched.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// CandidateSummary is one row of the BIC sweep.
type CandidateSummary struct {
	Clusters      int     `yaml:"clusters"`
	BIC           float64 `yaml:"bic"`
	LogLikelihood float64 `yaml:"log_likelihood"`
	Params        int     `yaml:"params"`
	Iterations    int     `yaml:"iterations"`
	Converged     bool    `yaml:"converged"`
}

// ClusterSummary describes one class of the selected model.
type ClusterSummary struct {
	Cluster int                `yaml:"cluster"`
	Weight  float64            `yaml:"weight"`
	Size    int                `yaml:"size"`
	Means   map[string]float64 `yaml:"means,omitempty"`
	// Profiles maps question -> response code -> probability.
	Profiles map[string]map[int]float64 `yaml:"profiles,omitempty"`
}

// Exporter writes reports under a fixed directory.
type Exporter struct {
	dir string
}

// New creates an Exporter writing to dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Write creates the output directory and writes every table for report.
// It returns the paths written, in order.
func (e *Exporter) Write(report *analyzer.Report) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	add := func(name string, fn func(string) error) error {
		path := filepath.Join(e.dir, name)
		if err := fn(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := add(CombinedFile, func(p string) error {
		return writeCombined(p, report.Run.Questions, report.Rows)
	}); err != nil {
		return nil, err
	}

	for _, tab := range report.CrossTabs {
		tab := tab
		if err := add(tab.Dimension+".csv", func(p string) error { return writeCrossTab(p, tab) }); err != nil {
			return nil, err
		}
	}

	for _, sc := range report.Scatters {
		sc := sc
		name := fmt.Sprintf("scatter_%s_%s.csv", strings.ToLower(sc.X), strings.ToLower(sc.Y))
		if err := add(name, func(p string) error { return writeScatter(p, sc) }); err != nil {
			return nil, err
		}
	}

	if err := add(SummaryFile, func(p string) error { return writeSummary(p, Summarize(report)) }); err != nil {
		return nil, err
	}

	return written, nil
}

// Summarize builds the YAML summary for report.
func Summarize(report *analyzer.Report) *Summary {
	run := report.Run
	s := &Summary{
		RunID:       run.ID,
		Source:      run.Source,
		CreatedAt:   run.CreatedAt,
		Respondents: run.Respondents,
		Dropped:     run.Dropped,
		Seed:        run.Seed,
		Range:       Range{Min: run.MinClusters, Max: run.MaxClusters},
		Selected:    run.Selected,
	}

	for _, c := range report.Candidates {
		s.Candidates = append(s.Candidates, CandidateSummary{
			Clusters:      c.Clusters,
			BIC:           c.BIC,
			LogLikelihood: c.LogLikelihood,
			Params:        c.Params,
			Iterations:    c.Iterations,
			Converged:     c.Converged,
		})
	}

	byCluster := make(map[int]*ClusterSummary)
	for _, c := range report.Components {
		s.Clusters = append(s.Clusters, ClusterSummary{Cluster: c.Cluster, Weight: c.Weight, Size: c.Size})
	}
	for i := range s.Clusters {
		byCluster[s.Clusters[i].Cluster] = &s.Clusters[i]
	}

	if report.Means != nil {
		for _, row := range report.Means.Rows {
			cs, ok := byCluster[row.Cluster]
			if !ok {
				continue
			}
			cs.Means = make(map[string]float64, len(row.Means))
			for j, v := range row.Means {
				cs.Means[report.Means.Questions[j]] = v
			}
		}
	}

	for _, p := range report.Profiles {
		cs, ok := byCluster[p.Cluster]
		if !ok || p.Question >= len(run.Questions) {
			continue
		}
		if cs.Profiles == nil {
			cs.Profiles = make(map[string]map[int]float64)
		}
		q := run.Questions[p.Question]
		if cs.Profiles[q] == nil {
			cs.Profiles[q] = make(map[int]float64)
		}
		cs.Profiles[q][p.Code] = p.Probability
	}
	return s
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeCombined writes every respondent with its answers and cluster.
func writeCombined(path string, questions []string, rows []survey.Labelled) error {
	header := []string{survey.ColumnSerial}
	header = append(header, questions...)
	header = append(header, "cluster", survey.ColumnArea, survey.ColumnAge, survey.ColumnSex)

	records := [][]string{header}
	for _, r := range rows {
		rec := []string{strconv.Itoa(r.Serial)}
		for _, a := range r.Answers {
			rec = append(rec, strconv.Itoa(a))
		}
		rec = append(rec,
			strconv.Itoa(r.Cluster),
			strconv.Itoa(r.Area),
			strconv.Itoa(r.Age),
			strconv.Itoa(r.Sex))
		records = append(records, rec)
	}
	return writeCSV(path, records)
}

// writeCrossTab writes column percentages with two decimals.
func writeCrossTab(path string, tab *analyzer.Table) error {
	header := append([]string{"cluster"}, tab.Labels...)
	records := [][]string{header}
	for i, c := range tab.Clusters {
		rec := []string{strconv.Itoa(c)}
		for _, share := range tab.Share[i] {
			rec = append(rec, strconv.FormatFloat(share*100, 'f', 2, 64))
		}
		records = append(records, rec)
	}
	return writeCSV(path, records)
}

func writeScatter(path string, sc *analyzer.ScatterData) error {
	records := [][]string{{survey.ColumnSerial, "cluster", sc.X, sc.Y}}
	for _, p := range sc.Points {
		records = append(records, []string{
			strconv.Itoa(p.Serial),
			strconv.Itoa(p.Cluster),
			strconv.FormatFloat(p.X, 'f', 4, 64),
			strconv.FormatFloat(p.Y, 'f', 4, 64),
		})
	}
	return writeCSV(path, records)
}

func writeSummary(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSummary loads a summary.yaml written by Write.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}

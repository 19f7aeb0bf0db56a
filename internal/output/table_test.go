package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/store"
)

func TestRenderCandidateTable(t *testing.T) {
	tests := []struct {
		name       string
		candidates []*store.Candidate
		selected   int
		contains   []string
		excludes   []string
	}{
		{
			name:       "empty candidates",
			candidates: nil,
			contains:   []string{"No candidates evaluated"},
		},
		{
			name: "selected count is marked",
			candidates: []*store.Candidate{
				{Clusters: 2, BIC: 1001.5, LogLikelihood: -480.25, Params: 11, Iterations: 30, Converged: true, Duration: 15 * time.Millisecond},
				{Clusters: 3, BIC: 990.125, LogLikelihood: -460.5, Params: 17, Iterations: 55, Converged: true, Duration: 2 * time.Second},
			},
			selected: 3,
			contains: []string{"Clusters", "BIC", "1001.500", "990.125", "-460.500", "15ms", "2.0s", "✓ selected"},
			excludes: []string{"iteration cap"},
		},
		{
			name: "unconverged candidate is flagged",
			candidates: []*store.Candidate{
				{Clusters: 4, BIC: 1200, Params: 23, Iterations: 1000, Converged: false},
			},
			selected: 2,
			contains: []string{"iteration cap", "—"},
			excludes: []string{"selected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderCandidateTable(tt.candidates, tt.selected)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderCandidateTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
			for _, unexpected := range tt.excludes {
				if strings.Contains(result, unexpected) {
					t.Errorf("RenderCandidateTable() should not contain %q\nGot:\n%s", unexpected, result)
				}
			}
		})
	}
}

func TestRenderClusterMeans(t *testing.T) {
	means := &analyzer.Means{
		Questions: []string{"Q1", "Q2", "VeryLongQuestion"},
		Rows: []analyzer.MeanRow{
			{Cluster: 0, Size: 12, Means: []float64{1.5, 2.25, 3}},
			{Cluster: 1, Size: 8, Means: []float64{4, 3.125, 1}},
		},
	}

	result := RenderClusterMeans(means)
	for _, expected := range []string{"Cluster", "Q1", "Very...", "1.50", "2.25", "3.12", "12", "8"} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderClusterMeans() missing %q\nGot:\n%s", expected, result)
		}
	}

	if got := RenderClusterMeans(nil); !strings.Contains(got, "No clusters") {
		t.Errorf("RenderClusterMeans(nil) = %q", got)
	}
}

func TestRenderCrossTab_Empty(t *testing.T) {
	if got := RenderCrossTab(&analyzer.Table{Dimension: "Area"}); !strings.Contains(got, "No respondents") {
		t.Errorf("RenderCrossTab(empty) = %q", got)
	}
}

func TestRenderRunTable(t *testing.T) {
	runs := []*store.Run{
		{
			ID:          "6f1c2a9e-0000-4000-8000-000000000001",
			CreatedAt:   time.Now().Add(-2 * time.Hour),
			Source:      "/data/waves/household_survey_results_2026.csv",
			Respondents: 1200,
			MinClusters: 2,
			MaxClusters: 10,
			Selected:    4,
		},
	}

	result := RenderRunTable(runs)
	for _, expected := range []string{"6f1c2a9e-0000-4000-8000-000000000001", "2 hours ago", "...", "1200", "2-10", "4"} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderRunTable() missing %q\nGot:\n%s", expected, result)
		}
	}

	if got := RenderRunTable(nil); !strings.Contains(got, "No runs recorded") {
		t.Errorf("RenderRunTable(nil) = %q", got)
	}
}

func TestRenderAssignmentSummary(t *testing.T) {
	components := []*store.Component{
		{Cluster: 0, Weight: 0.75, Size: 30},
		{Cluster: 1, Weight: 0.25, Size: 10},
	}

	result := RenderAssignmentSummary(components)
	for _, expected := range []string{"75.0%", "25.0%", "0.750", "Total", "40"} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderAssignmentSummary() missing %q\nGot:\n%s", expected, result)
		}
	}

	if got := RenderAssignmentSummary(nil); !strings.Contains(got, "No clusters assigned") {
		t.Errorf("RenderAssignmentSummary(nil) = %q", got)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"weeks", now.Add(-15 * 24 * time.Hour), "2 weeks ago"},
		{"months", now.Add(-65 * 24 * time.Hour), "2 months ago"},
		{"years", now.Add(-800 * 24 * time.Hour), "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestIsColorEnabled_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if IsColorEnabled() {
		t.Error("IsColorEnabled() should be false when NO_COLOR is set")
	}
	if got := colorize(colorGreen, "x"); got != "x" {
		t.Errorf("colorize() = %q, want plain text", got)
	}
}

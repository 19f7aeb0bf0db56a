// Package output renders surveylca results for the terminal.
//
// This package includes:
//   - Table rendering for candidate BIC scores, cluster means, demographic
//     cross-tabulations, stored runs and cluster sizes
//   - Progress bars for the cluster-count sweep
//   - Spinners for the final refit
//
// Tables use fixed-width columns. Colour is emitted only when stdout is a
// terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderCandidateTable renders the BIC sweep, marking the selected count.
// Candidates are printed in the order given.
func RenderCandidateTable(candidates []*store.Candidate, selected int) string {
	if len(candidates) == 0 {
		return "No candidates evaluated.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-9s %14s %16s %7s %6s %9s  %s\n",
		"Clusters", "BIC", "Log-likelihood", "Params", "Iters", "Time", "Status"))
	sb.WriteString(strings.Repeat("─", 78))
	sb.WriteString("\n")

	for _, c := range candidates {
		status := ""
		switch {
		case c.Clusters == selected:
			status = colorize(colorGreen, "✓ selected")
		case !c.Converged:
			status = colorize(colorYellow, "~ iteration cap")
		}
		sb.WriteString(fmt.Sprintf("%-9d %14.3f %16.3f %7d %6d %9s  %s\n",
			c.Clusters,
			c.BIC,
			c.LogLikelihood,
			c.Params,
			c.Iterations,
			formatDuration(c.Duration),
			status))
	}

	return sb.String()
}

// RenderClusterMeans renders the mean answer of each cluster to each question.
func RenderClusterMeans(m *analyzer.Means) string {
	if m == nil || len(m.Rows) == 0 {
		return "No clusters to summarise.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %6s", "Cluster", "Size"))
	for _, q := range m.Questions {
		sb.WriteString(fmt.Sprintf(" %7s", truncate(q, 7)))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 15+8*len(m.Questions)))
	sb.WriteString("\n")

	for _, row := range m.Rows {
		sb.WriteString(fmt.Sprintf("%-8d %6d", row.Cluster, row.Size))
		for _, v := range row.Means {
			sb.WriteString(fmt.Sprintf(" %7.2f", v))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderCrossTab renders a demographic cross-tabulation as column
// percentages, one row per cluster.
func RenderCrossTab(t *analyzer.Table) string {
	if t == nil || len(t.Clusters) == 0 {
		return "No respondents to tabulate.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%% of column)\n", t.Dimension))
	sb.WriteString(fmt.Sprintf("%-8s", "Cluster"))
	for _, l := range t.Labels {
		sb.WriteString(fmt.Sprintf(" %11s", truncate(l, 11)))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 8+12*len(t.Labels)))
	sb.WriteString("\n")

	for i, c := range t.Clusters {
		sb.WriteString(fmt.Sprintf("%-8d", c))
		for _, share := range t.Share[i] {
			sb.WriteString(fmt.Sprintf(" %10.1f%%", share*100))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderRunTable renders stored runs, newest first as given. Sources are
// shown by file name.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s  %-16s %-24s %8s %7s %9s\n",
		"ID", "Created", "Source", "Resp.", "Range", "Selected"))
	sb.WriteString(strings.Repeat("─", 106))
	sb.WriteString("\n")

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-36s  %-16s %-24s %8d %7s %9d\n",
			r.ID,
			formatRelativeTime(r.CreatedAt),
			truncate(filepath.Base(r.Source), 24),
			r.Respondents,
			fmt.Sprintf("%d-%d", r.MinClusters, r.MaxClusters),
			r.Selected))
	}

	return sb.String()
}

// RenderAssignmentSummary renders cluster sizes and mixing weights.
func RenderAssignmentSummary(components []*store.Component) string {
	if len(components) == 0 {
		return "No clusters assigned.\n"
	}

	total := 0
	for _, c := range components {
		total += c.Size
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %8s %8s %8s  %s\n", "Cluster", "Size", "Share", "Weight", ""))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, c := range components {
		share := 0.0
		if total > 0 {
			share = float64(c.Size) / float64(total)
		}
		sb.WriteString(fmt.Sprintf("%-8d %8d %7.1f%% %8.3f  %s\n",
			c.Cluster,
			c.Size,
			share*100,
			c.Weight,
			colorize(colorGray, strings.Repeat("█", int(share*20+0.5)))))
	}
	sb.WriteString(fmt.Sprintf("%-8s %8d\n", "Total", total))

	return sb.String()
}

// formatDuration renders a fit time at a readable precision.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "—"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

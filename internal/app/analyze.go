package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	analyzeOpts   pipelineOptions
	analyzeNoSave bool

	analyzeCmd = &cobra.Command{
		Use:   "analyze <survey.csv>",
		Short: "Select a cluster count, label respondents and summarise clusters",
		Long: `Run the full latent class analysis on a survey file.

For every cluster count in [--min, --max] a model is fitted and scored with
BIC. The count with the lowest BIC is refitted, each respondent is labelled
with its most probable cluster, and the clusters are summarised:

  • mean answer per question for each cluster
  • Area, Age and Sex cross-tabulations (percent of each category)

The run is saved to the history database unless --no-save is given. With
--out the combined table, cross-tabulations, scatter data and a YAML summary
are written to that directory.`,
		Example: `  # Default search over 2..10 clusters
  surveylca analyze survey.csv

  # Narrow the range and export results
  surveylca analyze survey.csv --min 3 --max 6 --out results

  # Reproducible run with a different seed, not stored
  surveylca analyze survey.csv --seed 7 --no-save`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}
)

func init() {
	sweepFlags(analyzeCmd, &analyzeOpts)
	analyzeCmd.Flags().StringVar(&analyzeOpts.OutDir, "out", "", "directory for exported CSV and YAML files")
	analyzeCmd.Flags().StringVar(&analyzeOpts.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not record the run in the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts := resolveOptions(cmd, analyzeOpts)
	opts.Save = !analyzeNoSave

	result, err := runPipeline(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.RunID != "" {
		fmt.Fprintf(out, "Run saved: %s\n", result.RunID)
	}
	if len(result.Exported) > 0 {
		fmt.Fprintf(out, "Exported %d files to %s\n", len(result.Exported), opts.OutDir)
	}
	return nil
}

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/surveylca/internal/metrics"
	"github.com/blackwell-systems/surveylca/internal/output"
)

var (
	selectOpts pipelineOptions

	selectCmd = &cobra.Command{
		Use:   "select <survey.csv>",
		Short: "Compare cluster counts by BIC without labelling respondents",
		Long: `Fit a model for every cluster count in [--min, --max] and print the
BIC table. The count with the lowest BIC is marked as selected; ties go to
the smaller count. Nothing is saved.`,
		Example: `  surveylca select survey.csv
  surveylca select survey.csv --min 2 --max 4 --workers 2`,
		Args: cobra.ExactArgs(1),
		RunE: runSelect,
	}
)

func init() {
	sweepFlags(selectCmd, &selectOpts)
}

func runSelect(cmd *cobra.Command, args []string) error {
	opts := resolveOptions(cmd, selectOpts)

	_, _, selection, err := sweep(cmd.Context(), args[0], opts, metrics.New(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.Quiet {
		fmt.Fprintln(out, output.RenderCandidateTable(toStoreCandidates(selection.Candidates), selection.Best))
	}
	fmt.Fprintf(out, "Selected %d clusters\n", selection.Best)
	return nil
}

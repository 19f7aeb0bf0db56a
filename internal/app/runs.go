package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/export"
	"github.com/blackwell-systems/surveylca/internal/output"
	"github.com/blackwell-systems/surveylca/internal/store"
)

var (
	runsFormat string
	runsOutDir string

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List, inspect, export and delete stored runs",
		Long: `Work with the analysis history saved by "surveylca analyze".

Without a subcommand, lists stored runs newest first.`,
		Example: `  surveylca runs
  surveylca runs show 3f2a... --format yaml
  surveylca runs export 3f2a... --out results
  surveylca runs delete 3f2a...`,
		Args: cobra.NoArgs,
		RunE: runRunsList,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show the tables of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}

	runsExportCmd = &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored run's CSV and YAML files",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsExport,
	}

	runsDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsDelete,
	}
)

func init() {
	runsShowCmd.Flags().StringVar(&runsFormat, "format", "table", "output format: table or yaml")
	runsExportCmd.Flags().StringVar(&runsOutDir, "out", "", "destination directory (default: output.dir from config)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded. Run 'surveylca analyze <survey.csv>' first.")
		return nil
	}
	fmt.Fprint(out, output.RenderRunTable(runs))
	return nil
}

// loadReport rebuilds the report of a stored run.
func loadReport(id string) (*analyzer.Report, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	run, err := db.GetRun(id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, err
	}
	return analyzer.New(db).Report(id, run.Seed)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runsFormat != "table" && runsFormat != "yaml" {
		return fmt.Errorf("invalid format %q: must be table or yaml", runsFormat)
	}

	report, err := loadReport(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runsFormat == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(export.Summarize(report)); err != nil {
			return fmt.Errorf("failed to encode run: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(out, "Run %s  %s  (%s)\n\n", report.Run.ID, report.Run.Source, report.Run.CreatedAt.Local().Format("2006-01-02 15:04"))
	renderReport(out, report)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	dir := runsOutDir
	if dir == "" {
		dir = settings.Output.Dir
	}

	report, err := loadReport(args[0])
	if err != nil {
		return err
	}

	written, err := export.New(dir).Write(report)
	if err != nil {
		return err
	}
	logger.Info("run exported", zap.String("run", args[0]), zap.String("dir", dir))
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d files to %s\n", len(written), dir)
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRun(args[0]); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}

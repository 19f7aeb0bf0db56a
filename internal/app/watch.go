package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/surveylca/internal/survey"
	"github.com/blackwell-systems/surveylca/internal/watcher"
)

var (
	watchOpts     pipelineOptions
	watchNoSave   bool
	watchDebounce time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch <survey.csv>",
		Short: "Re-run the analysis whenever the survey file changes",
		Long: `Watch a survey file and run the full analysis each time it is saved.

The analysis runs once at startup and again after every change, once the
file has been quiet for --debounce. A failed run (for example a half-written
file) is logged and the watch continues. Press Ctrl+C to stop.`,
		Example: `  # Re-run on save, exporting to ./results each time
  surveylca watch survey.csv --out results

  # Wait two seconds after the last write before re-running
  surveylca watch survey.csv --debounce 2s --no-save`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
)

func init() {
	sweepFlags(watchCmd, &watchOpts)
	watchCmd.Flags().StringVar(&watchOpts.OutDir, "out", "", "directory for exported CSV and YAML files")
	watchCmd.Flags().StringVar(&watchOpts.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	watchCmd.Flags().BoolVar(&watchNoSave, "no-save", false, "do not record runs in the database")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before re-running")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := survey.CheckFile(args[0]); err != nil {
		return err
	}

	opts := resolveOptions(cmd, watchOpts)
	opts.Save = !watchNoSave

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (press Ctrl+C to stop)\n", args[0])
	if err := watchFile(ctx, args[0], opts, watchDebounce, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Watch stopped")
	return nil
}

// watchFile runs the pipeline once and then after each debounced change
// until ctx is cancelled.
func watchFile(ctx context.Context, path string, opts pipelineOptions, debounce time.Duration, stdout, stderr io.Writer) error {
	handler := func(ctx context.Context) error {
		result, err := runPipeline(ctx, path, opts, stdout, stderr)
		if err != nil {
			return err
		}
		if result.RunID != "" {
			fmt.Fprintf(stdout, "Run saved: %s\n", result.RunID)
		}
		return nil
	}

	w, err := watcher.New(path, handler,
		watcher.WithDebounce(debounce),
		watcher.WithLogger(logger),
		watcher.WithInitialRun())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	return w.Run(ctx)
}

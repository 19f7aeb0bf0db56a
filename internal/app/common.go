package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/surveylca/internal/analyzer"
	"github.com/blackwell-systems/surveylca/internal/export"
	"github.com/blackwell-systems/surveylca/internal/lca"
	"github.com/blackwell-systems/surveylca/internal/metrics"
	"github.com/blackwell-systems/surveylca/internal/output"
	"github.com/blackwell-systems/surveylca/internal/store"
	"github.com/blackwell-systems/surveylca/internal/survey"
)

// pipelineOptions are the per-invocation settings of an analysis.
type pipelineOptions struct {
	Min         int
	Max         int
	Workers     int
	Seed        uint64
	OutDir      string
	Save        bool
	MetricsFile string
	Quiet       bool
}

// pipelineResult is what a completed analysis produced.
type pipelineResult struct {
	RunID     string
	Selection *lca.Selection
	Report    *analyzer.Report
	Exported  []string
}

// sweepFlags registers the cluster-range and fit flags shared by analyze,
// select and watch.
func sweepFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().IntVar(&opts.Min, "min", lca.MinClusters, "smallest cluster count to try")
	cmd.Flags().IntVar(&opts.Max, "max", lca.MaxClusters, "largest cluster count to try")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent fits (0: one per candidate)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", lca.DefaultSeed, "random seed for EM initialisation")
	cmd.Flags().BoolVar(&opts.Quiet, "quiet", false, "suppress tables and progress output")
}

// resolveOptions fills options whose flags were not set from the loaded
// configuration.
func resolveOptions(cmd *cobra.Command, opts pipelineOptions) pipelineOptions {
	flags := cmd.Flags()
	if !flags.Changed("min") {
		opts.Min = settings.Clusters.Min
	}
	if !flags.Changed("max") {
		opts.Max = settings.Clusters.Max
	}
	if !flags.Changed("workers") {
		opts.Workers = settings.Fit.Workers
	}
	if !flags.Changed("seed") {
		opts.Seed = settings.Fit.Seed
	}
	if f := flags.Lookup("out"); f != nil && !f.Changed {
		opts.OutDir = settings.Output.Dir
	}
	if f := flags.Lookup("metrics-file"); f != nil && !f.Changed {
		opts.MetricsFile = settings.Metrics.File
	}
	return opts
}

// openStore opens the run database and creates the schema if needed.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return db, nil
}

// sweep loads the survey and runs the BIC selection over [Min, Max].
func sweep(ctx context.Context, path string, opts pipelineOptions, m *metrics.Metrics, stderr io.Writer) (*survey.Dataset, *lca.Matrix, *lca.Selection, error) {
	ds, err := survey.Load(path, settings.Schema())
	if err != nil {
		return nil, nil, nil, err
	}
	if ds.Dropped > 0 {
		logger.Warn("dropped incomplete rows", zap.String("path", path), zap.Int("dropped", ds.Dropped))
	}

	x, err := ds.Matrix()
	if err != nil {
		return nil, nil, nil, err
	}

	fit := settings.FitConfig()
	fit.Seed = opts.Seed
	sel := lca.NewSelector(fit)
	sel.Bounds = settings.Bounds()
	sel.Workers = opts.Workers

	if err := lca.ValidateRange(opts.Min, opts.Max, sel.Bounds); err != nil {
		return nil, nil, nil, err
	}

	var progress *output.ProgressBar
	if !opts.Quiet {
		progress = output.NewProgress(opts.Max-opts.Min+1, "Fitting candidates")
		progress.SetWriter(stderr)
	}
	sel.OnCandidate = func(c lca.Candidate) {
		m.ObserveCandidate(c)
		logger.Debug("candidate fitted",
			zap.Int("clusters", c.Clusters),
			zap.Float64("bic", c.BIC),
			zap.Int("iterations", c.Iterations),
			zap.Bool("converged", c.Converged),
			zap.Duration("elapsed", c.Duration))
		if progress != nil {
			progress.Observe(c.Clusters, c.BIC)
		}
	}

	logger.Info("selecting cluster count",
		zap.String("path", path),
		zap.Int("respondents", len(ds.Respondents)),
		zap.Int("min", opts.Min),
		zap.Int("max", opts.Max))

	selection, err := sel.Select(ctx, x, opts.Min, opts.Max)
	if err != nil {
		m.ObserveFailure()
		return nil, nil, nil, err
	}
	if progress != nil {
		progress.Finish()
	}
	return ds, x, selection, nil
}

// runPipeline performs a full analysis: sweep, refit, label, summarise,
// then optionally save, export and write metrics.
func runPipeline(ctx context.Context, path string, opts pipelineOptions, stdout, stderr io.Writer) (*pipelineResult, error) {
	m := metrics.New()
	defer func() {
		if opts.MetricsFile == "" {
			return
		}
		if err := m.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}()

	ds, x, selection, err := sweep(ctx, path, opts, m, stderr)
	if err != nil {
		return nil, err
	}

	var spinner *output.Spinner
	if !opts.Quiet {
		spinner = output.NewSpinner(fmt.Sprintf("Assigning respondents to %d clusters", selection.Best))
		spinner.SetWriter(stderr)
		spinner.Start()
	}
	fit := settings.FitConfig()
	fit.Seed = opts.Seed
	assignment, err := lca.Assign(ctx, x, selection.Best, fit)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("respondents assigned",
		zap.Int("clusters", selection.Best),
		zap.Int("iterations", assignment.Model.Iterations),
		zap.Bool("converged", assignment.Model.Converged))

	rows, err := ds.Join(assignment.Labels)
	if err != nil {
		return nil, err
	}

	rec := buildRecord(ds, opts, selection, assignment, rows)
	result := &pipelineResult{Selection: selection}

	if opts.Save {
		db, err := openStore()
		if err != nil {
			return nil, err
		}
		id, err := db.SaveRun(rec)
		db.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		result.RunID = id
	}

	report, err := analyzer.Build(rec, opts.Seed)
	if err != nil {
		return nil, err
	}
	result.Report = report

	if !opts.Quiet {
		renderReport(stdout, report)
	}

	if opts.OutDir != "" {
		written, err := export.New(opts.OutDir).Write(report)
		if err != nil {
			return nil, err
		}
		result.Exported = written
	}

	m.ObserveSelection(selection.Best, len(ds.Respondents))
	logger.Info("analysis complete",
		zap.String("run", result.RunID),
		zap.Int("selected", selection.Best),
		zap.Int("respondents", len(ds.Respondents)),
		zap.Int("exported", len(result.Exported)))
	return result, nil
}

// buildRecord converts the pipeline's in-memory results to store rows.
func buildRecord(ds *survey.Dataset, opts pipelineOptions, selection *lca.Selection, assignment *lca.Assignment, rows []survey.Labelled) *store.RunRecord {
	rec := &store.RunRecord{
		Run: &store.Run{
			CreatedAt:   time.Now().UTC(),
			Source:      ds.Source,
			Respondents: len(ds.Respondents),
			Dropped:     ds.Dropped,
			Questions:   ds.Questions,
			MinClusters: opts.Min,
			MaxClusters: opts.Max,
			Selected:    selection.Best,
			Seed:        opts.Seed,
		},
		Candidates: toStoreCandidates(selection.Candidates),
	}

	model := assignment.Model
	sizes := assignment.Sizes()
	for c, w := range model.Weights {
		rec.Components = append(rec.Components, &store.Component{Cluster: c, Weight: w, Size: sizes[c]})
		for j, probs := range model.Profiles[c] {
			for k, p := range probs {
				rec.Profiles = append(rec.Profiles, &store.Profile{
					Cluster:     c,
					Question:    j,
					Code:        model.Codes[j][k],
					Probability: p,
				})
			}
		}
	}

	for _, r := range rows {
		rec.Assignments = append(rec.Assignments, &store.Assignment{
			Serial:  r.Serial,
			Cluster: r.Cluster,
			Area:    r.Area,
			Age:     r.Age,
			Sex:     r.Sex,
			Answers: r.Answers,
		})
	}
	return rec
}

func toStoreCandidates(candidates []lca.Candidate) []*store.Candidate {
	out := make([]*store.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = &store.Candidate{
			Clusters:      c.Clusters,
			BIC:           c.BIC,
			LogLikelihood: c.LogLikelihood,
			Params:        c.Params,
			Iterations:    c.Iterations,
			Converged:     c.Converged,
			Duration:      c.Duration,
		}
	}
	return out
}

// renderReport prints the tables shown after an analysis or by runs show.
func renderReport(w io.Writer, report *analyzer.Report) {
	fmt.Fprintln(w, output.RenderCandidateTable(report.Candidates, report.Run.Selected))
	fmt.Fprintf(w, "Selected %d clusters for %d respondents", report.Run.Selected, report.Run.Respondents)
	if report.Run.Dropped > 0 {
		fmt.Fprintf(w, " (%d incomplete rows dropped)", report.Run.Dropped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.RenderAssignmentSummary(report.Components))
	fmt.Fprintln(w, output.RenderClusterMeans(report.Means))
	for _, tab := range report.CrossTabs {
		fmt.Fprintln(w, output.RenderCrossTab(tab))
	}
}

// Package metrics records fit and sweep statistics in a Prometheus registry
// that can be written to a node-exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blackwell-systems/surveylca/internal/lca"
)

const namespace = "surveylca"

// Fit outcomes used as the "outcome" label of surveylca_fits_total.
const (
	OutcomeConverged = "converged"
	OutcomeCapped    = "iteration_cap"
	OutcomeFailed    = "failed"
)

var (
	// DurationBuckets spans sub-millisecond toy fits to multi-minute sweeps.
	DurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	// IterationBuckets covers quick convergence up to the default cap.
	IterationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000}
)

// Metrics holds one run's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	fits          *prometheus.CounterVec
	fitDuration   prometheus.Histogram
	fitIterations prometheus.Histogram
	candidateBIC  *prometheus.GaugeVec
	selected      prometheus.Gauge
	respondents   prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "EM fits attempted, by outcome.",
		}, []string{"outcome"}),
		fitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Wall time of a single EM fit.",
			Buckets:   DurationBuckets,
		}),
		fitIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_iterations",
			Help:      "EM iterations used by a single fit.",
			Buckets:   IterationBuckets,
		}),
		candidateBIC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidate_bic",
			Help:      "BIC of the last sweep, by cluster count.",
		}, []string{"clusters"}),
		selected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "selected_clusters",
			Help:      "Cluster count chosen by the last sweep.",
		}),
		respondents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "respondents",
			Help:      "Complete respondents in the last analysed file.",
		}),
	}

	m.registry.MustRegister(
		m.fits,
		m.fitDuration,
		m.fitIterations,
		m.candidateBIC,
		m.selected,
		m.respondents,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCandidate records a successful fit from the sweep. Safe for
// concurrent use.
func (m *Metrics) ObserveCandidate(c lca.Candidate) {
	outcome := OutcomeConverged
	if !c.Converged {
		outcome = OutcomeCapped
	}
	m.fits.WithLabelValues(outcome).Inc()
	m.fitDuration.Observe(c.Duration.Seconds())
	m.fitIterations.Observe(float64(c.Iterations))
	m.candidateBIC.WithLabelValues(strconv.Itoa(c.Clusters)).Set(c.BIC)
}

// ObserveFailure counts a fit that returned an error.
func (m *Metrics) ObserveFailure() {
	m.fits.WithLabelValues(OutcomeFailed).Inc()
}

// ObserveSelection records the chosen cluster count and sample size.
func (m *Metrics) ObserveSelection(selected, respondents int) {
	m.selected.Set(float64(selected))
	m.respondents.Set(float64(respondents))
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically so a concurrent scrape never sees a partial write.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

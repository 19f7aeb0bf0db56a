package config

import (
	"github.com/spf13/viper"

	"github.com/blackwell-systems/surveylca/internal/lca"
	"github.com/blackwell-systems/surveylca/internal/survey"
)

// Default values. The cluster range and seed match the survey study this
// tool was built for.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultOutputDir = "surveylca-out"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("clusters.min", lca.MinClusters)
	v.SetDefault("clusters.max", lca.MaxClusters)
	v.SetDefault("clusters.lower_bound", lca.MinClusters)
	v.SetDefault("clusters.upper_bound", lca.MaxClusters)
	v.SetDefault("fit.seed", lca.DefaultSeed)
	v.SetDefault("fit.max_iter", lca.DefaultMaxIter)
	v.SetDefault("fit.tol", lca.DefaultTol)
	v.SetDefault("fit.workers", 0)
	v.SetDefault("survey.questions", survey.DefaultQuestions)
	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("metrics.file", "")
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() *Config {
	questions := make([]string, len(survey.DefaultQuestions))
	copy(questions, survey.DefaultQuestions)
	return &Config{
		Clusters: ClustersConfig{
			Min:        lca.MinClusters,
			Max:        lca.MaxClusters,
			LowerBound: lca.MinClusters,
			UpperBound: lca.MaxClusters,
		},
		Fit: FitConfig{
			Seed:    lca.DefaultSeed,
			MaxIter: lca.DefaultMaxIter,
			Tol:     lca.DefaultTol,
		},
		Survey: SurveyConfig{Questions: questions},
		Output: OutputConfig{Dir: DefaultOutputDir},
		Log:    LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// FitConfig converts the fit settings for the clustering core.
func (c *Config) FitConfig() lca.FitConfig {
	return lca.FitConfig{Seed: c.Fit.Seed, MaxIter: c.Fit.MaxIter, Tol: c.Fit.Tol}
}

// Bounds returns the admissible cluster-count interval.
func (c *Config) Bounds() lca.Bounds {
	return lca.Bounds{Lower: c.Clusters.LowerBound, Upper: c.Clusters.UpperBound}
}

// Schema returns the survey schema for the configured question columns.
func (c *Config) Schema() survey.Schema {
	s := survey.DefaultSchema()
	s.Questions = c.Survey.Questions
	return s
}

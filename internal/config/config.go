// Package config loads surveylca settings from a YAML file and SURVEYLCA_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "SURVEYLCA"

// FileName is the config file looked up in Dir() when no path is given.
const FileName = "config.yaml"

// Config is the full set of surveylca settings.
type Config struct {
	DB       string         `mapstructure:"db"`
	Clusters ClustersConfig `mapstructure:"clusters"`
	Fit      FitConfig      `mapstructure:"fit"`
	Survey   SurveyConfig   `mapstructure:"survey"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ClustersConfig sets the searched range and the bounds it must lie in.
type ClustersConfig struct {
	Min        int `mapstructure:"min"`
	Max        int `mapstructure:"max"`
	LowerBound int `mapstructure:"lower_bound"`
	UpperBound int `mapstructure:"upper_bound"`
}

// FitConfig tunes each EM run and the sweep's parallelism.
type FitConfig struct {
	Seed    uint64  `mapstructure:"seed"`
	MaxIter int     `mapstructure:"max_iter"`
	Tol     float64 `mapstructure:"tol"`
	Workers int     `mapstructure:"workers"`
}

type SurveyConfig struct {
	Questions []string `mapstructure:"questions"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// Dir returns the surveylca config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/surveylca if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "surveylca"), nil
}

// newViper builds a Viper instance with YAML config, the SURVEYLCA_ env
// prefix, and "." mapped to "_" so "fit.seed" reads SURVEYLCA_FIT_SEED.
// Every key gets a default so AutomaticEnv can see it during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the YAML file at path, applies SURVEYLCA_* overrides and
// validates the result. An empty path means Dir()/config.yaml, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()

	if path == "" {
		dir, err := Dir()
		if err == nil {
			candidate := filepath.Join(dir, FileName)
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	var errs []error

	cl := c.Clusters
	if cl.LowerBound < 1 {
		errs = append(errs, fmt.Errorf("clusters.lower_bound must be at least 1, got %d", cl.LowerBound))
	}
	if cl.UpperBound < cl.LowerBound {
		errs = append(errs, fmt.Errorf("clusters.upper_bound %d is below lower_bound %d", cl.UpperBound, cl.LowerBound))
	}
	if c.Fit.MaxIter < 1 {
		errs = append(errs, fmt.Errorf("fit.max_iter must be positive, got %d", c.Fit.MaxIter))
	}
	if !(c.Fit.Tol > 0) {
		errs = append(errs, fmt.Errorf("fit.tol must be positive, got %g", c.Fit.Tol))
	}
	if c.Fit.Workers < 0 {
		errs = append(errs, fmt.Errorf("fit.workers must not be negative, got %d", c.Fit.Workers))
	}
	if len(c.Survey.Questions) == 0 {
		errs = append(errs, errors.New("survey.questions must list at least one column"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

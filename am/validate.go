package am

import (
	"strings"

	"github.com/carlospaes120/scapegoat/errors"
)

var (
	thresholdMethods = []string{"percentile", "std", "fixed"}
	climaxMethods    = []string{"global_max", "local_max", "smoothed"}
	anomalyMethods   = []string{"iqr", "zscore"}
	splitMethods     = []string{"percentile", "median", "mean"}
	communityMethods = []string{"refined_louvain", "local_moving", "singletons"}
)

// Validate checks ranges and enumerations. Duration strings are parsed by
// the pipeline, which reports ErrInvalidWindow for them.
func (c *Config) Validate() error {
	if c.Input.SourceColumn == "" || c.Input.TargetColumn == "" || c.Input.TimestampColumn == "" {
		return invalid("input.source_column, input.target_column and input.timestamp_column must be set")
	}

	for _, k := range c.Metrics.TopK {
		if k < 1 {
			return invalid("metrics.top_k entries must be >= 1, got %d", k)
		}
	}
	if c.Metrics.IsolationThreshold < 0 || c.Metrics.IsolationThreshold > 1 {
		return invalid("metrics.isolation_threshold must be in [0, 1], got %v", c.Metrics.IsolationThreshold)
	}
	if c.Metrics.IsolationMinWindows < 0 {
		return invalid("metrics.isolation_min_windows must be >= 0, got %d", c.Metrics.IsolationMinWindows)
	}
	if c.Metrics.DiameterPercentile < 0 || c.Metrics.DiameterPercentile > 1 {
		return invalid("metrics.diameter_percentile must be in [0, 1], got %v", c.Metrics.DiameterPercentile)
	}
	if d := c.Metrics.PageRank.Damping; d < 0 || d >= 1 {
		return invalid("metrics.pagerank.damping must be in [0, 1), got %v", d)
	}
	if c.Metrics.PageRank.Tolerance < 0 {
		return invalid("metrics.pagerank.tolerance must be >= 0, got %v", c.Metrics.PageRank.Tolerance)
	}
	if c.Metrics.PageRank.MaxIterations < 0 {
		return invalid("metrics.pagerank.max_iterations must be >= 0, got %d", c.Metrics.PageRank.MaxIterations)
	}

	for _, m := range c.Community.Methods {
		if err := oneOf("community.methods", m, communityMethods); err != nil {
			return err
		}
	}
	if c.Community.Resolution < 0 {
		return invalid("community.resolution must be >= 0, got %v", c.Community.Resolution)
	}

	if err := oneOf("burst.threshold_method", c.Burst.ThresholdMethod, thresholdMethods); err != nil {
		return err
	}
	if c.Burst.ThresholdMethod == "percentile" && (c.Burst.ThresholdValue < 0 || c.Burst.ThresholdValue > 100) {
		return invalid("burst.threshold_value must be in [0, 100] for percentile, got %v", c.Burst.ThresholdValue)
	}
	if c.Burst.MinLength < 1 {
		return invalid("burst.min_length must be >= 1, got %d", c.Burst.MinLength)
	}
	if err := oneOf("burst.climax_method", c.Burst.ClimaxMethod, climaxMethods); err != nil {
		return err
	}
	if err := oneOf("burst.anomaly_method", c.Burst.AnomalyMethod, anomalyMethods); err != nil {
		return err
	}

	if c.DoseResponse.NBins < 1 {
		return invalid("dose_response.n_bins must be >= 1, got %d", c.DoseResponse.NBins)
	}
	if c.DoseResponse.MinSamplesPerBin < 1 {
		return invalid("dose_response.min_samples_per_bin must be >= 1, got %d", c.DoseResponse.MinSamplesPerBin)
	}
	if err := oneOf("dose_response.split_method", c.DoseResponse.SplitMethod, splitMethods); err != nil {
		return err
	}

	// 0 = one worker per CPU, negative is invalid
	if c.Pipeline.Workers < 0 {
		return invalid("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return invalid("database.path cannot be empty when the run store is enabled")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(errors.ErrInvalidConfig, format, args...)
}

func oneOf(key, got string, allowed []string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return errors.WithHint(
		invalid("%s: unknown value %q", key, got),
		"use one of: "+strings.Join(allowed, ", "),
	)
}

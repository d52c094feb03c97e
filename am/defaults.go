package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultResponses are the window columns analysed against each factor.
var DefaultResponses = []string{
	"peak_mean", "peak_median", "betweenness_centralization",
	"victim_reciprocity", "victim_scc_size", "victim_ego_density",
	"victim_inshare", "avg_path_len",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Input mapping
	v.SetDefault("input.path", "")
	v.SetDefault("input.source_column", "src")
	v.SetDefault("input.target_column", "dst")
	v.SetDefault("input.timestamp_column", "timestamp")
	v.SetDefault("input.timestamp_layout", "")
	v.SetDefault("input.label_columns", []string{})

	// 6h tumbling windows
	v.SetDefault("window.size", "6h")
	v.SetDefault("window.step", "6h")

	v.SetDefault("target.id", "")
	v.SetDefault("target.leader_id", "")

	// Metrics
	v.SetDefault("metrics.top_k", []int{5, 10})
	v.SetDefault("metrics.isolation_threshold", 0.05) // ego density at or below this counts as isolated
	v.SetDefault("metrics.isolation_min_windows", 1)
	v.SetDefault("metrics.diameter_percentile", 0.9)
	v.SetDefault("metrics.label_column", "")
	v.SetDefault("metrics.positive_label", "1")
	v.SetDefault("metrics.factor_columns", []string{})
	v.SetDefault("metrics.pagerank.damping", 0.85)
	v.SetDefault("metrics.pagerank.tolerance", 1e-6)
	v.SetDefault("metrics.pagerank.max_iterations", 100)

	// Community detection chain; singletons is always the last resort
	v.SetDefault("community.methods", []string{"refined_louvain", "local_moving", "singletons"})
	v.SetDefault("community.resolution", 1.0)
	v.SetDefault("community.restarts", 5)
	v.SetDefault("community.max_passes", 50)

	// Burst detection
	v.SetDefault("burst.threshold_method", "percentile")
	v.SetDefault("burst.threshold_value", 95.0)
	v.SetDefault("burst.min_length", 1)
	v.SetDefault("burst.baseline_percentile", 10.0)
	v.SetDefault("burst.onset_threshold", 3.0)
	v.SetDefault("burst.climax_method", "global_max")
	v.SetDefault("burst.climax_window", 3)
	v.SetDefault("burst.anomaly_method", "iqr")
	v.SetDefault("burst.anomaly_k", 1.5)
	v.SetDefault("burst.statistics_window", 3)

	// Dose-response
	v.SetDefault("dose_response.n_bins", 5)
	v.SetDefault("dose_response.min_samples_per_bin", 3)
	v.SetDefault("dose_response.responses", DefaultResponses)
	v.SetDefault("dose_response.split_method", "percentile")
	v.SetDefault("dose_response.split_value", 50.0)
	v.SetDefault("dose_response.min_rows", 10)
	v.SetDefault("dose_response.interactions", true)

	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "scapegoat.db")

	v.SetDefault("output.dir", "results")
	v.SetDefault("output.save_communities", true)
	v.SetDefault("output.save_ranks", true)
}

// BindEnvVars binds the settings most often overridden per invocation.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("input.path", EnvPrefix+"_INPUT_PATH")
	v.BindEnv("output.dir", EnvPrefix+"_OUTPUT_DIR")
	v.BindEnv("target.id", EnvPrefix+"_TARGET_ID")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "scapegoat.db"
	}
	return c.Database.Path
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Input: %s, Window: %s/%s, Target: %q, Workers: %d, Output: %s}",
		c.Input.Path, c.Window.Size, c.Window.Step, c.Target.ID, c.Pipeline.Workers, c.Output.Dir)
}

func newDefaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

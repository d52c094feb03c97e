// Package am ("I am") holds the scapegoat configuration: built-in defaults,
// layered TOML files and SCAPEGOAT_* environment variables merged by viper.
package am

// Config is the complete run configuration.
type Config struct {
	Input        InputConfig        `mapstructure:"input" toml:"input" json:"input" yaml:"input"`
	Window       WindowConfig       `mapstructure:"window" toml:"window" json:"window" yaml:"window"`
	Target       TargetConfig       `mapstructure:"target" toml:"target" json:"target" yaml:"target"`
	Metrics      MetricsConfig      `mapstructure:"metrics" toml:"metrics" json:"metrics" yaml:"metrics"`
	Community    CommunityConfig    `mapstructure:"community" toml:"community" json:"community" yaml:"community"`
	Burst        BurstConfig        `mapstructure:"burst" toml:"burst" json:"burst" yaml:"burst"`
	DoseResponse DoseResponseConfig `mapstructure:"dose_response" toml:"dose_response" json:"dose_response" yaml:"dose_response"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline" toml:"pipeline" json:"pipeline" yaml:"pipeline"`
	Database     DatabaseConfig     `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Output       OutputConfig       `mapstructure:"output" toml:"output" json:"output" yaml:"output"`
}

// InputConfig maps the interaction CSV onto events.
type InputConfig struct {
	Path            string   `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
	SourceColumn    string   `mapstructure:"source_column" toml:"source_column" json:"source_column" yaml:"source_column"`
	TargetColumn    string   `mapstructure:"target_column" toml:"target_column" json:"target_column" yaml:"target_column"`
	TimestampColumn string   `mapstructure:"timestamp_column" toml:"timestamp_column" json:"timestamp_column" yaml:"timestamp_column"`
	TimestampLayout string   `mapstructure:"timestamp_layout" toml:"timestamp_layout" json:"timestamp_layout" yaml:"timestamp_layout"` // Go layout; empty = auto-detect
	LabelColumns    []string `mapstructure:"label_columns" toml:"label_columns" json:"label_columns" yaml:"label_columns"`
}

// WindowConfig sets window width and step, e.g. "6h", "6H", "1d", "30m".
type WindowConfig struct {
	Size string `mapstructure:"size" toml:"size" json:"size" yaml:"size"`
	Step string `mapstructure:"step" toml:"step" json:"step" yaml:"step"`
}

// TargetConfig names the distinguished nodes. Both are optional.
type TargetConfig struct {
	ID       string `mapstructure:"id" toml:"id" json:"id" yaml:"id"`
	LeaderID string `mapstructure:"leader_id" toml:"leader_id" json:"leader_id" yaml:"leader_id"`
}

// MetricsConfig tunes the per-window metric battery.
type MetricsConfig struct {
	TopK                []int          `mapstructure:"top_k" toml:"top_k" json:"top_k" yaml:"top_k"`
	IsolationThreshold  float64        `mapstructure:"isolation_threshold" toml:"isolation_threshold" json:"isolation_threshold" yaml:"isolation_threshold"`
	IsolationMinWindows int            `mapstructure:"isolation_min_windows" toml:"isolation_min_windows" json:"isolation_min_windows" yaml:"isolation_min_windows"`
	DiameterPercentile  float64        `mapstructure:"diameter_percentile" toml:"diameter_percentile" json:"diameter_percentile" yaml:"diameter_percentile"`
	LabelColumn         string         `mapstructure:"label_column" toml:"label_column" json:"label_column" yaml:"label_column"`
	PositiveLabel       string         `mapstructure:"positive_label" toml:"positive_label" json:"positive_label" yaml:"positive_label"`
	FactorColumns       []string       `mapstructure:"factor_columns" toml:"factor_columns" json:"factor_columns" yaml:"factor_columns"`
	PageRank            PageRankConfig `mapstructure:"pagerank" toml:"pagerank" json:"pagerank" yaml:"pagerank"`
}

// PageRankConfig tunes the power iteration.
type PageRankConfig struct {
	Damping       float64 `mapstructure:"damping" toml:"damping" json:"damping" yaml:"damping"`
	Tolerance     float64 `mapstructure:"tolerance" toml:"tolerance" json:"tolerance" yaml:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations" toml:"max_iterations" json:"max_iterations" yaml:"max_iterations"`
}

// CommunityConfig ranks the detection strategies.
type CommunityConfig struct {
	Methods    []string `mapstructure:"methods" toml:"methods" json:"methods" yaml:"methods"`
	Resolution float64  `mapstructure:"resolution" toml:"resolution" json:"resolution" yaml:"resolution"`
	Restarts   int      `mapstructure:"restarts" toml:"restarts" json:"restarts" yaml:"restarts"`
	MaxPasses  int      `mapstructure:"max_passes" toml:"max_passes" json:"max_passes" yaml:"max_passes"`
}

// BurstConfig tunes escalation detection over the activity series.
type BurstConfig struct {
	ThresholdMethod    string  `mapstructure:"threshold_method" toml:"threshold_method" json:"threshold_method" yaml:"threshold_method"`
	ThresholdValue     float64 `mapstructure:"threshold_value" toml:"threshold_value" json:"threshold_value" yaml:"threshold_value"`
	MinLength          int     `mapstructure:"min_length" toml:"min_length" json:"min_length" yaml:"min_length"`
	BaselinePercentile float64 `mapstructure:"baseline_percentile" toml:"baseline_percentile" json:"baseline_percentile" yaml:"baseline_percentile"`
	OnsetThreshold     float64 `mapstructure:"onset_threshold" toml:"onset_threshold" json:"onset_threshold" yaml:"onset_threshold"`
	ClimaxMethod       string  `mapstructure:"climax_method" toml:"climax_method" json:"climax_method" yaml:"climax_method"`
	ClimaxWindow       int     `mapstructure:"climax_window" toml:"climax_window" json:"climax_window" yaml:"climax_window"`
	AnomalyMethod      string  `mapstructure:"anomaly_method" toml:"anomaly_method" json:"anomaly_method" yaml:"anomaly_method"`
	AnomalyK           float64 `mapstructure:"anomaly_k" toml:"anomaly_k" json:"anomaly_k" yaml:"anomaly_k"`
	StatisticsWindow   int     `mapstructure:"statistics_window" toml:"statistics_window" json:"statistics_window" yaml:"statistics_window"`
}

// DoseResponseConfig tunes the factor/response analysis.
type DoseResponseConfig struct {
	NBins            int      `mapstructure:"n_bins" toml:"n_bins" json:"n_bins" yaml:"n_bins"`
	MinSamplesPerBin int      `mapstructure:"min_samples_per_bin" toml:"min_samples_per_bin" json:"min_samples_per_bin" yaml:"min_samples_per_bin"`
	Responses        []string `mapstructure:"responses" toml:"responses" json:"responses" yaml:"responses"`
	SplitMethod      string   `mapstructure:"split_method" toml:"split_method" json:"split_method" yaml:"split_method"`
	SplitValue       float64  `mapstructure:"split_value" toml:"split_value" json:"split_value" yaml:"split_value"`
	MinRows          int      `mapstructure:"min_rows" toml:"min_rows" json:"min_rows" yaml:"min_rows"`
	Interactions     bool     `mapstructure:"interactions" toml:"interactions" json:"interactions" yaml:"interactions"`
}

// PipelineConfig bounds window-level parallelism. 0 means one worker per CPU.
type PipelineConfig struct {
	Workers int `mapstructure:"workers" toml:"workers" json:"workers" yaml:"workers"`
}

// DatabaseConfig configures the SQLite run store.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// OutputConfig selects the result directory and optional per-window files.
type OutputConfig struct {
	Dir             string `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`
	SaveCommunities bool   `mapstructure:"save_communities" toml:"save_communities" json:"save_communities" yaml:"save_communities"`
	SaveRanks       bool   `mapstructure:"save_ranks" toml:"save_ranks" json:"save_ranks" yaml:"save_ranks"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Config file names and locations
const (
	ProjectConfigName = "scapegoat.toml"
	UserConfigDir     = ".scapegoat"
	UserConfigName    = "config.toml"
	SystemConfigPath  = "/etc/scapegoat/config.toml"
	EnvPrefix         = "SCAPEGOAT"
)

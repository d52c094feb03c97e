package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/carlospaes120/scapegoat/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	loadMu        sync.Mutex
)

// ConfigSources records, per flattened key, the file that last set it during
// the most recent merge.
var ConfigSources = map[string]SourceInfo{}

// Load reads the configuration cascade once and caches it.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads defaults plus a single TOML file, ignoring the cascade
// and the environment.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvVars(v)

	SetDefaults(v)

	// system -> user -> project; env vars win over all of them
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for
// scapegoat.toml. Returns "" when none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// CascadeEntry is one file the loader checks.
type CascadeEntry struct {
	Source ConfigSource `json:"source"`
	Path   string       `json:"path"`
	Exists bool         `json:"exists"`
}

// Cascade lists the config files in precedence order (lowest first).
func Cascade() []CascadeEntry {
	entries := []CascadeEntry{{Source: SourceSystem, Path: SystemConfigPath}}
	if home, err := os.UserHomeDir(); err == nil {
		entries = append(entries, CascadeEntry{
			Source: SourceUser,
			Path:   filepath.Join(home, UserConfigDir, UserConfigName),
		})
	}
	if project := findProjectConfig(); project != "" {
		entries = append(entries, CascadeEntry{Source: SourceProject, Path: project})
	}
	for i := range entries {
		_, err := os.Stat(entries[i].Path)
		entries[i].Exists = err == nil
	}
	return entries
}

// mergeConfigFiles merges every existing cascade file into v and records
// which file set each key.
func mergeConfigFiles(v *viper.Viper) {
	ConfigSources = map[string]SourceInfo{}
	for _, entry := range Cascade() {
		if !entry.Exists {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(entry.Path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}
		// merged maps rank below env vars, unlike v.Set
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: entry.Source, Path: entry.Path}
		}
	}
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return initViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return initViper().GetString(key)
}

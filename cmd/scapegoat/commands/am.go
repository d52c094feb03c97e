package commands

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/display"
	"github.com/carlospaes120/scapegoat/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage scapegoat configuration",
	Long: `am - Manage scapegoat configuration ("I am")

Display and manage scapegoat configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (SCAPEGOAT_* prefix)
3. Project config (./scapegoat.toml, searched upward)
4. User config (~/.scapegoat/config.toml)
5. System config (/etc/scapegoat/config.toml)
6. Default values

Examples:
  scapegoat am show                    # Show current configuration
  scapegoat am show --format json      # Show configuration in JSON format
  scapegoat am get window.size         # Get specific config value
  scapegoat am validate                # Validate current configuration
  scapegoat am init                    # Write the defaults to ./scapegoat.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current scapegoat configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., window.size, metrics.isolation_threshold)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current scapegoat configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which settings each one supplies.`,
	RunE: runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long:  "Write the built-in defaults as TOML to path (default ./scapegoat.toml), keeping backups of an existing file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := configFormat
	if display.ShouldOutputJSON(cmd) {
		format = "json"
	}
	out, err := marshalConfig(&cfg, format)
	if err != nil {
		return err
	}
	fmt.Fprint(display.Stdout, out)
	return nil
}

// marshalConfig renders cfg as toml, json or yaml.
func marshalConfig(cfg *am.Config, format string) (string, error) {
	switch format {
	case "json":
		data, err := display.MarshalJSON(cfg)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to JSON")
		}
		return string(data) + "\n", nil

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to YAML")
		}
		return "# scapegoat configuration\n" + string(data), nil

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to TOML")
		}
		return "# scapegoat configuration\n" + string(data), nil

	default:
		return "", errors.WithHint(
			errors.NewInvalidRequestError("unsupported format: %s", format),
			"supported: toml, json, yaml",
		)
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}

	value := am.Get(key)
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{key: value})
	}
	fmt.Fprintln(display.Stdout, value)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigName
	if len(args) == 1 {
		path = args[0]
	}
	if err := am.Save(am.Default(), path); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote defaults to %s", path)
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(intro)
	}

	fmt.Fprintln(display.Stdout, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(display.Stdout, "  [DEFAULT]  Built-in defaults")
	for _, e := range intro.Cascade {
		state := "missing"
		if e.Exists {
			state = "found"
		}
		fmt.Fprintf(display.Stdout, "  [%-8s] %s (%s)\n", e.Source, e.Path, state)
	}
	fmt.Fprintf(display.Stdout, "  [ENV]      %s_* environment variables\n\n", am.EnvPrefix)

	// group settings by the file or source that supplied them
	type group struct {
		source   am.ConfigSource
		path     string
		settings []am.SettingInfo
	}
	groups := make(map[string]*group)
	for _, s := range intro.Settings {
		key := string(s.Source) + "|" + s.SourcePath
		if s.Source == am.SourceEnvironment {
			key = string(s.Source)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{source: s.Source, path: s.SourcePath}
			groups[key] = g
		}
		g.settings = append(g.settings, s)
	}

	order := map[am.ConfigSource]int{
		am.SourceDefault:     0,
		am.SourceSystem:      1,
		am.SourceUser:        2,
		am.SourceProject:     3,
		am.SourceEnvironment: 4,
	}
	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if order[sorted[i].source] != order[sorted[j].source] {
			return order[sorted[i].source] < order[sorted[j].source]
		}
		return sorted[i].path < sorted[j].path
	})

	fmt.Fprintln(display.Stdout, "Active configuration:")
	for _, g := range sorted {
		switch g.source {
		case am.SourceDefault:
			fmt.Fprintf(display.Stdout, "\n%s: %d settings\n", g.source, len(g.settings))
		case am.SourceEnvironment:
			fmt.Fprintf(display.Stdout, "\n%s: %d settings from environment variables\n", g.source, len(g.settings))
		default:
			fmt.Fprintf(display.Stdout, "\n%s: %d settings from %s\n", g.source, len(g.settings), g.path)
		}
		for _, s := range g.settings {
			valueStr := fmt.Sprintf("%v", s.Value)
			if len(valueStr) > 50 {
				valueStr = valueStr[:47] + "..."
			}
			fmt.Fprintf(display.Stdout, "  %s = %s\n", s.Key, valueStr)
		}
	}
	return nil
}

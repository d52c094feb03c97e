package commands

import (
	"github.com/spf13/cobra"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/errors"
)

// configPath is the root --config flag, empty when the cascade is used.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// loadConfig reads --config when given, else the cascade. The result is a
// copy callers may modify.
func loadConfig(cmd *cobra.Command) (am.Config, error) {
	var (
		cfg *am.Config
		err error
	)
	if path := configPath(cmd); path != "" {
		cfg, err = am.LoadFromFile(path)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return am.Config{}, errors.Wrap(err, "failed to load config")
	}
	return *cfg, nil
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

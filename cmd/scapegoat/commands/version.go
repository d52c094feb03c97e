package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carlospaes120/scapegoat/display"
	"github.com/carlospaes120/scapegoat/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show scapegoat version information",
	Long:  `Display version, engine version, build time, commit hash, and platform information for the scapegoat binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(info)
		}
		fmt.Fprintln(display.Stdout, info.String())
		fmt.Fprintf(display.Stdout, "Platform: %s\n", info.Platform)
		fmt.Fprintf(display.Stdout, "Go: %s\n", info.GoVersion)
		return nil
	},
}

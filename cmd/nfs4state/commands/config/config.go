// Package config implements the configuration inspection commands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration inspection.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Inspect the nfs4state configuration.

Examples:
  # Show the effective configuration as YAML
  nfs4state config show

  # Check a configuration file without starting the server
  nfs4state config validate --config /etc/nfs4state/config.yaml`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
}

// Package grace implements the grace period commands.
package grace

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for grace period management.
var Cmd = &cobra.Command{
	Use:   "grace",
	Short: "Manage the reclaim grace period",
	Long: `Inspect and end the grace period that follows a server restart.

While the grace period is active, clients known before the restart may
reclaim state and other clients may not create any.

Examples:
  # Show grace period status
  nfs4state grace status

  # Force-end the grace period
  nfs4state grace end`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(endCmd)
}

// Package client implements the NFSv4.1 client and session commands.
package client

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for client management.
var Cmd = &cobra.Command{
	Use:   "client",
	Short: "NFSv4.1 client management",
	Long: `Inspect and evict NFSv4.1 clients registered with a running server.

Client ids are the 16-digit hex values shown by "client list".

Examples:
  # List clients
  nfs4state client list

  # Show one client as JSON
  nfs4state client get 65f0a1b200000001 -o json

  # Evict a client without confirmation
  nfs4state client evict 65f0a1b200000001 --force`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(evictCmd)
	Cmd.AddCommand(clientSessionsCmd)
}

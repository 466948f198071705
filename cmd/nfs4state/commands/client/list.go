package client

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	"github.com/marmos91/nfs4state/internal/cli/output"
	"github.com/marmos91/nfs4state/internal/cli/timeutil"
	"github.com/marmos91/nfs4state/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clients",
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <client-id>",
	Short: "Show one client",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// ClientList renders clients as a table.
type ClientList []apiclient.ClientInfo

// Headers implements output.TableRenderer.
func (cl ClientList) Headers() []string {
	return []string{"CLIENT_ID", "OWNER", "ADDRESS", "CONFIRMED", "LEASE", "SESSIONS", "STATES"}
}

// Rows implements output.TableRenderer.
func (cl ClientList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			c.ClientIDHex,
			c.Owner,
			cmdutil.EmptyOr(c.Addr, "-"),
			cmdutil.BoolToYesNo(c.Confirmed),
			timeutil.FormatDuration(c.LeaseRemaining),
			strconv.Itoa(c.Sessions),
			strconv.Itoa(c.States),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	clients, err := cmdutil.GetClient().ListClients(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	return cmdutil.PrintOutput(os.Stdout, clients, len(clients) == 0, "No registered clients.", ClientList(clients))
}

func clientDetail(c *apiclient.ClientInfo) output.KeyValues {
	return output.KeyValues{
		{"Client ID", c.ClientIDHex},
		{"Owner", c.Owner},
		{"Principal", cmdutil.EmptyOr(c.Principal, "-")},
		{"Address", cmdutil.EmptyOr(c.Addr, "-")},
		{"Confirmed", cmdutil.BoolToYesNo(c.Confirmed)},
		{"Created", c.CreatedAt.Local().Format(timeutil.LocalTimeFormat)},
		{"Lease remaining", timeutil.FormatDuration(c.LeaseRemaining)},
		{"Sessions", strconv.Itoa(c.Sessions)},
		{"States", strconv.Itoa(c.States)},
		{"Reclaim complete", cmdutil.BoolToYesNo(c.ReclaimComplete)},
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetClient().GetClient(cmd.Context(), args[0])
	if err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("client %s not found", args[0])
		}
		return fmt.Errorf("failed to get client: %w", err)
	}
	return cmdutil.PrintOutput(os.Stdout, c, false, "", clientDetail(c))
}

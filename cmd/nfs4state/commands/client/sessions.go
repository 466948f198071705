package client

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	"github.com/marmos91/nfs4state/pkg/apiclient"
)

var clientSessionsCmd = &cobra.Command{
	Use:   "sessions <client-id>",
	Short: "List the sessions of a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := cmdutil.GetClient().ListClientSessions(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		return printSessions(sessions)
	},
}

// SessionCmd is the top-level session command.
var SessionCmd = &cobra.Command{
	Use:   "session",
	Short: "NFSv4.1 session inspection",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all live sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := cmdutil.GetClient().ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		return printSessions(sessions)
	},
}

func init() {
	SessionCmd.AddCommand(sessionListCmd)
}

// SessionList renders sessions as a table.
type SessionList []apiclient.SessionInfo

// Headers implements output.TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"SESSION_ID", "CLIENT_ID", "SLOTS", "IN_USE", "TARGET_HIGHEST"}
}

// Rows implements output.TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.SessionID,
			s.ClientIDHex,
			strconv.FormatUint(uint64(s.Slots), 10),
			strconv.Itoa(s.SlotsInUse),
			strconv.FormatUint(uint64(s.TargetHighestSlot), 10),
		})
	}
	return rows
}

func printSessions(sessions []apiclient.SessionInfo) error {
	return cmdutil.PrintOutput(os.Stdout, sessions, len(sessions) == 0, "No live sessions.", SessionList(sessions))
}

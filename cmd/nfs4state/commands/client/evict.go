package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	"github.com/marmos91/nfs4state/internal/cli/prompt"
)

var forceEvict bool

var evictCmd = &cobra.Command{
	Use:   "evict <clientid>",
	Short: "Revoke a client's lease and release its state",
	Long: `Revoke the lease of an NFSv4.1 client.

The clientid is the 16-digit hex value shown by "nfs4state client list".
Eviction destroys the client's sessions and frees every stateid it holds,
the same cleanup the lease reaper performs. The client sees
STALE_CLIENTID or BADSESSION on its next request and must start over
with EXCHANGE_ID and CREATE_SESSION.

Examples:
  nfs4state client evict 65f0a1b200000001
  nfs4state client evict 65f0a1b200000001 -f`,
	Args: cobra.ExactArgs(1),
	RunE: runEvict,
}

func init() {
	evictCmd.Flags().BoolVarP(&forceEvict, "force", "f", false, "Do not ask for confirmation")
}

// parseClientID normalizes a hex clientid, with or without a 0x prefix, to
// the 16-digit form the API reports.
func parseClientID(s string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	id, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return "", fmt.Errorf("invalid clientid %q: expected a 64-bit hex value", s)
	}
	return fmt.Sprintf("%016x", id), nil
}

func runEvict(cmd *cobra.Command, args []string) error {
	clientID, err := parseClientID(args[0])
	if err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Revoke the lease of client %s and drop its sessions and stateids?", clientID),
		forceEvict,
	)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	if err := cmdutil.GetClient().EvictClient(cmd.Context(), clientID); err != nil {
		return fmt.Errorf("evict client %s: %w", clientID, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Lease of client %s revoked", clientID))
	return nil
}

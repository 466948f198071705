package grace

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	"github.com/marmos91/nfs4state/internal/cli/output"
	"github.com/marmos91/nfs4state/internal/cli/timeutil"
	"github.com/marmos91/nfs4state/pkg/apiclient"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show grace period status",
	RunE:  runGraceStatus,
}

func graceDetail(resp *apiclient.GraceStatusResponse) output.KeyValues {
	if !resp.Active {
		return output.KeyValues{
			{"Active", "no"},
			{"Message", resp.Message},
		}
	}

	remaining := time.Duration(resp.RemainingSeconds * float64(time.Second)).Round(time.Second)
	return output.KeyValues{
		{"Active", "yes"},
		{"Remaining", timeutil.FormatDuration(remaining.String())},
		{"Total duration", resp.TotalDuration},
		{"Started", timeutil.FormatTime(resp.StartedAt)},
		{"Reclaimed", fmt.Sprintf("%d / %d", resp.ReclaimedClients, resp.ExpectedClients)},
	}
}

func runGraceStatus(cmd *cobra.Command, args []string) error {
	resp, err := cmdutil.GetClient().GraceStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get grace status: %w", err)
	}
	return cmdutil.PrintOutput(os.Stdout, resp, false, "", graceDetail(resp))
}

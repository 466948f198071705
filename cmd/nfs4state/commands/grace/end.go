package grace

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	"github.com/marmos91/nfs4state/pkg/apiclient"
)

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "Force-end the grace period",
	Long: `End the grace period immediately. Clients that have not reclaimed
lose the chance to, and new state may be created at once.`,
	RunE: runGraceEnd,
}

func runGraceEnd(cmd *cobra.Command, args []string) error {
	if err := cmdutil.GetClient().ForceEndGrace(cmd.Context()); err != nil {
		if apiclient.IsConflict(err) {
			return fmt.Errorf("no grace period active")
		}
		return fmt.Errorf("failed to end grace period: %w", err)
	}

	cmdutil.PrintSuccess("Grace period ended")
	return nil
}

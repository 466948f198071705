// Package commands implements the nfs4state CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4state/cmd/nfs4state/cmdutil"
	clientcmd "github.com/marmos91/nfs4state/cmd/nfs4state/commands/client"
	configcmd "github.com/marmos91/nfs4state/cmd/nfs4state/commands/config"
	gracecmd "github.com/marmos91/nfs4state/cmd/nfs4state/commands/grace"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Build is reported by the version command and the telemetry resource.
var Build = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

var rootCmd = &cobra.Command{
	Use:   "nfs4state",
	Short: "NFSv4.1 session and state server",
	Long: `nfs4state runs the NFSv4.1 client identity, session and stateid
registry, and manages a running instance through its admin API.

Server commands (start, init, config) read the configuration file.
Remote commands (client, session, grace) talk to the admin API given by
--server or NFS4STATE_SERVER.

Use "nfs4state [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cmdutil.Flags.ConfigFile, "config", "", "config file (default: $XDG_CONFIG_HOME/nfs4state/config.yaml)")
	flags.StringVar(&cmdutil.Flags.ServerURL, "server", "", "admin API URL (default: "+cmdutil.DefaultServerURL+")")
	flags.StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
	flags.BoolVar(&cmdutil.Flags.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(clientcmd.Cmd)
	rootCmd.AddCommand(clientcmd.SessionCmd)
	rootCmd.AddCommand(gracecmd.Cmd)
}

// Command nfs4state serves the NFSv4.1 client, session and stateid
// registry and administers a running instance over its HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/nfs4state/cmd/nfs4state/commands"
)

// Set with -ldflags "-X main.version=...".
var version, commit, buildDate = "dev", "none", "unknown"

func main() {
	commands.Build = commands.BuildInfo{Version: version, Commit: commit, Date: buildDate}
	os.Exit(run())
}

func run() int {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nfs4state: %v\n", err)
		return 1
	}
	return 0
}

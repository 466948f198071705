// Package cmdutil provides shared utilities for nfs4state commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/nfs4state/internal/cli/output"
	"github.com/marmos91/nfs4state/internal/cli/prompt"
	"github.com/marmos91/nfs4state/pkg/apiclient"
)

// DefaultServerURL is the admin API address used when --server is unset.
const DefaultServerURL = "http://localhost:8080"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	ServerURL  string
	Output     string
	NoColor    bool
}

// GetClient returns an API client for --server, or NFS4STATE_SERVER, or
// DefaultServerURL.
func GetClient() *apiclient.Client {
	url := Flags.ServerURL
	if url == "" {
		url = os.Getenv("NFS4STATE_SERVER")
	}
	if url == "" {
		url = DefaultServerURL
	}
	return apiclient.New(url)
}

// GetOutputFormatParsed returns the parsed --output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data as JSON, YAML or a table. In table format,
// emptyMsg is printed instead when isEmpty is set.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	if format != output.FormatTable {
		return output.Render(w, format, data)
	}
	if isEmpty {
		_, _ = fmt.Fprintln(w, emptyMsg)
		return nil
	}
	return output.PrintTable(w, tableRenderer)
}

// PrintSuccess prints msg in green when the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, !Flags.NoColor).Success(msg)
}

// BoolToYesNo converts a boolean to "yes" or "no".
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns value, or fallback when value is empty.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// HandleAbort turns a Ctrl+C abort into a printed message and a nil error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

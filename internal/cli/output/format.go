// Package output renders admin CLI results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses s into a Format. The empty string selects table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Render writes data in format. Table output requires data to implement
// TableRenderer.
func Render(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, data)
	case FormatYAML:
		return PrintYAML(w, data)
	case FormatTable:
		r, ok := data.(TableRenderer)
		if !ok {
			return fmt.Errorf("%T cannot be rendered as a table", data)
		}
		return PrintTable(w, r)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// Printer writes one-line status messages, colored when enabled.
type Printer struct {
	out   io.Writer
	color bool
}

func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

// Success prints msg in green.
func (p *Printer) Success(msg string) { p.print("32", msg) }

// Warning prints msg in yellow.
func (p *Printer) Warning(msg string) { p.print("33", msg) }

func (p *Printer) print(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}

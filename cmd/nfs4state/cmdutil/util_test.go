package cmdutil

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/cli/prompt"
)

type testTableRenderer struct {
	headers []string
	rows    [][]string
}

func (t testTableRenderer) Headers() []string { return t.headers }
func (t testTableRenderer) Rows() [][]string  { return t.rows }

func withOutput(t *testing.T, format string) {
	t.Helper()
	prev := Flags.Output
	Flags.Output = format
	t.Cleanup(func() { Flags.Output = prev })
}

func TestPrintOutput(t *testing.T) {
	data := []string{"foo", "bar"}
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}, {"bar"}}}

	tests := []struct {
		format  string
		isEmpty bool
		want    []string
	}{
		{format: "json", want: []string{`"foo"`, `"bar"`}},
		{format: "yaml", want: []string{"- foo", "- bar"}},
		{format: "table", want: []string{"NAME", "foo", "bar"}},
		{format: "table", isEmpty: true, want: []string{"No items"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			withOutput(t, tt.format)

			var buf bytes.Buffer
			require.NoError(t, PrintOutput(&buf, data, tt.isEmpty, "No items", renderer))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrintOutput_InvalidFormat(t *testing.T) {
	withOutput(t, "xml")
	err := PrintOutput(&bytes.Buffer{}, nil, true, "", testTableRenderer{})
	assert.Error(t, err)
}

func TestGetClient_ServerSources(t *testing.T) {
	prev := Flags.ServerURL
	t.Cleanup(func() { Flags.ServerURL = prev })

	Flags.ServerURL = ""
	t.Setenv("NFS4STATE_SERVER", "")
	assert.NotNil(t, GetClient())

	Flags.ServerURL = "http://example:9000"
	assert.NotNil(t, GetClient())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "yes", BoolToYesNo(true))
	assert.Equal(t, "no", BoolToYesNo(false))
	assert.Equal(t, "-", EmptyOr("", "-"))
	assert.Equal(t, "x", EmptyOr("x", "-"))

	assert.NoError(t, HandleAbort(prompt.ErrAborted))
	other := errors.New("boom")
	assert.Equal(t, other, HandleAbort(other))
}

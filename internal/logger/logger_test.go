package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the
// previous configuration on cleanup.
func captureOutput(t *testing.T, fmtName string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	origOut, origColor, origFormat := output, useColor, format
	mu.Unlock()
	origLevel := level.Level()

	InitWithWriter(buf, "INFO", fmtName, false)

	t.Cleanup(func() {
		mu.Lock()
		output, useColor, format = origOut, origColor, origFormat
		mu.Unlock()
		level.Set(origLevel)
		rebuild()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf := captureOutput(t, "text")
		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("WarnLevelHidesDebugAndInfo", func(t *testing.T) {
		buf := captureOutput(t, "text")
		SetLevel("warn")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "[WARN] warn message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		captureOutput(t, "text")
		SetLevel("ERROR")
		SetLevel("LOUD")
		assert.Equal(t, slog.LevelError, level.Level())
	})
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t, "text")

	Info("client added", KeyClientID, uint64(42), KeyOwner, "linux client")

	line := buf.String()
	assert.Contains(t, line, "[INFO] client added")
	assert.Contains(t, line, "client_id=42")
	assert.Contains(t, line, `owner="linux client"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t, "json")

	Warn("slot busy", KeySlot, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "slot busy", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, float64(3), rec[KeySlot])
}

func TestContextFields(t *testing.T) {
	buf := captureOutput(t, "json")
	SetLevel("DEBUG")

	lc := NewLogContext("10.0.0.1:700").
		WithOperation("SEQUENCE").
		WithSession(7, "abcd")
	ctx := WithContext(context.Background(), lc)

	DebugCtx(ctx, "sequence ok", KeySeqID, 5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "SEQUENCE", rec[KeyOperation])
	assert.Equal(t, "10.0.0.1:700", rec[KeyClientAddr])
	assert.Equal(t, float64(7), rec[KeyClientID])
	assert.Equal(t, "abcd", rec[KeySessionID])
	assert.Equal(t, float64(5), rec[KeySeqID])
}

func TestLogContextCloneIsIndependent(t *testing.T) {
	lc := NewLogContext("a")
	cp := lc.WithOperation("EXCHANGE_ID")

	assert.Empty(t, lc.Operation)
	assert.Equal(t, "EXCHANGE_ID", cp.Operation)
	assert.Nil(t, (*LogContext)(nil).Clone())
	assert.Nil(t, FromContext(context.Background()))
}

func TestColorTextHandlerGroups(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, false)
	l := slog.New(h).With("component", "reaper").WithGroup("lease")

	l.Info("expired", "client", 9)

	out := buf.String()
	assert.Contains(t, out, "component=reaper")
	assert.Contains(t, out, "lease.client=9")
}

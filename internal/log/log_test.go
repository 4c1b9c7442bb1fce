package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)

	l.Debug("hidden")
	l.Info("shown", "devices", 2)
	l.Error("failed", errors.New("boom"), "device", "Magic Mouse")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INFO] shown devices=2")
	assert.Contains(t, lines[1], "[ERROR] failed err=boom device=Magic Mouse")

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestLogger_WithAndOddPairs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).With("component", "recur")

	l.Debug("step", "k", 3, 42, "ignored", "dangling")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "step component=recur k=3")
	assert.NotContains(t, line, "dangling")
	assert.NotContains(t, line, "ignored")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("nothing", errors.New("x"))
	})
}

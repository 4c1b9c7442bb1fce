package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestAgendaCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -10).Add(9 * time.Hour)
	body := "timezone: UTC\n" +
		"events:\n" +
		"  - id: standup\n" +
		"    title: Standup\n" +
		"    start: " + start.Format(time.RFC3339) + "\n" +
		"    end: " + start.Add(15*time.Minute).Format(time.RFC3339) + "\n" +
		"    pattern: daily\n" +
		"  - id: retro\n" +
		"    title: Retro\n" +
		"    start: " + start.Format(time.RFC3339) + "\n" +
		"    end: " + start.Add(time.Hour).Format(time.RFC3339) + "\n" +
		"    pattern: monthly_last_dow\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := run(t, "--config", path, "agenda", "--days", "2", "--backfill", "0")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Standup"))
	assert.Contains(t, out, "skipped config/retro")
}

func TestBatteryCommand_FirstRunWritesConfig(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("mock battery reader is only the default on linux without a fuel gauge")
	}
	path := filepath.Join(t.TempDir(), "bdbm", "config.yaml")

	out, err := run(t, "--config", path, "-w", "10", "--table")
	require.NoError(t, err)
	assert.Contains(t, out, "DEVICE")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAgendaCacheTTL_FollowsRefreshSchedule(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 7, 0, 0, time.UTC)

	assert.Equal(t, 16*time.Minute, agendaCacheTTL("*/15 * * * *", now))
	assert.Equal(t, time.Hour+time.Minute, agendaCacheTTL("@every 1h", now))
	assert.Equal(t, defaultAgendaCacheTTL, agendaCacheTTL("not a schedule", now))
}

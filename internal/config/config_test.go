package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdbm/internal/recur"
)

func TestLoad_FirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWarnLevel, cfg.WarnLevel)
	assert.Equal(t, recur.DefaultMaxIterations, cfg.Engine.MaxIterations)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_ParsesEventsAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: Asia/Seoul
warn_level: 150
events:
  - id: payroll
    title: Payroll
    start: 2024-01-05T09:00:00Z
    end: 2024-01-05T10:00:00Z
    pattern: Monthly
    skip_weekend_days: true
    until: 2024-12-31T00:00:00Z
    exdates:
      - 2024-02-05T09:00:00Z
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultWarnLevel, cfg.WarnLevel, "out-of-range warn level is reset")
	assert.Equal(t, DefaultHorizonDays, cfg.HorizonDays)
	require.Len(t, cfg.Events, 1)

	ev := cfg.ModelEvents()[0]
	assert.Equal(t, "payroll", ev.UID)
	assert.Equal(t, ConfigSourceID, ev.SourceID)
	assert.Equal(t, recur.Monthly, ev.Rule.Pattern)
	assert.True(t, ev.Rule.SkipWeekendDays)
	require.NotNil(t, ev.Rule.Until)
	assert.Equal(t, 2024, ev.Rule.Until.Year())
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	assert.True(t, ev.Excluded(time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BDBM_WARN_LEVEL", "40")
	t.Setenv("BDBM_LISTEN", " :9090 ")
	t.Setenv("BDBM_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 40, cfg.WarnLevel)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "work", Name: "Work", URL: "https://example.com/work.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ICS, loaded.ICS)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "admin", loaded.BasicAuth.Username)
}

func TestEventConfig_UIDFallbackIsStable(t *testing.T) {
	e := EventConfig{Title: "Gym", Start: time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)}

	first := e.UID()
	assert.Len(t, first, 36)
	assert.Equal(t, first, e.UID())

	e.Title = "Pool"
	assert.NotEqual(t, first, e.UID())
}

func TestLocation_UnknownFallsBackToLocal(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}
	assert.Equal(t, time.Local, cfg.Location())
}

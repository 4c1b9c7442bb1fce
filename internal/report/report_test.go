package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bdbm/internal/battery"
	"bdbm/internal/model"
)

func TestBatteryLines(t *testing.T) {
	got := BatteryLines([]battery.Status{
		{Device: "Magic Mouse", Percent: 17},
		{Device: "Magic Keyboard", Percent: 71},
	})
	assert.Equal(t, "Magic Mouse      17%\nMagic Keyboard   71%\n", got)

	assert.Equal(t, NoDevices+"\n", BatteryLines(nil))
}

func TestBatteryTable(t *testing.T) {
	got := BatteryTable([]battery.Status{
		{Device: "PiSugar", Percent: 88, VoltageMv: 4012},
		{Device: "Magic Mouse", Percent: 9},
	}, 25)

	assert.Contains(t, got, "DEVICE")
	assert.Contains(t, got, "PiSugar")
	assert.Contains(t, got, "4.01V")
	assert.Contains(t, got, "9%")
	assert.Equal(t, NoDevices+"\n", BatteryTable(nil, 25))
}

func TestAgenda(t *testing.T) {
	day := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	got := Agenda([]model.Occurrence{
		{SourceID: "config", Summary: "Standup", Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 15*time.Minute)},
		{SourceID: "work", Summary: "Holiday", AllDay: true, Start: day, End: day.AddDate(0, 0, 1)},
	})

	lines := strings.Split(got, "\n")
	assert.Contains(t, got, "Tue 2024-01-09")
	assert.Contains(t, got, "09:00–09:15")
	assert.Contains(t, got, "all day")
	assert.Greater(t, len(lines), 4)
	assert.Equal(t, "No events in range.\n", Agenda(nil))
}

func TestSpan(t *testing.T) {
	a := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-08 → 2024-01-15", Span(a, a.AddDate(0, 0, 7)))
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdbm/internal/recur"
)

func TestNewOccurrence(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC)
	ev := Event{
		SourceID: "config",
		UID:      "standup",
		Summary:  "Standup",
		Location: "Room 4",
	}

	occ := NewOccurrence(ev, recur.Occurrence{Start: start, End: start.Add(15 * time.Minute)}, seoul)

	assert.Equal(t, "standup", occ.UID)
	assert.Equal(t, "Room 4", occ.Location)
	assert.Equal(t, seoul, occ.Start.Location())
	assert.Equal(t, 9, occ.Start.Hour())
	assert.Equal(t, "2024-03-01T09:30:00+09:00", occ.InstanceKey)
	assert.Equal(t, 15*time.Minute, occ.End.Sub(occ.Start))
}

func TestEvent_Excluded(t *testing.T) {
	ex := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	ev := Event{ExDates: []time.Time{ex}}

	assert.True(t, ev.Excluded(ex.In(time.FixedZone("X", 3600))))
	assert.False(t, ev.Excluded(ex.Add(time.Minute)))
}

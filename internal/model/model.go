package model

import (
	"time"

	"bdbm/internal/recur"
)

// Event is a calendar entry before recurrence expansion. It comes either from
// the config file or from an ICS feed.
type Event struct {
	SourceID string // "config" or the ICS source ID
	UID      string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End of the first occurrence, in the event's own timezone.
	Start time.Time
	End   time.Time

	Rule recur.Rule

	// ExDates removes individual occurrences by exact start time.
	ExDates []time.Time
}

// Excluded reports whether an occurrence starting at t was removed by EXDATE.
func (e Event) Excluded(t time.Time) bool {
	for _, ex := range e.ExDates {
		if ex.Equal(t) {
			return true
		}
	}
	return false
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string
	UID      string

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event within its UID, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// NewOccurrence copies the descriptive fields of ev onto one expanded instance
// and converts it into loc.
func NewOccurrence(ev Event, occ recur.Occurrence, loc *time.Location) Occurrence {
	if loc == nil {
		loc = time.Local
	}
	start := occ.Start.In(loc)
	return Occurrence{
		SourceID:    ev.SourceID,
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         occ.End.In(loc),
	}
}

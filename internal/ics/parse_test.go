package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdbm/internal/model"
	"bdbm/internal/recur"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//bdbm//test//EN
BEGIN:VEVENT
UID:standup@example.com
SUMMARY:Standup
LOCATION:Room 4
DTSTART:20240108T090000Z
DTEND:20240108T091500Z
RRULE:FREQ=DAILY;COUNT=10
EXDATE:20240110T090000Z,20240111T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
RECURRENCE-ID:20240112T090000Z
SUMMARY:Standup (moved)
DTSTART:20240112T100000Z
DTEND:20240112T101500Z
END:VEVENT
BEGIN:VEVENT
UID:holiday@example.com
SUMMARY:Holiday
DTSTART;VALUE=DATE:20240101
END:VEVENT
BEGIN:VEVENT
UID:review@example.com
SUMMARY:Review
DTSTART:20240109T150000Z
DTEND:20240109T160000Z
RRULE:FREQ=MONTHLY;BYDAY=2TU
END:VEVENT
BEGIN:VEVENT
UID:odd@example.com
SUMMARY:Weekday lunch
DTSTART:20240108T120000Z
RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR
END:VEVENT
BEGIN:VEVENT
SUMMARY:No uid
DTSTART:20240108T120000Z
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func byUIDAndSummary(events []model.Event, uid, summary string) (model.Event, bool) {
	for _, e := range events {
		if e.UID == uid && e.Summary == summary {
			return e, true
		}
	}
	return model.Event{}, false
}

func TestParseFeed(t *testing.T) {
	src := Source{ID: "work", URL: "https://example.com/cal.ics?token=secret"}

	events, err := ParseFeed(src, crlf(feed), nil)
	require.NoError(t, err)
	require.Len(t, events, 4, "unsupported rule and missing UID are skipped")

	standup, ok := byUIDAndSummary(events, "standup@example.com", "Standup")
	require.True(t, ok)
	assert.Equal(t, "work", standup.SourceID)
	assert.Equal(t, recur.Daily, standup.Rule.Pattern)
	require.NotNil(t, standup.Rule.Until, "COUNT=10 resolves to the tenth instance")
	assert.Equal(t, time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC), standup.Rule.Until.UTC())
	assert.Equal(t, 15*time.Minute, standup.End.Sub(standup.Start))
	assert.True(t, standup.Excluded(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)))
	assert.True(t, standup.Excluded(time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)))
	assert.True(t, standup.Excluded(time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)), "overridden instance")

	moved, ok := byUIDAndSummary(events, "standup@example.com", "Standup (moved)")
	require.True(t, ok)
	assert.Equal(t, recur.Once, moved.Rule.Pattern)
	assert.Equal(t, 10, moved.Start.UTC().Hour())

	holiday, ok := byUIDAndSummary(events, "holiday@example.com", "Holiday")
	require.True(t, ok)
	assert.True(t, holiday.AllDay)
	assert.Equal(t, recur.Once, holiday.Rule.Pattern)
	assert.Equal(t, 24*time.Hour, holiday.End.Sub(holiday.Start))

	review, ok := byUIDAndSummary(events, "review@example.com", "Review")
	require.True(t, ok)
	assert.Equal(t, recur.MonthlyByWeekday, review.Rule.Pattern)
}

func TestParseFeed_Errors(t *testing.T) {
	_, err := ParseFeed(Source{ID: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestParseICSTime(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	got, err := parseICSTime("20240301T093000", seoul)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC), got.UTC())

	got, err = parseICSTime("20240301T093000Z", seoul)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	got, err = parseICSTime(" 20240301 ", seoul)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Day())

	_, err = parseICSTime("", seoul)
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/cal.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

func TestSeriesExDates_DoesNotShareBacking(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC) }

	exdates := make([]time.Time, 1, 4)
	exdates[0] = d(10)
	backing := exdates[:cap(exdates)]

	ev := vevent{UID: "standup", ExDates: exdates}
	merged := seriesExDates(ev, map[string][]time.Time{"standup": {d(12), d(15)}})

	assert.Equal(t, []time.Time{d(10), d(12), d(15)}, merged)
	assert.True(t, backing[1].IsZero(), "spare capacity of the parsed EXDATEs stays untouched")
	assert.Equal(t, []time.Time{d(10)}, seriesExDates(ev, nil))
}

package ics

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "bdbm/internal/log"
	"bdbm/internal/model"
	"bdbm/internal/recur"
)

var (
	ErrEmptyBody  = errors.New("ics: empty body")
	ErrMissingUID = errors.New("ics: missing UID")
)

// vevent is the raw shape of a VEVENT before recurrence mapping.
type vevent struct {
	UID string

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, set on overridden instances
}

// ParseFeed parses one ICS payload into events ready for expansion.
//
//   - VTIMEZONE/TZID handling is delegated to golang-ical.
//   - RRULE values are mapped with RuleFromRRULE; events whose rule has no
//     equivalent pattern are logged and skipped.
//   - A VEVENT carrying RECURRENCE-ID replaces one instance of its series: it
//     becomes a standalone "once" event and its original start is added to the
//     series' exdates.
func ParseFeed(src Source, body []byte, logger *appLog.Logger) ([]model.Event, error) {
	if logger == nil {
		logger = appLog.Discard()
	}
	logger = logger.With("component", "ics", "id", src.ID)

	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		logger.Error("ics parse failed", err, "url", redactURL(src.URL))
		return nil, err
	}

	raws := make([]vevent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			logger.Error("ics vevent parse failed", perr)
			continue
		}
		raws = append(raws, ev)
	}

	overrides := make(map[string][]time.Time)
	for _, ev := range raws {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], *ev.Recurrence)
		}
	}

	events := make([]model.Event, 0, len(raws))
	for _, ev := range raws {
		out := model.Event{
			SourceID:    src.ID,
			UID:         ev.UID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			AllDay:      ev.AllDay,
			Start:       ev.Start,
			End:         ev.End,
			Rule:        recur.Rule{Pattern: recur.Once},
		}

		switch {
		case ev.Recurrence != nil:
			// Overridden instance; expands exactly once at its own start.
		case ev.RawRRule != "":
			rule, rerr := RuleFromRRULE(ev.RawRRule, ev.Start)
			if rerr != nil {
				logger.Error("ics rrule skipped", rerr, "uid", ev.UID, "rrule", ev.RawRRule)
				continue
			}
			out.Rule = rule
			out.ExDates = seriesExDates(ev, overrides)
		}

		events = append(events, out)
	}

	logger.Info("ics parse completed", "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

// seriesExDates merges a series' EXDATEs with the starts replaced by its
// RECURRENCE-ID overrides into a fresh slice.
func seriesExDates(ev vevent, overrides map[string][]time.Time) []time.Time {
	return slices.Concat(ev.ExDates, overrides[ev.UID])
}

func parseVEvent(ve *ical.VEvent) (vevent, error) {
	var out vevent

	// UID
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, ErrMissingUID
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// All-day: VALUE=DATE or a value without a time part.
	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil {
		return out, errors.New("ics: missing DTSTART")
	}
	if vs := dtStartProp.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	end, err := ve.GetEndAt()
	switch {
	case err == nil && !end.Before(out.Start):
		out.End = end
	case out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		out.End = out.Start
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE can appear multiple times, each possibly a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := paramLocation(p.ICalParameters, out.Start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(ical.ComponentPropertyRecurrenceId); ridProp != nil {
		loc := paramLocation(ridProp.ICalParameters, out.Start.Location())
		if t, err := parseICSTime(ridProp.Value, loc); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

// paramLocation resolves a TZID parameter, falling back to def.
func paramLocation(params map[string][]string, def *time.Location) *time.Location {
	if tz := params["TZID"]; len(tz) == 1 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.Local
	}
	return def
}

// parseICSTime parses a basic ICS DATE or DATE-TIME value. Floating values
// are interpreted in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}

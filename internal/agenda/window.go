package agenda

import (
	"fmt"
	"time"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAround returns the window from local midnight backfillDays before now
// to local midnight horizonDays after today.
func WindowAround(now time.Time, backfillDays, horizonDays int, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	if backfillDays < 0 {
		backfillDays = 0
	}
	if horizonDays <= 0 {
		horizonDays = 1
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{
		Start: midnight.AddDate(0, 0, -backfillDays),
		End:   midnight.AddDate(0, 0, horizonDays),
	}
}

// Contains reports whether an occurrence [start, end) belongs in w: it either
// starts inside w or overlaps it.
func (w Window) Contains(start, end time.Time) bool {
	if !start.Before(w.End) {
		return false
	}
	return !start.Before(w.Start) || end.After(w.Start)
}

func (w Window) key() string {
	return fmt.Sprintf("%d-%d", w.Start.UnixNano(), w.End.UnixNano())
}

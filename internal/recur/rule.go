package recur

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Pattern names a recurrence cadence. The string values are the ones used in
// configuration files.
type Pattern string

const (
	Once             Pattern = "once"
	Daily            Pattern = "daily"
	Weekly           Pattern = "weekly"
	Biweekly         Pattern = "biweekly"
	Monthly          Pattern = "monthly"
	MonthlyByWeekday Pattern = "monthly_dow"
	Yearly           Pattern = "yearly"

	// MonthlyByLastWeekday ("last Friday of the month") is reserved. Expanding
	// it returns ErrNotImplemented.
	MonthlyByLastWeekday Pattern = "monthly_last_dow"
)

// positionalStride is the pseudo-step used for MonthlyByWeekday. 28 days keeps
// the weekday fixed; the week-of-month is corrected after each stride.
const positionalStride = 28

// Rule describes how an event repeats. The zero Interval means 1.
type Rule struct {
	Pattern  Pattern
	Interval int

	// Until bounds the recurrence (inclusive). When both Until and Count are
	// set, Until wins.
	Until *time.Time
	// Count bounds the recurrence at start + interval*(Count-1) steps of the
	// pattern's own unit (inclusive). Weekend shifts are not counted, so a
	// shifted last step may fall past the bound and be dropped. Zero means
	// unbounded.
	Count int

	// SkipWeekendDays moves an occurrence that lands on a Saturday forward to
	// the next day. Sundays are left alone. Only daily, monthly and yearly
	// cadences are shifted.
	SkipWeekendDays bool
}

func (r Rule) validate() error {
	if r.Interval < 0 {
		return fmt.Errorf("%w: interval %d", ErrInvalidEvent, r.Interval)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: count %d", ErrInvalidEvent, r.Count)
	}
	return nil
}

func (r Rule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// cadence maps the pattern to its stepping unit and multiplier. ok is false for
// Once and for unrecognized patterns.
func (r Rule) cadence() (n int, u Unit, ok bool) {
	switch r.Pattern {
	case Daily:
		return r.interval(), Day, true
	case Weekly:
		return r.interval(), Week, true
	case Biweekly:
		return 2, Week, true
	case Monthly:
		return r.interval(), Month, true
	case Yearly:
		return r.interval(), Year, true
	case MonthlyByWeekday, MonthlyByLastWeekday:
		return positionalStride, Day, true
	default:
		return 0, 0, false
	}
}

func (r Rule) shiftsWeekends() bool {
	if !r.SkipWeekendDays {
		return false
	}
	switch r.Pattern {
	case Daily, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// end resolves the inclusive rule bound. Until takes precedence over Count.
// nil means the rule itself is unbounded.
func (r Rule) end(start time.Time) (*time.Time, error) {
	if r.Until != nil {
		until := *r.Until
		return &until, nil
	}
	if r.Count <= 0 {
		return nil, nil
	}
	n, u, ok := r.cadence()
	if !ok {
		return nil, nil
	}
	steps := r.Count - 1
	if steps > math.MaxInt32/n {
		return nil, nil
	}
	t, err := Add(start, steps*n, u)
	if errors.Is(err, ErrOutOfRange) {
		// Beyond the representable calendar: the query window bounds it.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

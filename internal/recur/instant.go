package recur

import (
	"fmt"
	"time"
)

// Unit is a calendar unit used for cadence stepping.
type Unit int

const (
	Day Unit = iota + 1
	Week
	Month
	Year
)

func (u Unit) String() string {
	switch u {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

const (
	minYear = 1
	maxYear = 9999

	// maxSpanDays bounds |n| for any unit so n*7 or n*12 cannot overflow and
	// AddDate stays well within its own normalization range.
	maxSpanDays = (maxYear - minYear + 1) * 366
)

// Add returns t advanced by n calendar units. Month and year steps follow
// time.Time.AddDate normalization (Jan 31 + 1 month = Mar 2 or 3).
func Add(t time.Time, n int, u Unit) (time.Time, error) {
	var years, months, days int
	switch u {
	case Day:
		if n > maxSpanDays || n < -maxSpanDays {
			return time.Time{}, fmt.Errorf("%w: %d %s", ErrOutOfRange, n, u)
		}
		days = n
	case Week:
		if n > maxSpanDays/7 || n < -maxSpanDays/7 {
			return time.Time{}, fmt.Errorf("%w: %d %s", ErrOutOfRange, n, u)
		}
		days = 7 * n
	case Month:
		if n > maxSpanDays/28 || n < -maxSpanDays/28 {
			return time.Time{}, fmt.Errorf("%w: %d %s", ErrOutOfRange, n, u)
		}
		months = n
	case Year:
		if n > maxYear || n < -maxYear {
			return time.Time{}, fmt.Errorf("%w: %d %s", ErrOutOfRange, n, u)
		}
		years = n
	default:
		return time.Time{}, fmt.Errorf("recur: unknown unit %s", u)
	}

	out := t.AddDate(years, months, days)
	if y := out.Year(); y < minYear || y > maxYear {
		return time.Time{}, fmt.Errorf("%w: %s %+d %s", ErrOutOfRange, t.Format(time.RFC3339), n, u)
	}
	return out, nil
}

// WeekOfMonth returns ceil(day/7): 1 for days 1-7, 2 for 8-14 and so on.
func WeekOfMonth(t time.Time) int {
	return (t.Day() + 6) / 7
}

// DayOfYear returns the 1-based ordinal day within the year.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// SecondsBetween returns b-a in whole seconds. Unlike time.Time.Sub it does
// not saturate for spans longer than ~292 years.
func SecondsBetween(a, b time.Time) int64 {
	return b.Unix() - a.Unix()
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

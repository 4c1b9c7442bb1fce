package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"bdbm/internal/recur"
)

// ErrUnsupportedRule is returned when an RRULE has no equivalent recur.Pattern.
var ErrUnsupportedRule = errors.New("ics: unsupported RRULE")

// RuleFromRRULE maps an RFC 5545 RRULE value onto a recur.Rule anchored at
// start. Only cadences the recurrence engine reproduces exactly are accepted:
//
//	FREQ=DAILY|WEEKLY|MONTHLY|YEARLY with INTERVAL, COUNT, UNTIL
//	FREQ=WEEKLY;INTERVAL=2                  -> biweekly
//	FREQ=MONTHLY;BYDAY=+N<day>              -> monthly_dow (N must match start)
//	FREQ=MONTHLY;BYDAY=-N<day>              -> monthly_last_dow
//	BYDAY / BYMONTHDAY / BYMONTH that merely restate the start date
//
// RFC COUNT counts produced instances, so it is resolved with rrule-go into an
// inclusive Until at the last instance. Plain MONTHLY from day 29-31 and
// YEARLY from February 29 are rejected: RFC 5545 skips the short months and
// years there, the engine rolls over into the next month.
//
// Anything else yields ErrUnsupportedRule.
func RuleFromRRULE(raw string, start time.Time) (recur.Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return recur.Rule{}, fmt.Errorf("%w: empty", ErrUnsupportedRule)
	}

	opt, err := rrule.StrToROptionInLocation(raw, start.Location())
	if err != nil {
		return recur.Rule{}, fmt.Errorf("%w: %w", ErrUnsupportedRule, err)
	}

	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 ||
		len(opt.Byeaster) > 0 {
		return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
	}
	if opt.Interval < 0 || opt.Count < 0 {
		return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
	}

	rule := recur.Rule{Interval: opt.Interval}
	if !opt.Until.IsZero() {
		until := opt.Until
		rule.Until = &until
	}

	if !restatesMonth(opt.Bymonth, start) || !restatesMonthDay(opt.Bymonthday, start) {
		return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
	}

	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) > 0 || len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 {
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		rule.Pattern = recur.Daily

	case rrule.WEEKLY:
		if len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 {
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		if len(opt.Byweekday) > 1 ||
			(len(opt.Byweekday) == 1 && (opt.Byweekday[0].N() != 0 || !sameWeekday(opt.Byweekday[0], start))) {
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		if opt.Interval == 2 {
			rule.Pattern = recur.Biweekly
			rule.Interval = 0
		} else {
			rule.Pattern = recur.Weekly
		}

	case rrule.MONTHLY:
		if len(opt.Bymonth) > 0 {
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		switch len(opt.Byweekday) {
		case 0:
			if start.Day() > 28 {
				return recur.Rule{}, fmt.Errorf("%w: %s: day %d is missing from short months", ErrUnsupportedRule, raw, start.Day())
			}
			rule.Pattern = recur.Monthly
		case 1:
			wd := opt.Byweekday[0]
			n := wd.N()
			switch {
			case len(opt.Bymonthday) > 0, !sameWeekday(wd, start), opt.Interval > 1:
				return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
			case n > 0 && n == recur.WeekOfMonth(start):
				rule.Pattern = recur.MonthlyByWeekday
				rule.Interval = 0
			case n < 0:
				rule.Pattern = recur.MonthlyByLastWeekday
				rule.Interval = 0
			default:
				return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
			}
		default:
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}

	case rrule.YEARLY:
		if len(opt.Byweekday) > 0 {
			return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
		}
		if start.Month() == time.February && start.Day() == 29 {
			return recur.Rule{}, fmt.Errorf("%w: %s: February 29 is missing from common years", ErrUnsupportedRule, raw)
		}
		rule.Pattern = recur.Yearly

	default:
		return recur.Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, raw)
	}

	if opt.Count > 0 && rule.Until == nil {
		last, err := lastInstance(*opt, start)
		if err != nil {
			return recur.Rule{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedRule, raw, err)
		}
		rule.Until = &last
	}

	return rule, nil
}

// lastInstance returns the final instance of a COUNT-limited rule.
func lastInstance(opt rrule.ROption, start time.Time) (time.Time, error) {
	opt.Dtstart = start
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, err
	}
	all := r.All()
	if len(all) == 0 {
		return time.Time{}, errors.New("rule yields no instances")
	}
	return all[len(all)-1], nil
}

// sameWeekday compares an rrule weekday (MO=0..SU=6) with start's weekday.
func sameWeekday(wd rrule.Weekday, start time.Time) bool {
	return wd.Day() == (int(start.Weekday())+6)%7
}

func restatesMonth(months []int, start time.Time) bool {
	return len(months) == 0 || (len(months) == 1 && months[0] == int(start.Month()))
}

func restatesMonthDay(days []int, start time.Time) bool {
	return len(days) == 0 || (len(days) == 1 && days[0] == start.Day())
}

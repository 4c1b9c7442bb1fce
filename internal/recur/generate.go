package recur

import (
	"context"
	"fmt"
	"time"
)

// positionalBackoff is how many strides the positional cursor starts before
// the estimate. The first stride is never emitted, so the cursor must begin
// at least one month ahead of the earliest month that may fall in the window.
const positionalBackoff = 3

// generator carries the state of one EventsInRange call.
type generator struct {
	ctx  context.Context
	sink Sink
	rule Rule

	start    time.Time
	duration time.Duration

	queryStart time.Time
	queryEnd   time.Time
	// ruleEnd is the inclusive bound from Until or Count; nil when unbounded.
	ruleEnd *time.Time

	maxIterations int
	steps         int

	out []Occurrence
}

// pastEnd reports whether t is at or beyond the effective end bound: the
// query end (exclusive) or the rule bound (inclusive).
func (g *generator) pastEnd(t time.Time) bool {
	if !t.Before(g.queryEnd) {
		return true
	}
	if g.ruleEnd != nil && t.After(*g.ruleEnd) {
		return true
	}
	return false
}

func (g *generator) inWindow(t time.Time) bool {
	return !t.Before(g.start) && !t.Before(g.queryStart) && t.Before(g.queryEnd)
}

// emit appends t unless it would break strict ordering. A weekend shift can
// push one occurrence onto the next one's baseline.
func (g *generator) emit(t time.Time) {
	if n := len(g.out); n > 0 && !t.After(g.out[n-1].Start) {
		return
	}
	g.out = append(g.out, Occurrence{Start: t, End: t.Add(g.duration)})
}

// candidate returns the k-th occurrence: the unshifted baseline start+k*n
// units, moved off Saturday when the rule asks for it. The shift never feeds
// into later baselines.
func (g *generator) candidate(k, n int, u Unit) (time.Time, error) {
	g.steps++
	t, err := Add(g.start, k*n, u)
	if err != nil {
		return time.Time{}, err
	}
	if k > 0 && g.rule.shiftsWeekends() {
		for t.Weekday() == time.Saturday {
			if t, err = Add(t, 1, Day); err != nil {
				return time.Time{}, err
			}
		}
	}
	return t, nil
}

// cadence expands the fixed-step patterns.
func (g *generator) cadence(n int, u Unit) error {
	k, err := Estimate(g.start, g.queryStart, n, u)
	if err != nil {
		return err
	}
	debug(g.sink, "recur: fast-forward estimate", "intervals", k, "unit", u.String(), "n", n)

	// The estimate may overshoot; walk back while the previous occurrence is
	// still inside the window.
	for k > 0 {
		prev, err := g.candidate(k-1, n, u)
		if err != nil {
			return err
		}
		if prev.Before(g.queryStart) {
			break
		}
		k--
	}

	for i := k; ; i++ {
		if err := g.ctx.Err(); err != nil {
			return fmt.Errorf("recur: expansion canceled: %w", err)
		}
		t, err := g.candidate(i, n, u)
		if err != nil {
			return err
		}
		if g.pastEnd(t) {
			return nil
		}
		if g.inWindow(t) {
			g.emit(t)
		}
	}
}

// positional expands MonthlyByWeekday: the same weekday in the same
// week-of-month as the start, once per calendar month.
func (g *generator) positional() error {
	k, err := Estimate(g.start, g.queryStart, positionalStride, Day)
	if err != nil {
		return err
	}
	debug(g.sink, "recur: fast-forward estimate", "intervals", k, "unit", Day.String(), "n", positionalStride)

	cur, err := Add(g.start, (k-positionalBackoff)*positionalStride, Day)
	if err != nil {
		return err
	}
	week := WeekOfMonth(g.start)

	for iter := 0; ; iter++ {
		if iter >= g.maxIterations {
			return fmt.Errorf("%w: %d iterations without reaching %s", ErrIterationBudgetExceeded,
				g.maxIterations, g.queryEnd.Format(time.RFC3339))
		}
		if err := g.ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrIterationBudgetExceeded, err)
		}
		g.steps++

		stride := positionalStride
		probe, err := Add(cur, stride, Day)
		if err != nil {
			return err
		}
		// A 28-day stride stays in the same month when the cursor sits in the
		// first days of a long month; take two strides so that month is not
		// emitted twice.
		if sameMonth(probe, cur) {
			stride *= 2
		}
		if cur, err = Add(cur, stride, Day); err != nil {
			return err
		}
		if cur, err = Add(cur, (week-WeekOfMonth(cur))*7, Day); err != nil {
			return err
		}

		if g.pastEnd(cur) {
			return nil
		}
		if g.inWindow(cur) {
			g.emit(cur)
		}
	}
}

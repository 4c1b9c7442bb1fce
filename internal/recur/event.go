// Package recur expands a single recurring event into the concrete occurrences
// that fall inside a query window.
//
// Supported cadences are daily, weekly, biweekly, monthly, yearly and "Nth
// weekday of the month". Expansion fast-forwards near the window instead of
// replaying the event's whole history, so a daily event started decades ago
// costs roughly as much as the number of occurrences returned.
package recur

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxIterations is the stepping budget for the positional pattern when
// no WithMaxIterations option is given.
const DefaultMaxIterations = 10000

// Sink receives free-form diagnostics. Implementations must not block for
// long; panics are recovered and ignored.
type Sink interface {
	Debug(msg string, kv ...any)
}

// Occurrence is one concrete instance of a recurring event.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Engine holds the collaborators shared by every expansion. It carries no
// mutable state and is safe for concurrent use.
type Engine struct {
	sink          Sink
	maxIterations int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink routes diagnostics to s.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithMaxIterations sets the positional stepping budget. Values below 1 keep
// the default.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecurringEvent binds a Rule to a concrete start and end.
type RecurringEvent struct {
	engine *Engine
	start  time.Time
	end    time.Time
	rule   Rule
}

// Event validates and builds a RecurringEvent. It fails with ErrInvalidEvent
// when end is before start or the rule is malformed.
func (e *Engine) Event(start, end time.Time, rule Rule) (*RecurringEvent, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidEvent,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if err := rule.validate(); err != nil {
		return nil, err
	}
	return &RecurringEvent{
		engine: e,
		start:  start,
		end:    end,
		rule:   rule,
	}, nil
}

func (ev *RecurringEvent) Start() time.Time        { return ev.start }
func (ev *RecurringEvent) End() time.Time          { return ev.end }
func (ev *RecurringEvent) Rule() Rule              { return ev.rule }
func (ev *RecurringEvent) Duration() time.Duration { return ev.end.Sub(ev.start) }

// EventsInRange returns the occurrences whose start lies in
// [max(event start, queryStart), queryEnd), ordered by start.
//
// A Once event always yields exactly its own occurrence, whether or not it
// intersects the window. An unrecognized pattern yields an empty result and no
// error. On error the returned slice is nil.
func (ev *RecurringEvent) EventsInRange(ctx context.Context, queryStart, queryEnd time.Time) ([]Occurrence, error) {
	e := ev.engine
	if e == nil {
		e = NewEngine()
	}

	if ev.rule.Pattern == Once {
		return []Occurrence{{Start: ev.start, End: ev.end}}, nil
	}
	if ev.rule.Pattern == MonthlyByLastWeekday {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, ev.rule.Pattern)
	}

	n, unit, ok := ev.rule.cadence()
	if !ok {
		debug(e.sink, "recur: unknown pattern, nothing to expand", "pattern", string(ev.rule.Pattern))
		return []Occurrence{}, nil
	}
	if !queryStart.Before(queryEnd) {
		return []Occurrence{}, nil
	}

	ruleEnd, err := ev.rule.end(ev.start)
	if err != nil {
		return nil, err
	}

	g := &generator{
		ctx:           ctx,
		sink:          e.sink,
		rule:          ev.rule,
		start:         ev.start,
		duration:      ev.end.Sub(ev.start),
		queryStart:    queryStart,
		queryEnd:      queryEnd,
		ruleEnd:       ruleEnd,
		maxIterations: e.maxIterations,
		out:           make([]Occurrence, 0),
	}

	if ev.rule.Pattern == MonthlyByWeekday {
		err = g.positional()
	} else {
		err = g.cadence(n, unit)
	}
	if err != nil {
		return nil, err
	}

	debug(e.sink, "recur: expansion finished",
		"pattern", string(ev.rule.Pattern),
		"steps", g.steps,
		"occurrences", len(g.out),
	)
	return g.out, nil
}

// debug forwards to the sink and swallows anything it throws.
func debug(s Sink, msg string, kv ...any) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Debug(msg, kv...)
}

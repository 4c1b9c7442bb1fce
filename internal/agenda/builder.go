package agenda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "bdbm/internal/log"
	"bdbm/internal/model"
	"bdbm/internal/recur"
)

const DefaultWorkers = 4

// Failure records an event that could not be expanded.
type Failure struct {
	SourceID string
	UID      string
	Err      error
}

// Result is the expanded agenda for one window.
type Result struct {
	Window      Window
	Occurrences []model.Occurrence
	Failed      []Failure
}

// Builder expands events into display-ready occurrences.
type Builder struct {
	engine  *recur.Engine
	loc     *time.Location
	workers int
	log     *appLog.Logger
}

// NewBuilder returns a Builder. loc is the display timezone (time.Local when
// nil); workers bounds parallel expansion.
func NewBuilder(engine *recur.Engine, loc *time.Location, workers int, logger *appLog.Logger) *Builder {
	if engine == nil {
		engine = recur.NewEngine()
	}
	if loc == nil {
		loc = time.Local
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = appLog.Discard()
	}
	return &Builder{
		engine:  engine,
		loc:     loc,
		workers: workers,
		log:     logger.With("component", "agenda"),
	}
}

// Build expands every event over w. An event that fails to expand is recorded
// in Result.Failed and skipped; cancellation of ctx fails the whole build.
// Occurrences are sorted by start, then UID.
func (b *Builder) Build(ctx context.Context, events []model.Event, w Window) (Result, error) {
	res := Result{Window: w, Occurrences: []model.Occurrence{}}
	if !w.Start.Before(w.End) {
		return res, nil
	}

	perEvent := make([][]model.Occurrence, len(events))
	failures := make([]error, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range events {
		g.Go(func() error {
			occs, err := b.expand(gctx, events[i], w)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return fmt.Errorf("agenda: build canceled: %w", cerr)
				}
				failures[i] = err
				return nil
			}
			perEvent[i] = occs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{Window: w}, err
	}

	for i, ev := range events {
		if err := failures[i]; err != nil {
			res.Failed = append(res.Failed, Failure{SourceID: ev.SourceID, UID: ev.UID, Err: err})
			b.log.Error("agenda: event expansion failed", err, "source", ev.SourceID, "uid", ev.UID, "pattern", ev.Rule.Pattern)
			continue
		}
		res.Occurrences = append(res.Occurrences, perEvent[i]...)
	}

	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		a, c := res.Occurrences[i], res.Occurrences[j]
		if !a.Start.Equal(c.Start) {
			return a.Start.Before(c.Start)
		}
		return a.UID < c.UID
	})

	b.log.Debug("agenda: build finished",
		"events", len(events),
		"occurrences", len(res.Occurrences),
		"failed", len(res.Failed),
	)
	return res, nil
}

func (b *Builder) expand(ctx context.Context, ev model.Event, w Window) ([]model.Occurrence, error) {
	re, err := b.engine.Event(ev.Start, ev.End, ev.Rule)
	if err != nil {
		return nil, err
	}
	occs, err := re.EventsInRange(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		if ev.Excluded(o.Start) || !w.Contains(o.Start, o.End) {
			continue
		}
		out = append(out, model.NewOccurrence(ev, o, b.loc))
	}
	return out, nil
}

// FailedErr joins every per-event failure into one error, or nil.
func (r Result) FailedErr() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s/%s: %w", f.SourceID, f.UID, f.Err))
	}
	return errors.Join(errs...)
}

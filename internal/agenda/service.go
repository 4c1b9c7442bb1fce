package agenda

import (
	"context"
	"errors"

	"bdbm/internal/ics"
	appLog "bdbm/internal/log"
	"bdbm/internal/model"
)

// Service gathers events from the config file and ICS feeds and builds
// cached agendas from them.
type Service struct {
	builder *Builder
	cache   *Cache
	fetcher *ics.Fetcher
	sources []ics.Source
	static  []model.Event
	log     *appLog.Logger
}

// NewService wires a Builder to its event sources. fetcher may be nil when no
// ICS sources are configured; cache may be nil to disable caching.
func NewService(builder *Builder, cache *Cache, fetcher *ics.Fetcher, sources []ics.Source, static []model.Event, logger *appLog.Logger) *Service {
	if logger == nil {
		logger = appLog.Discard()
	}
	return &Service{
		builder: builder,
		cache:   cache,
		fetcher: fetcher,
		sources: sources,
		static:  static,
		log:     logger.With("component", "agenda"),
	}
}

// Events returns the config events followed by every event parsed from the
// ICS feeds. Feed failures are logged and skipped.
func (s *Service) Events(ctx context.Context) []model.Event {
	events := make([]model.Event, 0, len(s.static))
	events = append(events, s.static...)

	if s.fetcher == nil || len(s.sources) == 0 {
		return events
	}

	results, errs := s.fetcher.FetchAll(ctx, s.sources)
	if len(errs) > 0 {
		s.log.Error("agenda: one or more ICS fetches failed", errors.Join(errs...), "error_count", len(errs))
	}
	for _, res := range results {
		parsed, err := ics.ParseFeed(res.Source, res.Body, s.log)
		if err != nil {
			s.log.Error("agenda: parse failed for source", err, "id", res.Source.ID)
			continue
		}
		events = append(events, parsed...)
	}
	return events
}

// Agenda returns the agenda for w, from cache when fresh.
func (s *Service) Agenda(ctx context.Context, w Window) (Result, error) {
	if s.cache != nil {
		if r, ok := s.cache.Get(w); ok {
			return r, nil
		}
	}
	return s.Refresh(ctx, w)
}

// Refresh rebuilds the agenda for w and stores it in the cache.
func (s *Service) Refresh(ctx context.Context, w Window) (Result, error) {
	res, err := s.builder.Build(ctx, s.Events(ctx), w)
	if err != nil {
		return res, err
	}
	if s.cache != nil {
		s.cache.Put(w, res)
	}
	s.log.Info("agenda refreshed",
		"range_start", w.Start,
		"range_end", w.End,
		"occurrences", len(res.Occurrences),
		"failed", len(res.Failed),
	)
	return res, nil
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bdbm/internal/agenda"
	"bdbm/internal/battery"
	appLog "bdbm/internal/log"
	"bdbm/internal/notify"
)

// Job is a unit of scheduled work. ctx is canceled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron specs ("*/15 * * * *", "@every 30m").
// Overlapping runs of the same job are skipped and panics are recovered.
type Scheduler struct {
	cron *cron.Cron
	log  *appLog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	names  map[cron.EntryID]string
}

// cronLogger adapts appLog.Logger to cron.Logger.
type cronLogger struct {
	l *appLog.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, err, kv...)
}

func New(loc *time.Location, logger *appLog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = appLog.Discard()
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{l: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[cron.EntryID]string),
	}
}

// Period returns the gap between the two runs of spec that follow from. For
// "@every" specs this is the fixed delay; for calendar specs it is the next
// gap only.
func Period(spec string, from time.Time) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("scheduler: spec %q: %w", spec, err)
	}
	next := sched.Next(from)
	return sched.Next(next).Sub(next), nil
}

// Add registers job under name. It fails on an invalid spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		if err := job(s.context()); err != nil {
			s.log.Error("job failed", err, "job", name)
			return
		}
		s.log.Debug("job finished", "job", name, "elapsed", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("scheduler: job %q spec %q: %w", name, spec, err)
	}

	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()

	s.log.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Jobs lists registered job names with their next run time.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.names))
	for _, e := range s.cron.Entries() {
		out[s.names[e.ID]] = e.Next
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs' context and waits for them, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// BatteryCheck reads every device and notifies those below warn.
func BatteryCheck(r battery.Reader, n notify.Notifier, warn int, logger *appLog.Logger) Job {
	if logger == nil {
		logger = appLog.Discard()
	}
	return func(ctx context.Context) error {
		statuses, err := r.Read(ctx)
		if err != nil {
			return fmt.Errorf("battery check: %w", err)
		}
		for _, st := range statuses {
			logger.Info("battery status", "device", st.Device, "percent", st.Percent)
		}
		sent := notify.LowBattery(ctx, n, statuses, warn, logger)
		logger.Debug("battery check done", "devices", len(statuses), "warn_level", warn, "notified", sent)
		return nil
	}
}

// AgendaRefresh rebuilds the agenda for the window returned by window.
func AgendaRefresh(svc *agenda.Service, window func() agenda.Window) Job {
	return func(ctx context.Context) error {
		_, err := svc.Refresh(ctx, window())
		return err
	}
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bdbm/internal/agenda"
	"bdbm/internal/battery"
	"bdbm/internal/notify"
	"bdbm/internal/scheduler"
	"bdbm/internal/web"
)

const defaultAgendaCacheTTL = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled battery checks and agenda refreshes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	a.log.Info("bdbm starting", "version", version, "listen", a.cfg.Listen)

	reader := battery.DefaultReader(ctx)
	svc := a.agendaService(agenda.NewCache(agendaCacheTTL(a.cfg.RefreshCron, time.Now())))
	window := func() agenda.Window {
		return agenda.WindowAround(time.Now(), a.cfg.BackfillDays, a.cfg.HorizonDays, a.cfg.Location())
	}

	sched := scheduler.New(a.cfg.Location(), a.log)
	if err := sched.Add("battery", a.cfg.BatteryCron, scheduler.BatteryCheck(reader, notify.Default(a.log), a.cfg.WarnLevel, a.log)); err != nil {
		return err
	}
	if err := sched.Add("agenda", a.cfg.RefreshCron, scheduler.AgendaRefresh(svc, window)); err != nil {
		return err
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.NewServer(a.cfg, svc, reader, a.log).Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sched.Stop(stopCtx)
	})

	err := g.Wait()
	a.log.Info("bdbm exiting")
	return err
}

// agendaCacheTTL keeps a refreshed agenda cached until the next scheduled
// refresh, plus slack for a slow rebuild.
func agendaCacheTTL(refreshSpec string, now time.Time) time.Duration {
	const slack = time.Minute
	period, err := scheduler.Period(refreshSpec, now)
	if err != nil || period <= 0 {
		return defaultAgendaCacheTTL
	}
	return period + slack
}

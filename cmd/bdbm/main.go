package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"bdbm/internal/agenda"
	"bdbm/internal/battery"
	"bdbm/internal/config"
	"bdbm/internal/ics"
	appLog "bdbm/internal/log"
	"bdbm/internal/notify"
	"bdbm/internal/recur"
	"bdbm/internal/report"
)

const version = "Bluetooth Device Battery Monitor 0.3"

// app carries state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *appLog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLog.Error("bdbm failed", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: appLog.Default()}

	var (
		warn  int
		table bool
	)

	root := &cobra.Command{
		Use:           "bdbm",
		Short:         "Bluetooth Device Battery Monitor",
		Long:          "Lists the charge of connected Bluetooth devices and raises a notification for any below the warning level.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("warn") {
				a.cfg.WarnLevel = warn
			}
			return a.runBattery(cmd, table)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "Path to config file")
	root.Flags().IntVarP(&warn, "warn", "w", config.DefaultWarnLevel, "Raise a warning if a charge level is below PCT")
	root.Flags().BoolVar(&table, "table", false, "Render a bordered table instead of plain lines")

	root.AddCommand(newAgendaCmd(a), newServeCmd(a))
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "bdbm", "config.yaml")
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.log.Error("failed to load config", err, "config_path", a.configPath)
		return err
	}
	a.cfg = cfg
	a.log.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	a.log.Debug("effective config",
		"config_path", a.configPath,
		"warn_level", cfg.WarnLevel,
		"timezone", cfg.Timezone,
		"horizon_days", cfg.HorizonDays,
		"events", len(cfg.Events),
		"ics_count", len(cfg.ICS),
	)
	return nil
}

func (a *app) runBattery(cmd *cobra.Command, table bool) error {
	ctx := cmd.Context()
	a.log.Debug("warn level", "percent", a.cfg.WarnLevel)

	statuses, err := battery.DefaultReader(ctx).Read(ctx)
	if err != nil {
		a.log.Error("battery read failed", err)
		return err
	}

	out := cmd.OutOrStdout()
	if len(statuses) == 0 {
		fmt.Fprintln(out, report.NoDevices)
		return nil
	}
	if table {
		fmt.Fprint(out, report.BatteryTable(statuses, a.cfg.WarnLevel))
	} else {
		fmt.Fprint(out, report.BatteryLines(statuses))
	}

	notify.LowBattery(ctx, notify.Default(a.log), statuses, a.cfg.WarnLevel, a.log)
	return nil
}

// agendaService wires the config events and ICS feeds into an agenda.Service.
func (a *app) agendaService(cache *agenda.Cache) *agenda.Service {
	engine := recur.NewEngine(
		recur.WithSink(a.log.With("component", "recur")),
		recur.WithMaxIterations(a.cfg.Engine.MaxIterations),
	)
	builder := agenda.NewBuilder(engine, a.cfg.Location(), a.cfg.Engine.Workers, a.log)

	sources := make([]ics.Source, 0, len(a.cfg.ICS))
	for _, c := range a.cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, Name: c.Name, URL: c.URL})
	}

	var fetcher *ics.Fetcher
	if len(sources) > 0 {
		fetcher = ics.NewFetcher(a.cfg.CacheDir, a.log)
	}
	return agenda.NewService(builder, cache, fetcher, sources, a.cfg.ModelEvents(), a.log)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bdbm/internal/agenda"
	"bdbm/internal/report"
)

func newAgendaCmd(a *app) *cobra.Command {
	var days, backfill int

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print upcoming occurrences of configured and subscribed events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.HorizonDays
			}
			if !cmd.Flags().Changed("backfill") {
				backfill = a.cfg.BackfillDays
			}

			win := agenda.WindowAround(time.Now(), backfill, days, a.cfg.Location())
			res, err := a.agendaService(nil).Refresh(cmd.Context(), win)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Span(win.Start, win.End))
			fmt.Fprint(out, report.Agenda(res.Occurrences))
			for _, f := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s/%s: %v\n", f.SourceID, f.UID, f.Err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days ahead to include")
	cmd.Flags().IntVar(&backfill, "backfill", 1, "Number of past days to include")
	return cmd
}

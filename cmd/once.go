package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/benny59/architetti/internal/scheduler"
)

func onceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single scrape cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, _, err := a.scheduler(ctx)
			if err != nil {
				return err
			}

			renderReport(cmd, sched.RunCycle(ctx))
			return nil
		},
	}
}

func renderReport(cmd *cobra.Command, report scheduler.CycleReport) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle("Cycle " + report.ID)

	t.AppendHeader(table.Row{"Source", "Scraped", "New", "Notified", "Duplicates", "Filtered", "Invalid", "Failed"})
	for _, s := range report.Sources {
		t.AppendRow(table.Row{
			s.Nickname,
			s.Stats.Scraped,
			s.New,
			s.Notified,
			s.Stats.Duplicates,
			s.Stats.Filtered,
			s.Stats.Invalid,
			s.Stats.Failed,
		})
	}
	t.AppendFooter(table.Row{"Duration", report.Duration.Round(time.Millisecond).String()})
	t.Render()
}

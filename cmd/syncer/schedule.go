package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pms_sync/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run full and incremental syncs on their configured cadences",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// progress goes to the structured log only
	d, err := buildDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.cfg.Sched.Enabled {
		log.Warn().Msg("scheduled sync disabled (PMS_CRON_ENABLED=false)")
		return nil
	}

	s := app.NewScheduler(d.driver, app.ScheduleConfig{
		FullInterval:        d.cfg.Sched.FullInterval,
		IncrementalInterval: d.cfg.Sched.IncrementalInterval,
		IncrementalLookback: d.cfg.Sched.IncrementalLookback,
	}, log.Logger)
	s.Start(ctx)
	return nil
}

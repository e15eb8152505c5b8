package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pms_sync/internal/adapters/observability"
	"pms_sync/internal/domain"
)

type BookingSyncer interface {
	SyncBooking(ctx context.Context, id int64) error
}

type IDLister interface {
	ListBookingIDs(ctx context.Context, since *time.Time) ([]int64, error)
}

// RunSummary always satisfies Succeeded+Failed == Attempted.
type RunSummary struct {
	RunID     string
	Since     *time.Time
	Attempted int
	Succeeded int
	Failed    int
	FailedIDs []int64
	Duration  time.Duration
}

func (s RunSummary) Mode() string {
	if s.Since != nil {
		return "incremental"
	}
	return "full"
}

// Driver runs one synchronization pass over the ids the PMS reports.
// Bookings are processed strictly one at a time.
type Driver struct {
	lister IDLister
	syncer BookingSyncer
	out    io.Writer
	log    zerolog.Logger
}

// NewDriver wires a driver. out receives the human-readable progress report; nil discards it.
func NewDriver(l IDLister, s BookingSyncer, out io.Writer, logger zerolog.Logger) *Driver {
	if out == nil {
		out = io.Discard
	}
	return &Driver{lister: l, syncer: s, out: out, log: logger.With().Str("component", "driver").Logger()}
}

// Run returns an error only when enumeration fails (*domain.EnumerationError).
// Per-booking failures are reported in the summary.
func (d *Driver) Run(ctx context.Context, since *time.Time) (RunSummary, error) {
	start := time.Now()
	sum := RunSummary{RunID: uuid.NewString(), Since: since}
	l := d.log.With().Str("run_id", sum.RunID).Str("mode", sum.Mode()).Logger()

	d.printf("Fetching booking IDs from PMS API...\n")
	ids, err := d.lister.ListBookingIDs(ctx, since)
	if err != nil {
		sum.Duration = time.Since(start)
		observability.ObserveRun(sum.Mode(), "failed", sum.Duration)
		l.Error().Err(err).Msg("booking enumeration failed")
		return sum, &domain.EnumerationError{Err: err}
	}

	if len(ids) == 0 {
		d.printf("No bookings to sync.\n")
		l.Info().Msg("no bookings to sync")
		sum.Duration = time.Since(start)
		observability.ObserveRun(sum.Mode(), "ok", sum.Duration)
		return sum, nil
	}

	d.printf("Found %d bookings to sync.\n", len(ids))
	l.Info().Int("bookings", len(ids)).Msg("sync run starting")

	for i, id := range ids {
		sum.Attempted++
		err := d.syncer.SyncBooking(ctx, id)
		observability.ObserveBookingSync(err)
		if err != nil {
			sum.Failed++
			sum.FailedIDs = append(sum.FailedIDs, id)
			l.Error().Err(err).Int64("booking_id", id).Msg("booking sync failed")
			d.printf("Failed to sync booking %d: %v\n", id, err)
			continue
		}
		sum.Succeeded++
		l.Debug().Int64("booking_id", id).Int("done", i+1).Int("total", len(ids)).Msg("booking synced")
	}

	sum.Duration = time.Since(start)
	observability.ObserveRun(sum.Mode(), "ok", sum.Duration)
	d.printf("Sync completed: %d attempted, %d processed, %d errors\n", sum.Attempted, sum.Succeeded, sum.Failed)
	l.Info().
		Int("attempted", sum.Attempted).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("duration", sum.Duration).
		Msg("sync run finished")
	return sum, nil
}

func (d *Driver) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

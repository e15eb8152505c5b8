package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pms_sync/internal/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization pass",
	Long: `Fetches booking ids from the PMS and synchronizes each booking with its room,
room type and guests. With --since only bookings updated after that date are synced.
Individual booking failures are reported but do not fail the command.`,
	RunE: runSync,
}

var (
	syncSince string
	syncFresh bool
)

func init() {
	syncCmd.Flags().StringVar(&syncSince, "since", "", "only sync bookings updated after this date (YYYY-MM-DD or RFC 3339)")
	syncCmd.Flags().BoolVar(&syncFresh, "fresh", false, "drop cached PMS responses before syncing")
	rootCmd.AddCommand(syncCmd)
}

func parseSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid --since %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return &t, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	since, err := parseSince(syncSince)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	d, err := buildDeps(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer d.Close()

	if syncFresh {
		if err := d.client.InvalidateAll(ctx); err != nil {
			return fmt.Errorf("drop pms cache: %w", err)
		}
	}

	cmd.Println("Starting PMS booking synchronization...")
	if _, err := d.driver.Run(ctx, since); err != nil {
		var enumErr *domain.EnumerationError
		if errors.As(err, &enumErr) {
			cmd.Printf("Synchronization failed: %v\n", enumErr.Err)
		}
		return err
	}
	cmd.Println("Synchronization completed successfully!")
	return nil
}

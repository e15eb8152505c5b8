package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pms_sync/internal/adapters/observability"
	"pms_sync/internal/adapters/pms"
	redisad "pms_sync/internal/adapters/redis"
	"pms_sync/internal/app"
	"pms_sync/internal/shared"
	mysqlrepo "pms_sync/internal/storage/mysql"
)

var rootCmd = &cobra.Command{
	Use:           "pms-sync",
	Short:         "Synchronize bookings from the PMS into the local database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// deps is everything a sync run needs; built once per command invocation.
type deps struct {
	cfg    shared.Config
	db     *sql.DB
	cache  *redisad.Cache
	client *pms.Client
	driver *app.Driver
}

func (d *deps) Close() {
	if d.cache != nil {
		_ = d.cache.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

// buildDeps wires the run. out receives the driver's progress report.
func buildDeps(ctx context.Context, out io.Writer) (*deps, error) {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.MustRegisterDefault()
	observability.Serve(cfg.MetricsAddr)

	d := &deps{cfg: cfg}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	d.db = db
	if err := db.PingContext(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	log.Info().Msg("db ping ok")

	d.cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := d.cache.Ping(ctx); err != nil {
		// the sync still works without a cache, only slower
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
	}

	client, err := pms.New(pms.Options{
		BaseURL:      cfg.PMS.BaseURL,
		APIKey:       cfg.PMS.APIKey,
		Timeout:      cfg.PMS.Timeout,
		Attempts:     cfg.PMS.Attempts,
		RetryDelay:   cfg.PMS.RetryDelay,
		MaxRetryWait: cfg.PMS.MaxRetryWait,
		RateLimit:    cfg.PMS.RateLimit,
		CacheTTL:     cfg.PMS.CacheTTL,
	}, d.cache.Named("pms"), log.Logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pms client: %w", err)
	}
	d.client = client

	repo := mysqlrepo.New(db)
	svc := app.NewSyncService(client, repo, d.cache.Named("views"), log.Logger)
	d.driver = app.NewDriver(client, svc, out, log.Logger)

	log.Info().
		Str("base", cfg.PMS.BaseURL).
		Float64("rate", cfg.PMS.RateLimit).
		Int("attempts", cfg.PMS.Attempts).
		Msg("pms sync ready")
	return d, nil
}

func main() {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

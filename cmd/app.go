package main

import (
	"context"
	"fmt"

	"github.com/benny59/architetti/internal/config"
	"github.com/benny59/architetti/internal/db"
	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/notifier"
	"github.com/benny59/architetti/internal/scheduler"
	"github.com/benny59/architetti/internal/scraper"
	"github.com/benny59/architetti/internal/scraper/sites"
	"github.com/benny59/architetti/internal/store"
)

// app bundles what every subcommand needs: configuration, logger and an
// open store with every partition in place.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	store   store.Store
	metrics *metrics.Metrics
	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// ── SQL store ───────────────────────────────────────────────────────────
	log.Info("Opening store", logger.String("driver", cfg.Database.Driver))
	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	sqlStore := store.NewSQLStore(conn)
	a.store = sqlStore
	a.closers = append(a.closers, sqlStore.Close)

	// ── Redis (optional) ────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if rdb != nil {
		log.Info("Seen-checksum cache enabled")
		a.store = store.NewCachedStore(sqlStore, rdb, store.Namespace(cfg.Database.Driver, cfg.Database.DSN), log)
		a.closers = append(a.closers, rdb.Close)
	}

	if err := a.store.EnsurePartitions(ctx, cfg.Nicknames()); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure partitions: %w", err)
	}

	return a, nil
}

// Close releases connections in reverse order and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Close failed", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}

// registrations builds the adapters without touching credentials.
func (a *app) registrations() ([]scraper.Registration, *scraper.Worker, error) {
	regs, norm, err := sites.Build(a.cfg, sites.Deps{Log: a.log})
	if err != nil {
		return nil, nil, err
	}
	return regs, scraper.NewWorker(a.store, norm, a.metrics, a.log), nil
}

// scheduler resolves secrets, then wires worker, notifier and scheduler.
func (a *app) scheduler(ctx context.Context) (*scheduler.Scheduler, []scraper.Registration, error) {
	if err := a.cfg.ResolveSecrets(ctx, a.store); err != nil {
		return nil, nil, fmt.Errorf("resolve secrets: %w", err)
	}
	if err := a.cfg.ValidateSecrets(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	regs, worker, err := a.registrations()
	if err != nil {
		return nil, nil, err
	}

	sender, err := a.sender()
	if err != nil {
		return nil, nil, err
	}
	n := notifier.New(sender, a.cfg.Telegram.Delay, a.metrics, a.log)

	sched := scheduler.New(regs, worker, n, scheduler.Options{
		Interval:    a.cfg.Interval,
		Cron:        a.cfg.Cron,
		Destination: a.cfg.Telegram.ChatID,
	}, a.metrics, a.log)

	return sched, regs, nil
}

func (a *app) sender() (notifier.Sender, error) {
	if a.cfg.Telegram.DryRun {
		a.log.Info("Dry run: notifications are logged, not sent")
		return notifier.NewLogSender(a.log), nil
	}
	s, err := notifier.NewTelegramSender(a.cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return s, nil
}

// Package scheduler drives scrape cycles: every enabled source, one after
// the other, then a pause, forever.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/scraper"
)

// Ingester runs the ingestion pipeline for one registration.
type Ingester interface {
	Run(ctx context.Context, reg scraper.Registration) ([]model.Record, scraper.Stats)
}

// Notifier emits new records to a destination.
type Notifier interface {
	Notify(ctx context.Context, destination int64, records []model.Record) (int, error)
}

// Options controls cycle timing.
type Options struct {
	// Interval is the pause between the end of one cycle and the start of
	// the next.
	Interval time.Duration
	// Cron, when set, replaces the fixed pause with a cron schedule.
	// Overlapping runs are skipped.
	Cron string
	// Destination is the notification channel id.
	Destination int64
}

// SourceReport is the outcome of one source within a cycle.
type SourceReport struct {
	Nickname string
	New      int
	Notified int
	Stats    scraper.Stats
}

// CycleReport is the outcome of one full cycle.
type CycleReport struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Sources  []SourceReport
}

// Scheduler runs cycles over a fixed set of registrations.
type Scheduler struct {
	regs     []scraper.Registration
	ingester Ingester
	notifier Notifier
	opts     Options
	metrics  *metrics.Metrics
	log      logger.Logger

	// Cycles never overlap.
	mu sync.Mutex
}

// New creates a Scheduler.
func New(
	regs []scraper.Registration,
	ingester Ingester,
	notifier Notifier,
	opts Options,
	m *metrics.Metrics,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		regs:     regs,
		ingester: ingester,
		notifier: notifier,
		opts:     opts,
		metrics:  m,
		log:      log.With(logger.Component("scheduler")),
	}
}

// RunCycle runs every enabled source in registration order and hands each
// source's new records to the notifier before moving on.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := CycleReport{ID: uuid.NewString(), Started: time.Now()}
	log := s.log.With(logger.String("cycle_id", report.ID))
	log.Info("Scrape cycle started")

	for _, reg := range s.regs {
		if !reg.Enabled {
			continue
		}
		if ctx.Err() != nil {
			log.Warn("Cycle interrupted", logger.Error(ctx.Err()))
			break
		}

		fresh, stats := s.ingester.Run(ctx, reg)
		sr := SourceReport{Nickname: reg.Nickname, New: len(fresh), Stats: stats}

		if len(fresh) > 0 {
			log.Info("New records found",
				logger.String("source", reg.Nickname),
				logger.Int("count", len(fresh)),
			)
			sent, err := s.notifier.Notify(ctx, s.opts.Destination, fresh)
			sr.Notified = sent
			if err != nil {
				log.Warn("Notification batch interrupted",
					logger.String("source", reg.Nickname),
					logger.Error(err),
				)
			}
		} else {
			log.Info("No new records", logger.String("source", reg.Nickname))
		}

		report.Sources = append(report.Sources, sr)
	}

	report.Duration = time.Since(report.Started)
	s.metrics.ObserveCycle(report.Duration)
	log.Info("Scrape cycle complete",
		logger.Int("sources", len(report.Sources)),
		logger.Duration("duration", report.Duration),
	)
	return report
}

// Run blocks, running cycles until ctx is cancelled. The first cycle starts
// immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.Cron != "" {
		return s.runCron(ctx)
	}
	if s.opts.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	for {
		s.RunCycle(ctx)

		s.log.Info("Waiting before next cycle", logger.Duration("interval", s.opts.Interval))
		timer := time.NewTimer(s.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runCron(ctx context.Context) error {
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.opts.Cron, func() { s.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.RunCycle(ctx)

	c.Start()
	s.log.Info("Cron started", logger.String("spec", s.opts.Cron))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("Cron stopped")
	return nil
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, logger.Error(err), logger.Any("details", keysAndValues))
}

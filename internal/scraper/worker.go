package scraper

import (
	"context"
	"errors"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/store"
)

// Stats summarises one ingestion pass for a source.
type Stats struct {
	Scraped    int
	Inserted   int
	Filtered   int
	Duplicates int
	Invalid    int
	Failed     bool
}

// Worker runs the ingestion pipeline for a single registration: adapter,
// normalizer, exclusion filter, novelty check, insert. It is the only writer
// of records into the store.
type Worker struct {
	store   store.Store
	norm    *normalizer.Normalizer
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewWorker constructs a Worker.
func NewWorker(st store.Store, norm *normalizer.Normalizer, m *metrics.Metrics, log logger.Logger) *Worker {
	return &Worker{
		store:   st,
		norm:    norm,
		metrics: m,
		log:     log.With(logger.Component("worker")),
	}
}

// Run executes one pass for reg and returns the records that were absent
// from the store, in adapter order. Adapter errors yield no records and are
// never returned: one failing source must not affect the others.
func (w *Worker) Run(ctx context.Context, reg Registration) ([]model.Record, Stats) {
	log := w.log.With(logger.String("source", reg.Nickname))
	log.Info("Starting scrape", logger.Strings("seeds", reg.Seeds))

	var stats Stats

	raws, err := reg.Adapter.Scrape(ctx, reg.Seeds)
	if err != nil {
		stats.Failed = true
		w.metrics.SourceFailures.WithLabelValues(reg.Nickname).Inc()
		log.Error("Source failed, skipping this cycle", logger.Error(err))
		return nil, stats
	}

	stats.Scraped = len(raws)
	w.metrics.RecordsScraped.WithLabelValues(reg.Nickname).Add(float64(len(raws)))

	if len(raws) == 0 {
		log.Info("No items published")
		return nil, stats
	}

	var fresh []model.Record
	for _, raw := range raws {
		rec, err := w.norm.Normalize(raw, reg.Nickname)
		if err != nil {
			stats.Invalid++
			w.drop(reg.Nickname, metrics.ReasonInvalid)
			log.Warn("Dropping malformed item", logger.Error(err))
			if errors.Is(err, normalizer.ErrUnknownSource) {
				stats.Failed = true
				return fresh, stats
			}
			continue
		}

		if Excluded(rec, reg.Exclude) {
			stats.Filtered++
			w.drop(reg.Nickname, metrics.ReasonExcluded)
			log.Debug("Item excluded", logger.String("title", rec.Title))
			continue
		}

		seen, err := w.store.Exists(ctx, reg.Nickname, rec.Checksum)
		if err != nil {
			w.drop(reg.Nickname, metrics.ReasonStore)
			log.Error("Novelty check failed", logger.String("checksum", rec.Checksum), logger.Error(err))
			continue
		}
		if seen {
			stats.Duplicates++
			continue
		}

		if err := w.store.Insert(ctx, reg.Nickname, rec); err != nil {
			w.drop(reg.Nickname, metrics.ReasonStore)
			log.Error("Insert failed", logger.String("checksum", rec.Checksum), logger.Error(err))
			continue
		}

		stats.Inserted++
		fresh = append(fresh, rec)
		log.Debug("New record", logger.String("title", rec.Title))
	}

	w.metrics.RecordsNew.WithLabelValues(reg.Nickname).Add(float64(stats.Inserted))
	log.Info("Scrape done",
		logger.Int("scraped", stats.Scraped),
		logger.Int("inserted", stats.Inserted),
		logger.Int("filtered", stats.Filtered),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("invalid", stats.Invalid),
	)

	return fresh, stats
}

func (w *Worker) drop(source, reason string) {
	w.metrics.RecordsDropped.WithLabelValues(source, reason).Inc()
}

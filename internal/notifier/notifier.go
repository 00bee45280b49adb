// Package notifier formats new records and emits them to the notification
// channel at a bounded rate.
package notifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/model"
)

// Notifier emits one message per record, spacing messages by a fixed delay.
// The limiter is shared across calls, so the spacing also holds between
// batches of different sources.
type Notifier struct {
	sender  Sender
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     logger.Logger
}

// New creates a Notifier allowing one message per delay. A non-positive
// delay disables spacing.
func New(sender Sender, delay time.Duration, m *metrics.Metrics, log logger.Logger) *Notifier {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Notifier{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
		log:     log.With(logger.Component("notifier")),
	}
}

// Notify sends records to destination in order. A failed send is logged and
// the next record is attempted. Only context cancellation stops the batch.
func (n *Notifier) Notify(ctx context.Context, destination int64, records []model.Record) (int, error) {
	sent := 0
	for _, rec := range records {
		if err := n.limiter.Wait(ctx); err != nil {
			return sent, err
		}

		if err := n.sender.Send(ctx, destination, Format(rec)); err != nil {
			n.metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
			n.log.Error("Failed to send notification",
				logger.String("title", rec.Title),
				logger.String("checksum", rec.Checksum),
				logger.Error(err),
			)
			continue
		}

		n.metrics.Notifications.WithLabelValues(metrics.ResultSent).Inc()
		sent++
	}
	return sent, nil
}

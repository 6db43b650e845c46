// Package relay moves committed outbox events to the message broker.
package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	domoutbox "example.com/storefront/app/internal/domain/outbox"
)

const DefaultBatchSize = 100

type Publisher interface {
	Publish(ctx context.Context, e domoutbox.Event) error
}

type Metrics interface {
	OutboxPublished(topic string)
	OutboxPublishFailed(topic string)
}

type Relay struct {
	repo    domoutbox.Repository
	pub     Publisher
	batch   int
	metrics Metrics
	log     *zap.Logger
}

func New(repo domoutbox.Repository, pub Publisher, metrics Metrics, log *zap.Logger) *Relay {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{repo: repo, pub: pub, batch: DefaultBatchSize, metrics: metrics, log: log}
}

// RunOnce publishes one batch of pending events in id order and returns how
// many were sent. It stops at the first failure so events are never
// delivered out of order; the failed event is retried on the next run.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range events {
		if err := r.pub.Publish(ctx, e); err != nil {
			r.metrics.OutboxPublishFailed(e.Topic)
			return sent, err
		}
		// A failed mark means the event goes out again later. Consumers
		// dedupe on event_id.
		if err := r.repo.MarkSent(ctx, e.ID); err != nil {
			return sent, err
		}
		r.metrics.OutboxPublished(e.Topic)
		sent++
	}
	return sent, nil
}

// Run polls every interval until ctx is done. A full batch is followed
// immediately by another run.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.log.Warn("outbox relay", zap.Int("sent", n), zap.Error(err))
		}
		if err == nil && n == r.batch {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type noopMetrics struct{}

func (noopMetrics) OutboxPublished(string) {}
func (noopMetrics) OutboxPublishFailed(string) {}

// Package worker relays the transactional audit outbox to the event bus.
//
// The relay polls for unpublished outbox entries, publishes them keyed by
// aggregate so per-identity ordering survives partitioning, and marks them
// published only after broker acknowledgement. A circuit breaker shrinks the
// batch to a single probe while the bus is down, so a broker outage costs one
// failed publish per tick instead of a hammering loop.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/circuit"
)

// Outbox serves pending entries and acknowledges relayed ones.
type Outbox interface {
	PendingBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer publishes raw records to the event bus.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Relay drains the audit outbox on an interval.
type Relay struct {
	outbox   Outbox
	producer Producer
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics

	interval  time.Duration
	batchSize int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval sets the poll interval.
func WithInterval(interval time.Duration) Option {
	return func(r *Relay) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithBatchSize caps how many entries one tick relays.
func WithBatchSize(size int) Option {
	return func(r *Relay) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// NewRelay creates a relay over the given outbox and producer.
func NewRelay(outbox Outbox, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		breaker:   circuit.New("audit-bus", circuit.WithFailureThreshold(5)),
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.relayOnce(ctx)
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) {
	limit := r.batchSize
	if r.breaker.IsOpen() {
		// Probe with a single entry while the bus is unhealthy.
		limit = 1
	}

	entries, err := r.outbox.PendingBatch(ctx, limit)
	if err != nil {
		r.logger.Error("load outbox batch failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		topic := audit.TopicFor(audit.AuditEvent(entry.EventType).Category())
		if err := r.producer.Publish(ctx, topic, []byte(entry.AggregateID), entry.Payload); err != nil {
			r.metrics.IncrementFailures()
			if _, change := r.breaker.RecordFailure(); change.Opened {
				r.metrics.SetBreakerOpen(true)
				r.logger.Error("audit bus unhealthy, opening circuit",
					"topic", topic,
					"error", err,
				)
			} else {
				r.logger.Warn("publish outbox entry failed",
					"topic", topic,
					"entry_id", entry.ID,
					"error", err,
				)
			}
			break
		}

		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.metrics.SetBreakerOpen(false)
			r.logger.Info("audit bus recovered, closing circuit")
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return
	}
	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		// Entries will be relayed again; the consumer's idempotent insert
		// absorbs the duplicates.
		r.logger.Error("mark outbox published failed", "count", len(published), "error", err)
		return
	}
	r.metrics.AddRelayed(len(published))
}

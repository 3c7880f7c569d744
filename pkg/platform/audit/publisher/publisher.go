// Package publisher provides the emission side of the audit pipeline.
//
// A Publisher stamps events and hands them to an audit.Store. In sync mode
// the caller blocks until the store write returns; with an async buffer the
// write happens on a background worker and a full buffer drops the event
// rather than stalling the calling operation.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"idregistry/pkg/domain"
	audit "idregistry/pkg/platform/audit"
)

var errBufferFull = errors.New("audit buffer full")

// Publisher persists audit events through a Store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission through a buffered channel of
// the given size. Zero or negative sizes keep the publisher synchronous.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithLogger sets a logger for reporting background persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. A zero timestamp is stamped with the current
// time; a blank category derives from the action. In async mode a full buffer
// drops the event and reports it, so domain operations never block on audit.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
		return errBufferFull
	}
}

// List returns the stored trail for one identity.
func (p *Publisher) List(ctx context.Context, identityID domain.IdentityID) ([]audit.Event, error) {
	return p.store.ListByIdentity(ctx, identityID)
}

// Close drains any buffered events and stops the background worker. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("persist audit event failed", "action", event.Action, "error", err)
		}
	}
}

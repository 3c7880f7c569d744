package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/circuit"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []audit.OutboxEntry
	published []uuid.UUID
	markErr   error
}

func (f *fakeOutbox) PendingBatch(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]audit.OutboxEntry{}, f.pending[:limit]...), nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, ids...)
	remaining := f.pending[:0]
	for _, entry := range f.pending {
		done := false
		for _, id := range ids {
			if entry.ID == id {
				done = true
				break
			}
		}
		if !done {
			remaining = append(remaining, entry)
		}
	}
	f.pending = remaining
	return nil
}

type fakeProducer struct {
	mu       sync.Mutex
	records  map[string][][]byte
	failNext int
}

func (f *fakeProducer) Publish(_ context.Context, topic string, _, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errors.New("broker unavailable")
	}
	if f.records == nil {
		f.records = make(map[string][][]byte)
	}
	f.records[topic] = append(f.records[topic], value)
	return nil
}

func (f *fakeProducer) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[topic])
}

func entry(action audit.AuditEvent, aggregate string) audit.OutboxEntry {
	return audit.OutboxEntry{
		ID:          uuid.New(),
		AggregateID: aggregate,
		EventType:   string(action),
		Payload:     []byte(`{"Action":"` + string(action) + `"}`),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRelay_PublishesBatchByCategory(t *testing.T) {
	outbox := &fakeOutbox{pending: []audit.OutboxEntry{
		entry(audit.EventIdentityRegistered, "1"),
		entry(audit.EventConsentRejected, "0"),
		entry(audit.EventRecoveryForwarded, "2"),
	}}
	producer := &fakeProducer{}
	relay := NewRelay(outbox, producer, discardLogger())

	relay.relayOnce(context.Background())

	assert.Equal(t, 1, producer.count(audit.TopicFor(audit.CategoryCompliance)))
	assert.Equal(t, 1, producer.count(audit.TopicFor(audit.CategorySecurity)))
	assert.Equal(t, 1, producer.count(audit.TopicFor(audit.CategoryOperations)))
	assert.Len(t, outbox.published, 3)
	assert.Empty(t, outbox.pending, "relayed entries should leave the outbox")
}

func TestRelay_FailureKeepsEntriesPending(t *testing.T) {
	first := entry(audit.EventIdentityRegistered, "1")
	second := entry(audit.EventIdentityTransferred, "1")
	outbox := &fakeOutbox{pending: []audit.OutboxEntry{first, second}}
	producer := &fakeProducer{failNext: 1}
	relay := NewRelay(outbox, producer, discardLogger())

	relay.relayOnce(context.Background())

	// First publish failed, batch stopped, nothing marked published.
	assert.Empty(t, outbox.published)
	require.Len(t, outbox.pending, 2)

	// Next tick succeeds and both entries drain in order.
	relay.relayOnce(context.Background())
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, outbox.published)
}

func TestRelay_BreakerShrinksBatchToProbe(t *testing.T) {
	outbox := &fakeOutbox{}
	for range 10 {
		outbox.pending = append(outbox.pending, entry(audit.EventIdentityRegistered, "1"))
	}
	producer := &fakeProducer{failNext: 100}
	relay := NewRelay(outbox, producer, discardLogger())
	relay.breaker = circuit.New("audit-bus", circuit.WithFailureThreshold(1))
	relay.breaker.RecordFailure()
	require.True(t, relay.breaker.IsOpen())

	relay.relayOnce(context.Background())

	// While the breaker is open only one probe entry is attempted.
	assert.Len(t, outbox.pending, 10)
	producer.mu.Lock()
	attempted := producer.failNext
	producer.mu.Unlock()
	assert.Equal(t, 99, attempted, "exactly one probe publish expected")
}

func TestRelay_RecoversAfterOutage(t *testing.T) {
	outbox := &fakeOutbox{pending: []audit.OutboxEntry{
		entry(audit.EventIdentityRegistered, "1"),
	}}
	producer := &fakeProducer{failNext: 5}
	relay := NewRelay(outbox, producer, discardLogger())

	// Five failed ticks open the breaker.
	for range 5 {
		relay.relayOnce(context.Background())
	}
	assert.True(t, relay.breaker.IsOpen())

	// The outage ends; the next probe succeeds and closes the breaker.
	relay.relayOnce(context.Background())
	assert.False(t, relay.breaker.IsOpen())
	assert.Len(t, outbox.published, 1)
}

func TestRelay_MarkPublishedFailureLeavesEntries(t *testing.T) {
	e := entry(audit.EventIdentityRegistered, "1")
	outbox := &fakeOutbox{pending: []audit.OutboxEntry{e}, markErr: errors.New("db down")}
	producer := &fakeProducer{}
	relay := NewRelay(outbox, producer, discardLogger())

	relay.relayOnce(context.Background())

	// Entry stays pending and will be republished; the consumer's idempotent
	// insert absorbs the duplicate.
	assert.Len(t, outbox.pending, 1)
	assert.Equal(t, 1, producer.count(audit.TopicFor(audit.CategoryCompliance)))
}

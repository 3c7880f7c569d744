package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idregistry/internal/platform/kafka/consumer"
	"idregistry/pkg/domain"
	audit "idregistry/pkg/platform/audit"
)

// MaterializeStore persists bus events into the queryable audit table.
type MaterializeStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// MaterializeHandler consumes audit events from the bus and writes them to
// the audit_events table. Malformed messages are logged and committed so they
// never block the partition; store failures are returned so the message is
// redelivered.
type MaterializeHandler struct {
	store  MaterializeStore
	logger *slog.Logger
}

// NewMaterializeHandler creates a materializing event handler.
func NewMaterializeHandler(store MaterializeStore, logger *slog.Logger) *MaterializeHandler {
	return &MaterializeHandler{
		store:  store,
		logger: logger,
	}
}

// eventPayload matches the JSON structure written by the outbox store.
type eventPayload struct {
	ID         string `json:"ID"`
	Category   string `json:"Category"`
	Timestamp  string `json:"Timestamp"`
	IdentityID uint64 `json:"IdentityID"`
	Subject    string `json:"Subject"`
	Actor      string `json:"Actor"`
	Action     string `json:"Action"`
	Reason     string `json:"Reason"`
	IP         string `json:"IP"`
	Device     string `json:"Device"`
	RequestID  string `json:"RequestID"`
}

// Handle materializes one audit event.
func (h *MaterializeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload eventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("failed to unmarshal audit payload",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		// Return nil to commit - malformed messages should not block
		return nil
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		h.logger.Error("failed to parse audit event ID",
			"topic", msg.Topic,
			"event_id", payload.ID,
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		Category:   audit.EventCategory(payload.Category),
		IdentityID: domain.IdentityID(payload.IdentityID),
		Subject:    payload.Subject,
		Actor:      payload.Actor,
		Action:     payload.Action,
		Reason:     payload.Reason,
		IP:         payload.IP,
		Device:     payload.Device,
		RequestID:  payload.RequestID,
	}

	if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
		event.Timestamp = ts
	} else {
		event.Timestamp = time.Now()
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Error("failed to store audit event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store audit event: %w", err)
	}

	h.logger.Debug("materialized audit event",
		"event_id", eventID,
		"action", event.Action,
		"identity_id", uint64(event.IdentityID),
	)

	return nil
}

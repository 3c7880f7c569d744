package consumer

import (
	"context"
	"log/slog"

	"idregistry/internal/platform/kafka/consumer"
	audit "idregistry/pkg/platform/audit"
)

// TopicHandler processes one consumed record.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches consumed records to the trail handler for every audit
// category topic. Records from topics it does not recognize are logged and
// committed, so a topic added by a newer writer cannot wedge the partition.
type Router struct {
	byTopic map[string]TopicHandler
	logger  *slog.Logger
}

// NewRouter binds handler to all audit category topics.
func NewRouter(logger *slog.Logger, handler TopicHandler) *Router {
	topics := audit.Topics()
	byTopic := make(map[string]TopicHandler, len(topics))
	for _, topic := range topics {
		byTopic[topic] = handler
	}
	return &Router{byTopic: byTopic, logger: logger}
}

// Handle routes msg by topic.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.byTopic[msg.Topic]
	if !ok {
		r.logger.Warn("skipping record from unrecognized topic",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}

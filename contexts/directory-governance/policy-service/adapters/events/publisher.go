package events

import (
	"context"
	"log/slog"

	"polaris/contexts/directory-governance/policy-service/ports"
	"polaris/internal/shared/events"
)

// TopicPolicyEvents is the bus topic carrying policy change envelopes.
const TopicPolicyEvents = "directory.policy-events"

// Bus is the minimal publishing surface this adapter needs from the
// platform messaging layer.
type Bus interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

// Publisher emits policy change envelopes onto the event bus.
type Publisher struct {
	bus    Bus
	logger *slog.Logger
}

func NewPublisher(bus Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, logger: logger}
}

func (p Publisher) PublishPolicyChanged(ctx context.Context, event ports.PolicyChangedEvent) error {
	if err := p.bus.Publish(ctx, TopicPolicyEvents, event); err != nil {
		return err
	}
	p.logger.Info("policy changed event published",
		"event", "policy_changed_published",
		"module", "directory-governance/policy-service",
		"layer", "adapter",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// OutboxRelay drains pending outbox rows and publishes them to the event bus.
// Rows are marked published only after a successful publish, so a crash
// between the two steps re-delivers rather than drops.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.PolicyChangedPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("policy outbox list failed",
			"event", "policy_outbox_list_failed",
			"module", "directory-governance/policy-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		event := ports.PolicyChangedEvent{
			EventID:       row.OutboxID,
			EventType:     row.EventType,
			SourceService: "polaris-policy-service",
			OccurredAtUTC: row.CreatedAt,
			SchemaVersion: 1,
			Data:          json.RawMessage(row.Payload),
		}
		if err := r.Publisher.PublishPolicyChanged(ctx, event); err != nil {
			logger.Error("policy outbox publish failed",
				"event", "policy_outbox_publish_failed",
				"module", "directory-governance/policy-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("policy outbox relayed",
			"event", "policy_outbox_relayed",
			"module", "directory-governance/policy-service",
			"layer", "worker",
			"published_count", len(pending),
		)
	}
	return nil
}

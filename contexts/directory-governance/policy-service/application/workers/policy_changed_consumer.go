package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// PolicyChangedConsumer invalidates cached effective settings for every user
// a mutated policy can reach. Applicable policy sets are derived, never
// stored, so invalidation is the only freshness obligation on writes.
type PolicyChangedConsumer struct {
	Dedup         ports.EventDedupStore
	Directory     ports.DirectoryStore
	SettingsCache ports.SettingsCache
	Clock         ports.Clock
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type policyChangedPayload struct {
	PolicyID     string   `json:"policy_id"`
	ActionType   string   `json:"action_type"`
	TargetOUs    []string `json:"target_ous"`
	TargetGroups []string `json:"target_groups"`
}

func (c PolicyChangedConsumer) Handle(ctx context.Context, event ports.PolicyChangedEvent) error {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	alreadyProcessed, err := c.Dedup.ReserveEvent(
		ctx,
		event.EventID,
		hashPayload(event.Data),
		now.Add(c.dedupTTL()),
	)
	if err != nil || alreadyProcessed {
		return err
	}

	var payload policyChangedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return err
	}

	affected := make(map[string]struct{})
	for _, ouID := range payload.TargetOUs {
		members, err := c.Directory.GetOUMembers(ctx, ouID)
		if err != nil {
			return err
		}
		for _, userID := range members {
			affected[userID] = struct{}{}
		}
	}
	for _, groupID := range payload.TargetGroups {
		members, err := c.Directory.GetGroupMembers(ctx, groupID)
		if err != nil {
			return err
		}
		for _, userID := range members {
			affected[userID] = struct{}{}
		}
	}

	for userID := range affected {
		if err := c.SettingsCache.Invalidate(ctx, userID); err != nil {
			return err
		}
	}

	logger := application.ResolveLogger(c.Logger)
	logger.Info("policy change applied to settings cache",
		"event", "policy_changed_cache_invalidated",
		"module", "directory-governance/policy-service",
		"layer", "worker",
		"policy_id", payload.PolicyID,
		"action_type", payload.ActionType,
		"affected_users", len(affected),
	)
	return nil
}

func (c PolicyChangedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

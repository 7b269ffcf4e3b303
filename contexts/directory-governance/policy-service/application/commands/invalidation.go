package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// EventTypePolicyChanged is emitted for every policy mutation.
const EventTypePolicyChanged = "directory.policy_changed"

// PolicyChangedPayload is the data carried inside the policy change
// envelope. Targets cover both the previous and the new bindings so a
// rebind invalidates users who fell out of scope.
type PolicyChangedPayload struct {
	PolicyID     string   `json:"policy_id"`
	ActionType   string   `json:"action_type"`
	TargetOUs    []string `json:"target_ous,omitempty"`
	TargetGroups []string `json:"target_groups,omitempty"`
}

func marshalPolicyChanged(payload PolicyChangedPayload) ([]byte, error) {
	return json.Marshal(payload)
}

// invalidateAffected drops cached effective settings for every user reachable
// from the given targets. Best-effort: a cache miss or directory hiccup only
// delays freshness until the policy-changed consumer runs.
func invalidateAffected(
	ctx context.Context,
	directory ports.DirectoryStore,
	cache ports.SettingsCache,
	logger *slog.Logger,
	targetOUs []string,
	targetGroups []string,
) {
	if cache == nil || directory == nil {
		return
	}

	seen := make(map[string]struct{})
	collect := func(userIDs []string, err error, targetKind string, targetID string) {
		if err != nil {
			logger.Warn("cache invalidation member lookup failed",
				"event", "policy_cache_invalidation_lookup_failed",
				"module", "directory-governance/policy-service",
				"layer", "application",
				"target_kind", targetKind,
				"target_id", targetID,
				"error", err.Error(),
			)
			return
		}
		for _, userID := range userIDs {
			seen[userID] = struct{}{}
		}
	}

	for _, ouID := range targetOUs {
		members, err := directory.GetOUMembers(ctx, ouID)
		collect(members, err, "ou", ouID)
	}
	for _, groupID := range targetGroups {
		members, err := directory.GetGroupMembers(ctx, groupID)
		collect(members, err, "group", groupID)
	}

	for userID := range seen {
		if err := cache.Invalidate(ctx, userID); err != nil {
			logger.Warn("cache invalidation failed",
				"event", "policy_cache_invalidation_failed",
				"module", "directory-governance/policy-service",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
		}
	}
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}

func unionTargets(policy entities.Policy, previous *entities.Policy) ([]string, []string) {
	ous := append([]string(nil), policy.TargetOUs...)
	groups := append([]string(nil), policy.TargetGroups...)
	if previous != nil {
		ous = append(ous, previous.TargetOUs...)
		groups = append(groups, previous.TargetGroups...)
	}
	return dedupe(ous), dedupe(groups)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

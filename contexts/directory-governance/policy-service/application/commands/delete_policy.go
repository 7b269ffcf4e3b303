package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "polaris/contexts/directory-governance/policy-service/application"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// DeletePolicyCommand removes a policy after unbinding it from all targets.
type DeletePolicyCommand struct {
	IdempotencyKey string
	PolicyID       string
}

// DeletePolicyResult reports the removed id and replay status.
type DeletePolicyResult struct {
	PolicyID string `json:"policy_id"`
	Replayed bool   `json:"replayed"`
}

// DeletePolicyUseCase coordinates idempotent policy removal.
type DeletePolicyUseCase struct {
	Policies       ports.PolicyStore
	Directory      ports.DirectoryStore
	Idempotency    ports.IdempotencyStore
	SettingsCache  ports.SettingsCache
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute removes the policy, appends the outbox row, and invalidates cached
// settings for users the policy used to reach.
func (u DeletePolicyUseCase) Execute(ctx context.Context, cmd DeletePolicyCommand) (DeletePolicyResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return DeletePolicyResult{}, domainerrors.ErrIdempotencyKeyRequired
	}
	if strings.TrimSpace(cmd.PolicyID) == "" {
		return DeletePolicyResult{}, domainerrors.ErrInvalidPolicyID
	}

	requestHash, err := hashRequest(cmd)
	if err != nil {
		return DeletePolicyResult{}, err
	}

	idempotencyKey := "policy_idempotency:" + cmd.IdempotencyKey
	now := resolveNow(u.Clock)

	existing, found, err := u.Idempotency.GetRecord(ctx, idempotencyKey, now)
	if err != nil {
		return DeletePolicyResult{}, err
	}
	if found {
		if existing.RequestHash != requestHash {
			return DeletePolicyResult{}, domainerrors.ErrIdempotencyConflict
		}
		var replay DeletePolicyResult
		if err := json.Unmarshal(existing.ResponsePayload, &replay); err != nil {
			return DeletePolicyResult{}, err
		}
		replay.Replayed = true
		return replay, nil
	}

	current, err := u.Policies.GetPolicy(ctx, cmd.PolicyID)
	if err != nil {
		return DeletePolicyResult{}, err
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return DeletePolicyResult{}, err
	}
	eventPayload, err := marshalPolicyChanged(PolicyChangedPayload{
		PolicyID:     current.PolicyID,
		ActionType:   "policy_deleted",
		TargetOUs:    current.TargetOUs,
		TargetGroups: current.TargetGroups,
	})
	if err != nil {
		return DeletePolicyResult{}, err
	}

	if err := u.Policies.DeletePolicy(ctx, ports.DeletePolicyInput{
		PolicyID:     current.PolicyID,
		OutboxID:     outboxID,
		EventType:    EventTypePolicyChanged,
		EventPayload: eventPayload,
	}); err != nil {
		logger.Error("delete policy write failed",
			"event", "policy_delete_write_failed",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"policy_id", current.PolicyID,
			"error", err.Error(),
		)
		return DeletePolicyResult{}, err
	}

	invalidateAffected(ctx, u.Directory, u.SettingsCache, logger, current.TargetOUs, current.TargetGroups)

	result := DeletePolicyResult{PolicyID: current.PolicyID}
	responsePayload, err := json.Marshal(result)
	if err != nil {
		return DeletePolicyResult{}, err
	}
	if err := u.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             idempotencyKey,
		Operation:       "delete_policy",
		RequestHash:     requestHash,
		ResponsePayload: responsePayload,
		ExpiresAt:       now.Add(u.idempotencyTTL()),
	}); err != nil {
		return DeletePolicyResult{}, err
	}

	logger.Info("delete policy completed",
		"event", "policy_delete_completed",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"policy_id", current.PolicyID,
	)
	return result, nil
}

func (u DeletePolicyUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return u.IdempotencyTTL
}

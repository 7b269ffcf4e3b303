package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/domain/services"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// UpdatePolicyCommand replaces a policy wholesale. There are no partial
// patch semantics below the validator; the full settings payload is
// re-validated on every update.
type UpdatePolicyCommand struct {
	IdempotencyKey string
	PolicyID       string
	PolicyName     string
	Description    string
	Type           entities.PolicyType
	Scope          entities.PolicyScope
	TargetOUs      []string
	TargetGroups   []string
	Settings       entities.Settings
	Enforced       bool
	Enabled        bool
	Order          int
}

// UpdatePolicyResult captures the replaced policy and replay status.
type UpdatePolicyResult struct {
	Policy   entities.Policy `json:"policy"`
	Replayed bool            `json:"replayed"`
}

// UpdatePolicyUseCase coordinates idempotent full-policy replacement.
type UpdatePolicyUseCase struct {
	Policies       ports.PolicyStore
	Directory      ports.DirectoryStore
	Idempotency    ports.IdempotencyStore
	SettingsCache  ports.SettingsCache
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute loads the existing record, validates the replacement, persists it
// with an outbox row, and invalidates cached settings for users reachable
// from either the old or the new bindings.
func (u UpdatePolicyUseCase) Execute(ctx context.Context, cmd UpdatePolicyCommand) (UpdatePolicyResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return UpdatePolicyResult{}, domainerrors.ErrIdempotencyKeyRequired
	}
	if strings.TrimSpace(cmd.PolicyID) == "" {
		return UpdatePolicyResult{}, domainerrors.ErrInvalidPolicyID
	}
	if strings.TrimSpace(cmd.PolicyName) == "" {
		return UpdatePolicyResult{}, domainerrors.ErrInvalidPolicyName
	}
	if !cmd.Scope.Valid() {
		return UpdatePolicyResult{}, domainerrors.ErrInvalidPolicyScope
	}
	if err := services.ValidateSettings(cmd.Type, cmd.Settings); err != nil {
		return UpdatePolicyResult{}, err
	}

	requestHash, err := hashRequest(cmd)
	if err != nil {
		return UpdatePolicyResult{}, err
	}

	idempotencyKey := "policy_idempotency:" + cmd.IdempotencyKey
	now := resolveNow(u.Clock)

	existing, found, err := u.Idempotency.GetRecord(ctx, idempotencyKey, now)
	if err != nil {
		return UpdatePolicyResult{}, err
	}
	if found {
		if existing.RequestHash != requestHash {
			return UpdatePolicyResult{}, domainerrors.ErrIdempotencyConflict
		}
		var replay UpdatePolicyResult
		if err := json.Unmarshal(existing.ResponsePayload, &replay); err != nil {
			return UpdatePolicyResult{}, err
		}
		replay.Replayed = true
		return replay, nil
	}

	current, err := u.Policies.GetPolicy(ctx, cmd.PolicyID)
	if err != nil {
		return UpdatePolicyResult{}, err
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return UpdatePolicyResult{}, err
	}

	replacement := entities.Policy{
		PolicyID:     current.PolicyID,
		PolicyName:   cmd.PolicyName,
		Description:  cmd.Description,
		Type:         cmd.Type,
		Scope:        cmd.Scope,
		TargetOUs:    dedupe(cmd.TargetOUs),
		TargetGroups: dedupe(cmd.TargetGroups),
		Settings:     cmd.Settings,
		Enforced:     cmd.Enforced,
		Enabled:      cmd.Enabled,
		Order:        cmd.Order,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    now,
	}

	affectedOUs, affectedGroups := unionTargets(replacement, &current)
	eventPayload, err := marshalPolicyChanged(PolicyChangedPayload{
		PolicyID:     replacement.PolicyID,
		ActionType:   "policy_updated",
		TargetOUs:    affectedOUs,
		TargetGroups: affectedGroups,
	})
	if err != nil {
		return UpdatePolicyResult{}, err
	}

	if err := u.Policies.SavePolicy(ctx, ports.SavePolicyInput{
		Policy:       replacement,
		OutboxID:     outboxID,
		EventType:    EventTypePolicyChanged,
		EventPayload: eventPayload,
	}); err != nil {
		logger.Error("update policy write failed",
			"event", "policy_update_write_failed",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"policy_id", replacement.PolicyID,
			"error", err.Error(),
		)
		return UpdatePolicyResult{}, err
	}

	invalidateAffected(ctx, u.Directory, u.SettingsCache, logger, affectedOUs, affectedGroups)

	result := UpdatePolicyResult{Policy: replacement}
	responsePayload, err := json.Marshal(result)
	if err != nil {
		return UpdatePolicyResult{}, err
	}
	if err := u.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             idempotencyKey,
		Operation:       "update_policy",
		RequestHash:     requestHash,
		ResponsePayload: responsePayload,
		ExpiresAt:       now.Add(u.idempotencyTTL()),
	}); err != nil {
		return UpdatePolicyResult{}, err
	}

	logger.Info("update policy completed",
		"event", "policy_update_completed",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"policy_id", replacement.PolicyID,
	)
	return result, nil
}

func (u UpdatePolicyUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return u.IdempotencyTTL
}

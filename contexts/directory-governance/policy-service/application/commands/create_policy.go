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

// CreatePolicyCommand contains transport-agnostic input for policy creation.
type CreatePolicyCommand struct {
	IdempotencyKey string
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

// CreatePolicyResult captures the persisted policy and replay status.
type CreatePolicyResult struct {
	Policy   entities.Policy `json:"policy"`
	Replayed bool            `json:"replayed"`
}

// CreatePolicyUseCase coordinates validated, idempotent policy creation.
type CreatePolicyUseCase struct {
	Policies       ports.PolicyStore
	Directory      ports.DirectoryStore
	Idempotency    ports.IdempotencyStore
	SettingsCache  ports.SettingsCache
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute validates the settings payload, enforces idempotency, persists the
// policy with its outbox row, and invalidates cached settings for affected
// users. Validation is all-or-nothing; nothing is stored on failure.
func (u CreatePolicyUseCase) Execute(ctx context.Context, cmd CreatePolicyCommand) (CreatePolicyResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("create policy started",
		"event", "policy_create_started",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"policy_name", cmd.PolicyName,
		"policy_type", string(cmd.Type),
	)

	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CreatePolicyResult{}, domainerrors.ErrIdempotencyKeyRequired
	}
	if strings.TrimSpace(cmd.PolicyName) == "" {
		return CreatePolicyResult{}, domainerrors.ErrInvalidPolicyName
	}
	if !cmd.Scope.Valid() {
		return CreatePolicyResult{}, domainerrors.ErrInvalidPolicyScope
	}
	if err := services.ValidateSettings(cmd.Type, cmd.Settings); err != nil {
		logger.Warn("create policy rejected by validator",
			"event", "policy_create_validation_failed",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"policy_name", cmd.PolicyName,
			"policy_type", string(cmd.Type),
			"error", err.Error(),
		)
		return CreatePolicyResult{}, err
	}

	requestHash, err := hashRequest(cmd)
	if err != nil {
		return CreatePolicyResult{}, err
	}

	idempotencyKey := "policy_idempotency:" + cmd.IdempotencyKey
	now := resolveNow(u.Clock)

	existing, found, err := u.Idempotency.GetRecord(ctx, idempotencyKey, now)
	if err != nil {
		return CreatePolicyResult{}, err
	}
	if found {
		if existing.RequestHash != requestHash {
			return CreatePolicyResult{}, domainerrors.ErrIdempotencyConflict
		}
		var replay CreatePolicyResult
		if err := json.Unmarshal(existing.ResponsePayload, &replay); err != nil {
			return CreatePolicyResult{}, err
		}
		replay.Replayed = true
		logger.Info("create policy replayed",
			"event", "policy_create_replayed",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"policy_id", replay.Policy.PolicyID,
		)
		return replay, nil
	}

	policyID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CreatePolicyResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CreatePolicyResult{}, err
	}

	policy := entities.Policy{
		PolicyID:     policyID,
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
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	eventPayload, err := marshalPolicyChanged(PolicyChangedPayload{
		PolicyID:     policy.PolicyID,
		ActionType:   "policy_created",
		TargetOUs:    policy.TargetOUs,
		TargetGroups: policy.TargetGroups,
	})
	if err != nil {
		return CreatePolicyResult{}, err
	}

	if err := u.Policies.SavePolicy(ctx, ports.SavePolicyInput{
		Policy:       policy,
		OutboxID:     outboxID,
		EventType:    EventTypePolicyChanged,
		EventPayload: eventPayload,
	}); err != nil {
		logger.Error("create policy write failed",
			"event", "policy_create_write_failed",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"policy_id", policy.PolicyID,
			"error", err.Error(),
		)
		return CreatePolicyResult{}, err
	}

	invalidateAffected(ctx, u.Directory, u.SettingsCache, logger, policy.TargetOUs, policy.TargetGroups)

	result := CreatePolicyResult{Policy: policy}
	responsePayload, err := json.Marshal(result)
	if err != nil {
		return CreatePolicyResult{}, err
	}
	if err := u.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             idempotencyKey,
		Operation:       "create_policy",
		RequestHash:     requestHash,
		ResponsePayload: responsePayload,
		ExpiresAt:       now.Add(u.idempotencyTTL()),
	}); err != nil {
		return CreatePolicyResult{}, err
	}

	logger.Info("create policy completed",
		"event", "policy_create_completed",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"policy_id", policy.PolicyID,
		"policy_type", string(policy.Type),
		"enforced", policy.Enforced,
	)
	return result, nil
}

func (u CreatePolicyUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return u.IdempotencyTTL
}

package httpadapter

import (
	"context"
	"log/slog"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/application/commands"
	"polaris/contexts/directory-governance/policy-service/application/queries"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	httptransport "polaris/contexts/directory-governance/policy-service/transport/http"
)

// Handler maps HTTP DTOs to application commands/queries.
type Handler struct {
	CreatePolicy         commands.CreatePolicyUseCase
	UpdatePolicy         commands.UpdatePolicyUseCase
	DeletePolicy         commands.DeletePolicyUseCase
	GetPolicy            queries.GetPolicyUseCase
	ListPolicies         queries.ListPoliciesUseCase
	GetEffectiveSettings queries.GetEffectiveSettingsUseCase
	GetConflicts         queries.GetConflictsUseCase
	GetPolicyValue       queries.GetPolicyValueUseCase
	Logger               *slog.Logger
}

// CreatePolicyHandler godoc
// @Summary Create a policy
// @Description Validates the settings payload and stores a new policy with its target bindings.
// @Tags policy-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body httptransport.PolicyRequest true "Policy definition"
// @Success 200 {object} httptransport.CreatePolicyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /api/policy/v1/policies [post]
func (h Handler) CreatePolicyHandler(
	ctx context.Context,
	idempotencyKey string,
	request httptransport.PolicyRequest,
) (httptransport.CreatePolicyResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http create policy received",
		"event", "policy_http_create_received",
		"module", "directory-governance/policy-service",
		"layer", "transport",
		"policy_name", request.PolicyName,
		"policy_type", request.Type,
	)

	result, err := h.CreatePolicy.Execute(ctx, commands.CreatePolicyCommand{
		IdempotencyKey: idempotencyKey,
		PolicyName:     request.PolicyName,
		Description:    request.Description,
		Type:           entities.PolicyType(request.Type),
		Scope:          entities.PolicyScope(request.Scope),
		TargetOUs:      request.TargetOUs,
		TargetGroups:   request.TargetGroups,
		Settings:       request.Settings,
		Enforced:       request.Enforced,
		Enabled:        request.Enabled,
		Order:          request.Order,
	})
	if err != nil {
		logger.Error("http create policy failed",
			"event", "policy_http_create_failed",
			"module", "directory-governance/policy-service",
			"layer", "transport",
			"policy_name", request.PolicyName,
			"error", err.Error(),
		)
		return httptransport.CreatePolicyResponse{}, err
	}
	return httptransport.CreatePolicyResponse{
		Policy:   toPolicyDTO(result.Policy),
		Replayed: result.Replayed,
	}, nil
}

// UpdatePolicyHandler godoc
// @Summary Replace a policy
// @Description Replaces the stored policy wholesale; partial updates are not supported.
// @Tags policy-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param policy_id path string true "Policy id"
// @Param request body httptransport.PolicyRequest true "Full replacement policy"
// @Success 200 {object} httptransport.UpdatePolicyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/policy/v1/policies/{policy_id} [put]
func (h Handler) UpdatePolicyHandler(
	ctx context.Context,
	idempotencyKey string,
	policyID string,
	request httptransport.PolicyRequest,
) (httptransport.UpdatePolicyResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http update policy received",
		"event", "policy_http_update_received",
		"module", "directory-governance/policy-service",
		"layer", "transport",
		"policy_id", policyID,
	)

	result, err := h.UpdatePolicy.Execute(ctx, commands.UpdatePolicyCommand{
		IdempotencyKey: idempotencyKey,
		PolicyID:       policyID,
		PolicyName:     request.PolicyName,
		Description:    request.Description,
		Type:           entities.PolicyType(request.Type),
		Scope:          entities.PolicyScope(request.Scope),
		TargetOUs:      request.TargetOUs,
		TargetGroups:   request.TargetGroups,
		Settings:       request.Settings,
		Enforced:       request.Enforced,
		Enabled:        request.Enabled,
		Order:          request.Order,
	})
	if err != nil {
		logger.Error("http update policy failed",
			"event", "policy_http_update_failed",
			"module", "directory-governance/policy-service",
			"layer", "transport",
			"policy_id", policyID,
			"error", err.Error(),
		)
		return httptransport.UpdatePolicyResponse{}, err
	}
	return httptransport.UpdatePolicyResponse{
		Policy:   toPolicyDTO(result.Policy),
		Replayed: result.Replayed,
	}, nil
}

// DeletePolicyHandler godoc
// @Summary Delete a policy
// @Description Removes the policy and all of its target bindings.
// @Tags policy-service
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param policy_id path string true "Policy id"
// @Success 200 {object} httptransport.DeletePolicyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/policy/v1/policies/{policy_id} [delete]
func (h Handler) DeletePolicyHandler(
	ctx context.Context,
	idempotencyKey string,
	policyID string,
) (httptransport.DeletePolicyResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http delete policy received",
		"event", "policy_http_delete_received",
		"module", "directory-governance/policy-service",
		"layer", "transport",
		"policy_id", policyID,
	)

	result, err := h.DeletePolicy.Execute(ctx, commands.DeletePolicyCommand{
		IdempotencyKey: idempotencyKey,
		PolicyID:       policyID,
	})
	if err != nil {
		logger.Error("http delete policy failed",
			"event", "policy_http_delete_failed",
			"module", "directory-governance/policy-service",
			"layer", "transport",
			"policy_id", policyID,
			"error", err.Error(),
		)
		return httptransport.DeletePolicyResponse{}, err
	}
	return httptransport.DeletePolicyResponse{
		PolicyID: result.PolicyID,
		Replayed: result.Replayed,
	}, nil
}

// GetPolicyHandler returns one stored policy by id.
func (h Handler) GetPolicyHandler(ctx context.Context, policyID string) (httptransport.PolicyDTO, error) {
	policy, err := h.GetPolicy.Execute(ctx, policyID)
	if err != nil {
		return httptransport.PolicyDTO{}, err
	}
	return toPolicyDTO(policy), nil
}

// ListPoliciesHandler returns every stored policy, enabled or not.
func (h Handler) ListPoliciesHandler(ctx context.Context) (httptransport.ListPoliciesResponse, error) {
	policies, err := h.ListPolicies.Execute(ctx)
	if err != nil {
		return httptransport.ListPoliciesResponse{}, err
	}
	items := make([]httptransport.PolicyDTO, 0, len(policies))
	for _, policy := range policies {
		items = append(items, toPolicyDTO(policy))
	}
	return httptransport.ListPoliciesResponse{Policies: items}, nil
}

// GetEffectiveSettingsHandler godoc
// @Summary Resolve effective settings
// @Description Resolves the merged configuration for a user across every applicable policy.
// @Tags policy-service
// @Produce json
// @Param user_id path string true "User id"
// @Param skip_cache query bool false "Force full recomputation"
// @Success 200 {object} httptransport.EffectiveSettingsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /api/policy/v1/users/{user_id}/effective-settings [get]
func (h Handler) GetEffectiveSettingsHandler(
	ctx context.Context,
	userID string,
	skipCache bool,
) (httptransport.EffectiveSettingsResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Debug("http effective settings received",
		"event", "policy_http_effective_received",
		"module", "directory-governance/policy-service",
		"layer", "transport",
		"user_id", userID,
	)

	effective, err := h.GetEffectiveSettings.Execute(ctx, queries.GetEffectiveSettingsQuery{
		UserID:    userID,
		SkipCache: skipCache,
	})
	if err != nil {
		logger.Error("http effective settings failed",
			"event", "policy_http_effective_failed",
			"module", "directory-governance/policy-service",
			"layer", "transport",
			"user_id", userID,
			"error", err.Error(),
		)
		return httptransport.EffectiveSettingsResponse{}, err
	}

	resolved := make(map[string]httptransport.ResolvedPolicyDTO, len(effective.Types))
	for policyType, entry := range effective.Types {
		resolved[string(policyType)] = httptransport.ResolvedPolicyDTO{
			Settings:        entry.Settings,
			SourcePolicyIDs: entry.SourcePolicyIDs,
		}
	}
	return httptransport.EffectiveSettingsResponse{
		UserID:   effective.UserID,
		Policies: resolved,
	}, nil
}

// GetConflictsHandler godoc
// @Summary Report policy conflicts
// @Description Reports disagreements among a user's applicable policies with suggested resolutions.
// @Tags policy-service
// @Produce json
// @Param user_id path string true "User id"
// @Success 200 {object} httptransport.ConflictsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/policy/v1/users/{user_id}/conflicts [get]
func (h Handler) GetConflictsHandler(ctx context.Context, userID string) (httptransport.ConflictsResponse, error) {
	conflicts, err := h.GetConflicts.Execute(ctx, queries.GetConflictsQuery{UserID: userID})
	if err != nil {
		return httptransport.ConflictsResponse{}, err
	}

	items := make([]httptransport.ConflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		values := make([]httptransport.ConflictingValueDTO, 0, len(conflict.ConflictingValues))
		for _, value := range conflict.ConflictingValues {
			values = append(values, httptransport.ConflictingValueDTO{
				PolicyID: value.PolicyID,
				Value:    value.Value,
			})
		}
		items = append(items, httptransport.ConflictDTO{
			Type:              conflict.Type,
			PolicyType:        string(conflict.PolicyType),
			SettingPath:       conflict.SettingPath,
			ConflictingValues: values,
			Resolution:        string(conflict.Resolution),
			Severity:          string(conflict.Severity),
		})
	}
	return httptransport.ConflictsResponse{
		UserID:    userID,
		Conflicts: items,
	}, nil
}

// GetPolicyValueHandler projects a single effective setting for a user.
func (h Handler) GetPolicyValueHandler(
	ctx context.Context,
	userID string,
	policyType string,
	settingPath string,
) (httptransport.PolicyValueResponse, error) {
	result, err := h.GetPolicyValue.Execute(ctx, queries.GetPolicyValueQuery{
		UserID:      userID,
		PolicyType:  entities.PolicyType(policyType),
		SettingPath: settingPath,
	})
	if err != nil {
		return httptransport.PolicyValueResponse{}, err
	}
	return httptransport.PolicyValueResponse{
		UserID:      userID,
		PolicyType:  policyType,
		SettingPath: settingPath,
		Value:       result.Value,
		Set:         result.Set,
	}, nil
}

func toPolicyDTO(policy entities.Policy) httptransport.PolicyDTO {
	return httptransport.PolicyDTO{
		PolicyID:     policy.PolicyID,
		PolicyName:   policy.PolicyName,
		Description:  policy.Description,
		Type:         string(policy.Type),
		Scope:        string(policy.Scope),
		TargetOUs:    policy.TargetOUs,
		TargetGroups: policy.TargetGroups,
		Settings:     policy.Settings,
		Enforced:     policy.Enforced,
		Enabled:      policy.Enabled,
		Order:        policy.Order,
		CreatedAt:    policy.CreatedAt,
		UpdatedAt:    policy.UpdatedAt,
	}
}

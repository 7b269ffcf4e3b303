package queries

import (
	"context"
	"strings"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// GetPolicyUseCase reads a single policy record by id.
type GetPolicyUseCase struct {
	Policies ports.PolicyStore
}

func (u GetPolicyUseCase) Execute(ctx context.Context, policyID string) (entities.Policy, error) {
	if strings.TrimSpace(policyID) == "" {
		return entities.Policy{}, domainerrors.ErrInvalidPolicyID
	}
	return u.Policies.GetPolicy(ctx, policyID)
}

// ListPoliciesUseCase reads every stored policy, enabled or not.
type ListPoliciesUseCase struct {
	Policies ports.PolicyStore
}

func (u ListPoliciesUseCase) Execute(ctx context.Context) ([]entities.Policy, error) {
	return u.Policies.ListPolicies(ctx)
}

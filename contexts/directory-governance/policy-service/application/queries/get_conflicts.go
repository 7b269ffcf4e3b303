package queries

import (
	"context"
	"log/slog"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	"polaris/contexts/directory-governance/policy-service/domain/services"
)

// GetConflictsQuery is the request model for conflict inspection.
type GetConflictsQuery struct {
	UserID string
}

// GetConflictsUseCase reports disagreements between a user's applicable
// policies. Conflicts are informational: resolution proceeds with the
// deterministic merge even when the report is non-empty.
type GetConflictsUseCase struct {
	Membership MembershipResolver
	Collector  PolicyCollector
	Logger     *slog.Logger
}

// Execute returns the conflict list for a user, empty when nothing disagrees.
func (u GetConflictsUseCase) Execute(
	ctx context.Context,
	query GetConflictsQuery,
) ([]entities.PolicyConflict, error) {
	membership, err := u.Membership.Resolve(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	policies, err := u.Collector.Collect(ctx, membership)
	if err != nil {
		return nil, err
	}

	conflicts := services.DetectConflicts(policies)
	if len(conflicts) > 0 {
		logger := application.ResolveLogger(u.Logger)
		logger.Info("policy conflicts detected",
			"event", "policy_conflicts_detected",
			"module", "directory-governance/policy-service",
			"layer", "application",
			"user_id", query.UserID,
			"conflict_count", len(conflicts),
		)
	}
	return conflicts, nil
}

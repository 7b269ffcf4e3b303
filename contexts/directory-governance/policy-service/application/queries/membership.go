package queries

import (
	"context"
	"log/slog"
	"strings"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// Membership is the ordered set of targets whose policies apply to a user:
// the OU ancestry in root-to-self order plus the flat group membership set.
type Membership struct {
	User     entities.EnterpriseUser
	OUs      []entities.OrganizationUnit
	GroupIDs []string
}

// MembershipResolver is a read-only projection over the directory graph.
// It performs no merging of its own.
type MembershipResolver struct {
	Directory ports.DirectoryStore
	Logger    *slog.Logger
}

// Resolve returns the user's OU chain and group set, failing with the
// user-not-found sentinel when the user does not exist.
func (r MembershipResolver) Resolve(ctx context.Context, userID string) (Membership, error) {
	if strings.TrimSpace(userID) == "" {
		return Membership{}, domainerrors.ErrInvalidUserID
	}

	user, err := r.Directory.GetUser(ctx, userID)
	if err != nil {
		return Membership{}, err
	}

	membership := Membership{
		User:     user,
		GroupIDs: append([]string(nil), user.GroupIDs...),
	}
	if user.OUID != "" {
		ancestry, err := r.Directory.GetOUAncestry(ctx, user.OUID)
		if err != nil {
			return Membership{}, err
		}
		membership.OUs = ancestry
	}

	logger := application.ResolveLogger(r.Logger)
	logger.Debug("membership resolved",
		"event", "policy_membership_resolved",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"user_id", userID,
		"ou_count", len(membership.OUs),
		"group_count", len(membership.GroupIDs),
	)
	return membership, nil
}

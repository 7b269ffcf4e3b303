package queries

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// PolicyCollector gathers every enabled policy bound to any of the user's
// membership targets. Per-target fetches carry no ordering dependency, so
// they run concurrently and are joined before resolution; the precedence
// sort inside the resolver is the only meaningful order.
type PolicyCollector struct {
	Policies ports.PolicyStore
	Logger   *slog.Logger
}

// Collect fetches policies for each OU in the ancestry chain and each group,
// deduplicates policies reachable through several targets, and drops disabled
// policies so they never surface in resolution or conflict output. The result
// is sorted by policy id for a deterministic return value.
func (c PolicyCollector) Collect(
	ctx context.Context,
	membership Membership,
) ([]entities.Policy, error) {
	var mu sync.Mutex
	collected := make(map[string]entities.Policy)

	add := func(policies []entities.Policy) {
		mu.Lock()
		defer mu.Unlock()
		for _, policy := range policies {
			if !policy.Enabled {
				continue
			}
			collected[policy.PolicyID] = policy
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, ou := range membership.OUs {
		ouID := ou.OUID
		group.Go(func() error {
			policies, err := c.Policies.GetPoliciesForOU(groupCtx, ouID)
			if err != nil {
				return err
			}
			add(policies)
			return nil
		})
	}
	for _, groupID := range membership.GroupIDs {
		groupID := groupID
		group.Go(func() error {
			policies, err := c.Policies.GetPoliciesForGroup(groupCtx, groupID)
			if err != nil {
				return err
			}
			add(policies)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	items := make([]entities.Policy, 0, len(collected))
	for _, policy := range collected {
		items = append(items, policy)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PolicyID < items[j].PolicyID
	})

	logger := application.ResolveLogger(c.Logger)
	logger.Debug("policies collected",
		"event", "policy_collect_completed",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"user_id", membership.User.UserID,
		"policy_count", len(items),
	)
	return items, nil
}

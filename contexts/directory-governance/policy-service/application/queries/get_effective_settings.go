package queries

import (
	"context"
	"log/slog"
	"time"

	application "polaris/contexts/directory-governance/policy-service/application"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	"polaris/contexts/directory-governance/policy-service/domain/services"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// GetEffectiveSettingsQuery is the request model for effective resolution.
type GetEffectiveSettingsQuery struct {
	UserID string
	// SkipCache forces a full recomputation even when a cached entry exists.
	SkipCache bool
}

// GetEffectiveSettingsUseCase orchestrates membership resolution, policy
// collection, and the precedence fold. It is the single effective-settings
// contract exposed to callers; resolution either fully succeeds or fails,
// never returning a partial result.
type GetEffectiveSettingsUseCase struct {
	Membership MembershipResolver
	Collector  PolicyCollector
	Cache      ports.SettingsCache
	Clock      ports.Clock
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

// Execute returns the merged configuration for a user. Cache errors degrade
// to a recomputation rather than failing the read, since resolution is pure.
func (u GetEffectiveSettingsUseCase) Execute(
	ctx context.Context,
	query GetEffectiveSettingsQuery,
) (entities.EffectiveSettings, error) {
	logger := application.ResolveLogger(u.Logger)
	now := u.now()

	if u.Cache != nil && !query.SkipCache {
		cached, hit, err := u.Cache.Get(ctx, query.UserID, now)
		if err != nil {
			logger.Warn("settings cache read failed, recomputing",
				"event", "policy_cache_read_failed",
				"module", "directory-governance/policy-service",
				"layer", "application",
				"user_id", query.UserID,
				"error", err.Error(),
			)
		} else if hit {
			return cached, nil
		}
	}

	membership, err := u.Membership.Resolve(ctx, query.UserID)
	if err != nil {
		return entities.EffectiveSettings{}, err
	}
	policies, err := u.Collector.Collect(ctx, membership)
	if err != nil {
		return entities.EffectiveSettings{}, err
	}

	effective := services.ResolveEffective(query.UserID, policies)
	logger.Debug("effective settings resolved",
		"event", "policy_resolution_completed",
		"module", "directory-governance/policy-service",
		"layer", "application",
		"user_id", query.UserID,
		"policy_count", len(policies),
		"type_count", len(effective.Types),
	)

	if u.Cache != nil {
		if err := u.Cache.Set(ctx, query.UserID, effective, now.Add(u.cacheTTL())); err != nil {
			logger.Warn("settings cache write failed",
				"event", "policy_cache_write_failed",
				"module", "directory-governance/policy-service",
				"layer", "application",
				"user_id", query.UserID,
				"error", err.Error(),
			)
		}
	}
	return effective, nil
}

func (u GetEffectiveSettingsUseCase) cacheTTL() time.Duration {
	if u.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return u.CacheTTL
}

func (u GetEffectiveSettingsUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

package services

import (
	"sort"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

// mergeFuncs dispatches the per-type field-wise merge via the union tag.
var mergeFuncs = map[entities.PolicyType]func(dst *entities.Settings, src entities.Settings, enforced bool){
	entities.PolicyTypePassword:      mergePassword,
	entities.PolicyTypeSession:       mergeSession,
	entities.PolicyTypeAccessControl: mergeAccessControl,
	entities.PolicyTypeAudit:         mergeAudit,
	entities.PolicyTypeApplication:   mergeApplication,
	entities.PolicyTypeNetwork:       mergeNetwork,
}

// OrderPolicies returns the deterministic precedence order for one type:
// enforced policies first, then ascending order value, with policy id as the
// final tie-break so resolution is a pure function of the policy set rather
// than of input list order. The input slice is not mutated.
func OrderPolicies(policies []entities.Policy) []entities.Policy {
	ordered := append([]entities.Policy(nil), policies...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Enforced != ordered[j].Enforced {
			return ordered[i].Enforced
		}
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].PolicyID < ordered[j].PolicyID
	})
	return ordered
}

// ResolveEffective merges the applicable policies into one configuration per
// policy type. Within a type the policies are folded left-to-right in
// precedence order: an enforced policy's fields overwrite the accumulator
// (later-enforced wins among enforced), a non-enforced policy's fields apply
// only where the accumulator has no value yet (first non-enforced writer
// wins per field). Types with no applicable policy yield no entry.
func ResolveEffective(userID string, policies []entities.Policy) entities.EffectiveSettings {
	byType := make(map[entities.PolicyType][]entities.Policy)
	for _, policy := range policies {
		if !policy.Enabled {
			continue
		}
		if !policy.Settings.Matches(policy.Type) {
			continue
		}
		byType[policy.Type] = append(byType[policy.Type], policy)
	}

	resolved := make(map[entities.PolicyType]entities.ResolvedPolicy, len(byType))
	for policyType, group := range byType {
		merge, ok := mergeFuncs[policyType]
		if !ok {
			continue
		}
		ordered := OrderPolicies(group)
		accumulator := entities.Settings{}
		sources := make([]string, 0, len(ordered))
		for _, policy := range ordered {
			merge(&accumulator, policy.Settings, policy.Enforced)
			sources = append(sources, policy.PolicyID)
		}
		resolved[policyType] = entities.ResolvedPolicy{
			Settings:        accumulator,
			SourcePolicyIDs: sources,
		}
	}

	return entities.EffectiveSettings{
		UserID: userID,
		Types:  resolved,
	}
}

// mergeScalar applies one optional field: enforced contributions overwrite,
// non-enforced contributions fill only unset fields.
func mergeScalar[T any](dst **T, src *T, enforced bool) {
	if src == nil {
		return
	}
	if enforced || *dst == nil {
		value := *src
		*dst = &value
	}
}

// mergeList treats a non-empty slice as a set value and copies on write.
func mergeList[T any](dst *[]T, src []T, enforced bool) {
	if len(src) == 0 {
		return
	}
	if enforced || len(*dst) == 0 {
		*dst = append([]T(nil), src...)
	}
}

func mergePassword(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.Password == nil {
		dst.Password = &entities.PasswordSettings{}
	}
	in := src.Password
	mergeScalar(&dst.Password.MinimumLength, in.MinimumLength, enforced)
	mergeScalar(&dst.Password.MaximumAge, in.MaximumAge, enforced)
	mergeScalar(&dst.Password.HistoryCount, in.HistoryCount, enforced)
	mergeScalar(&dst.Password.LockoutThreshold, in.LockoutThreshold, enforced)
	mergeScalar(&dst.Password.RequireUppercase, in.RequireUppercase, enforced)
	mergeScalar(&dst.Password.RequireLowercase, in.RequireLowercase, enforced)
	mergeScalar(&dst.Password.RequireNumbers, in.RequireNumbers, enforced)
	mergeScalar(&dst.Password.RequireSpecialChars, in.RequireSpecialChars, enforced)
}

func mergeSession(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.Session == nil {
		dst.Session = &entities.SessionSettings{}
	}
	in := src.Session
	mergeScalar(&dst.Session.MaxSessionDuration, in.MaxSessionDuration, enforced)
	mergeScalar(&dst.Session.IdleTimeout, in.IdleTimeout, enforced)
	mergeScalar(&dst.Session.ConcurrentSessionLimit, in.ConcurrentSessionLimit, enforced)
	mergeScalar(&dst.Session.RequireMFA, in.RequireMFA, enforced)
}

func mergeAccessControl(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.AccessControl == nil {
		dst.AccessControl = &entities.AccessControlSettings{}
	}
	in := src.AccessControl
	mergeList(&dst.AccessControl.IPWhitelist, in.IPWhitelist, enforced)
	mergeList(&dst.AccessControl.IPBlacklist, in.IPBlacklist, enforced)
	mergeList(&dst.AccessControl.AllowedTimeRanges, in.AllowedTimeRanges, enforced)
}

func mergeAudit(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.Audit == nil {
		dst.Audit = &entities.AuditSettings{}
	}
	in := src.Audit
	mergeScalar(&dst.Audit.RetentionDays, in.RetentionDays, enforced)
	mergeScalar(&dst.Audit.LogLogins, in.LogLogins, enforced)
	mergeScalar(&dst.Audit.LogChanges, in.LogChanges, enforced)
	mergeList(&dst.Audit.AlertThresholds, in.AlertThresholds, enforced)
}

func mergeApplication(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.Application == nil {
		dst.Application = &entities.ApplicationSettings{}
	}
	mergeList(&dst.Application.Permissions, src.Application.Permissions, enforced)
}

func mergeNetwork(dst *entities.Settings, src entities.Settings, enforced bool) {
	if dst.Network == nil {
		dst.Network = &entities.NetworkSettings{}
	}
	in := src.Network
	mergeList(&dst.Network.AllowedCIDRs, in.AllowedCIDRs, enforced)
	mergeList(&dst.Network.BlockedCIDRs, in.BlockedCIDRs, enforced)
	mergeList(&dst.Network.FirewallRules, in.FirewallRules, enforced)
}

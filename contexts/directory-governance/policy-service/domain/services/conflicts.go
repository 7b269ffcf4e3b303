package services

import (
	"reflect"
	"sort"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

// conflictRule detects multiplicity for one logical setting. extract returns
// the policy's value for the setting and whether the policy sets it at all.
// When requireDistinct is false the rule fires as soon as two policies set the
// setting, even to equal values (used for whitelists, where overlapping
// sources are themselves operator-actionable).
type conflictRule struct {
	settingPath     string
	resolution      entities.ResolutionStrategy
	severity        entities.ConflictSeverity
	requireDistinct bool
	extract         func(entities.Settings) (any, bool)
}

var conflictRules = map[entities.PolicyType][]conflictRule{
	entities.PolicyTypePassword: {
		{
			settingPath:     "minimumLength",
			resolution:      entities.ResolutionMax,
			severity:        entities.SeverityMedium,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Password.MinimumLength)
			},
		},
		{
			settingPath:     "maximumAge",
			resolution:      entities.ResolutionMin,
			severity:        entities.SeverityMedium,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Password.MaximumAge)
			},
		},
	},
	entities.PolicyTypeSession: {
		{
			settingPath:     "maxSessionDuration",
			resolution:      entities.ResolutionMin,
			severity:        entities.SeverityHigh,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Session.MaxSessionDuration)
			},
		},
		{
			settingPath:     "idleTimeout",
			resolution:      entities.ResolutionMin,
			severity:        entities.SeverityMedium,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Session.IdleTimeout)
			},
		},
		{
			settingPath:     "concurrentSessionLimit",
			resolution:      entities.ResolutionMin,
			severity:        entities.SeverityLow,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Session.ConcurrentSessionLimit)
			},
		},
	},
	entities.PolicyTypeAccessControl: {
		{
			settingPath:     "ipWhitelist",
			resolution:      entities.ResolutionIntersection,
			severity:        entities.SeverityHigh,
			requireDistinct: false,
			extract: func(s entities.Settings) (any, bool) {
				return listValue(s.AccessControl.IPWhitelist)
			},
		},
	},
	entities.PolicyTypeAudit: {
		{
			settingPath:     "retentionDays",
			resolution:      entities.ResolutionMax,
			severity:        entities.SeverityMedium,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return intValue(s.Audit.RetentionDays)
			},
		},
	},
	entities.PolicyTypeNetwork: {
		{
			settingPath:     "allowedCidrs",
			resolution:      entities.ResolutionIntersection,
			severity:        entities.SeverityHigh,
			requireDistinct: true,
			extract: func(s entities.Settings) (any, bool) {
				return listValue(s.Network.AllowedCIDRs)
			},
		},
	},
}

// DetectConflicts inspects a policy set for same-type settings that disagree,
// independent of merge order, so operators can see disagreement even when
// resolution would silently pick a winner. Disabled policies contribute
// nothing. Values are reported in the resolver's precedence order, which also
// makes the report deterministic with respect to input ordering.
func DetectConflicts(policies []entities.Policy) []entities.PolicyConflict {
	byType := make(map[entities.PolicyType][]entities.Policy)
	for _, policy := range policies {
		if !policy.Enabled || !policy.Settings.Matches(policy.Type) {
			continue
		}
		byType[policy.Type] = append(byType[policy.Type], policy)
	}

	conflicts := make([]entities.PolicyConflict, 0)
	for _, policyType := range entities.PolicyTypes {
		group, ok := byType[policyType]
		if !ok || len(group) < 2 {
			continue
		}
		ordered := OrderPolicies(group)
		for _, rule := range conflictRules[policyType] {
			values := make([]entities.ConflictingValue, 0, len(ordered))
			for _, policy := range ordered {
				value, set := rule.extract(policy.Settings)
				if !set {
					continue
				}
				values = append(values, entities.ConflictingValue{
					PolicyID: policy.PolicyID,
					Value:    value,
				})
			}
			if len(values) < 2 {
				continue
			}
			if rule.requireDistinct && countDistinct(values) < 2 {
				continue
			}
			conflicts = append(conflicts, entities.PolicyConflict{
				Type:              entities.ConflictTypeSettingMismatch,
				PolicyType:        policyType,
				SettingPath:       rule.settingPath,
				ConflictingValues: values,
				Resolution:        rule.resolution,
				Severity:          rule.severity,
			})
		}
	}
	return conflicts
}

func intValue(value *int) (any, bool) {
	if value == nil {
		return nil, false
	}
	return *value, true
}

// listValue normalizes a slice setting so equality is order-insensitive.
func listValue(values []string) (any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	normalized := append([]string(nil), values...)
	sort.Strings(normalized)
	return normalized, true
}

func countDistinct(values []entities.ConflictingValue) int {
	distinct := make([]any, 0, len(values))
	for _, candidate := range values {
		seen := false
		for _, existing := range distinct {
			if reflect.DeepEqual(existing, candidate.Value) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, candidate.Value)
		}
	}
	return len(distinct)
}

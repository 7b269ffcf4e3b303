package services

import (
	"reflect"
	"testing"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

func TestDetectConflictsReportsValuesInPrecedenceOrder(t *testing.T) {
	strict := passwordPolicy("pol-strict", 1, true, 12)
	loose := passwordPolicy("pol-loose", 2, false, 8)

	for _, input := range [][]entities.Policy{
		{strict, loose},
		{loose, strict},
	} {
		conflicts := DetectConflicts(input)
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %d", len(conflicts))
		}
		conflict := conflicts[0]
		if conflict.Type != entities.ConflictTypeSettingMismatch {
			t.Fatalf("unexpected conflict type %s", conflict.Type)
		}
		if conflict.PolicyType != entities.PolicyTypePassword || conflict.SettingPath != "minimumLength" {
			t.Fatalf("unexpected conflict target %s/%s", conflict.PolicyType, conflict.SettingPath)
		}
		if conflict.Resolution != entities.ResolutionMax || conflict.Severity != entities.SeverityMedium {
			t.Fatalf("unexpected rule metadata %s/%s", conflict.Resolution, conflict.Severity)
		}
		want := []entities.ConflictingValue{
			{PolicyID: "pol-strict", Value: 12},
			{PolicyID: "pol-loose", Value: 8},
		}
		if !reflect.DeepEqual(conflict.ConflictingValues, want) {
			t.Fatalf("expected values %v, got %v", want, conflict.ConflictingValues)
		}
	}
}

func TestDetectConflictsIgnoresEqualScalars(t *testing.T) {
	conflicts := DetectConflicts([]entities.Policy{
		passwordPolicy("pol-a", 1, false, 10),
		passwordPolicy("pol-b", 2, false, 10),
	})
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflict for equal values, got %v", conflicts)
	}
}

func TestDetectConflictsIgnoresDisabledPolicies(t *testing.T) {
	disabled := passwordPolicy("pol-off", 1, true, 20)
	disabled.Enabled = false

	conflicts := DetectConflicts([]entities.Policy{
		disabled,
		passwordPolicy("pol-on", 2, false, 8),
	})
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflict with a single enabled policy, got %v", conflicts)
	}
}

func TestDetectConflictsWhitelistOverlapAlwaysReported(t *testing.T) {
	whitelist := func(id string, order int, ips ...string) entities.Policy {
		return entities.Policy{
			PolicyID: id,
			Type:     entities.PolicyTypeAccessControl,
			Enabled:  true,
			Order:    order,
			Settings: entities.Settings{
				AccessControl: &entities.AccessControlSettings{IPWhitelist: ips},
			},
		}
	}
	conflicts := DetectConflicts([]entities.Policy{
		whitelist("pol-a", 1, "10.0.0.2", "10.0.0.1"),
		whitelist("pol-b", 2, "10.0.0.1", "10.0.0.2"),
	})
	if len(conflicts) != 1 {
		t.Fatalf("expected whitelist conflict even for identical lists, got %d", len(conflicts))
	}
	conflict := conflicts[0]
	if conflict.Resolution != entities.ResolutionIntersection || conflict.Severity != entities.SeverityHigh {
		t.Fatalf("unexpected rule metadata %s/%s", conflict.Resolution, conflict.Severity)
	}
	sorted := []string{"10.0.0.1", "10.0.0.2"}
	for _, value := range conflict.ConflictingValues {
		if !reflect.DeepEqual(value.Value, sorted) {
			t.Fatalf("expected sorted list %v, got %v", sorted, value.Value)
		}
	}
}

func TestDetectConflictsMultipleRulesPerType(t *testing.T) {
	session := func(id string, order int, maxDuration, idle int) entities.Policy {
		return entities.Policy{
			PolicyID: id,
			Type:     entities.PolicyTypeSession,
			Enabled:  true,
			Order:    order,
			Settings: entities.Settings{
				Session: &entities.SessionSettings{
					MaxSessionDuration: intPtr(maxDuration),
					IdleTimeout:        intPtr(idle),
				},
			},
		}
	}
	conflicts := DetectConflicts([]entities.Policy{
		session("pol-a", 1, 3600, 600),
		session("pol-b", 2, 7200, 600),
	})
	if len(conflicts) != 1 {
		t.Fatalf("expected only the disagreeing rule to fire, got %d", len(conflicts))
	}
	if conflicts[0].SettingPath != "maxSessionDuration" {
		t.Fatalf("unexpected setting path %s", conflicts[0].SettingPath)
	}
}

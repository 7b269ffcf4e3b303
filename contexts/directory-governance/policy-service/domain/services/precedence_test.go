package services

import (
	"reflect"
	"testing"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

func passwordPolicy(id string, order int, enforced bool, minLength int) entities.Policy {
	return entities.Policy{
		PolicyID:   id,
		PolicyName: "pw-" + id,
		Type:       entities.PolicyTypePassword,
		Enforced:   enforced,
		Enabled:    true,
		Order:      order,
		Settings: entities.Settings{
			Password: &entities.PasswordSettings{MinimumLength: intPtr(minLength)},
		},
	}
}

func TestOrderPoliciesEnforcedFirstThenOrderThenID(t *testing.T) {
	policies := []entities.Policy{
		passwordPolicy("pol-c", 5, false, 8),
		passwordPolicy("pol-b", 3, false, 10),
		passwordPolicy("pol-a", 9, true, 14),
		passwordPolicy("pol-d", 3, false, 12),
	}
	ordered := OrderPolicies(policies)
	got := make([]string, 0, len(ordered))
	for _, p := range ordered {
		got = append(got, p.PolicyID)
	}
	want := []string{"pol-a", "pol-b", "pol-d", "pol-c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestResolveEffectiveEnforcedWinsOverNonEnforced(t *testing.T) {
	policies := []entities.Policy{
		passwordPolicy("pol-weak", 1, false, 8),
		passwordPolicy("pol-strict", 9, true, 12),
	}
	effective := ResolveEffective("user-1", policies)
	resolved, ok := effective.Types[entities.PolicyTypePassword]
	if !ok {
		t.Fatal("expected a resolved password policy")
	}
	if got := *resolved.Settings.Password.MinimumLength; got != 12 {
		t.Fatalf("expected enforced minimum length 12, got %d", got)
	}
	want := []string{"pol-strict", "pol-weak"}
	if !reflect.DeepEqual(resolved.SourcePolicyIDs, want) {
		t.Fatalf("expected sources %v, got %v", want, resolved.SourcePolicyIDs)
	}
}

func TestResolveEffectiveLastEnforcedWins(t *testing.T) {
	policies := []entities.Policy{
		passwordPolicy("pol-first", 1, true, 10),
		passwordPolicy("pol-second", 2, true, 16),
	}
	effective := ResolveEffective("user-1", policies)
	resolved := effective.Types[entities.PolicyTypePassword]
	if got := *resolved.Settings.Password.MinimumLength; got != 16 {
		t.Fatalf("expected later enforced policy to win with 16, got %d", got)
	}
}

func TestResolveEffectiveNonEnforcedFillsOnlyUnsetFields(t *testing.T) {
	first := passwordPolicy("pol-first", 1, false, 10)
	second := passwordPolicy("pol-second", 2, false, 8)
	second.Settings.Password.MaximumAge = intPtr(90)

	effective := ResolveEffective("user-1", []entities.Policy{first, second})
	resolved := effective.Types[entities.PolicyTypePassword]
	if got := *resolved.Settings.Password.MinimumLength; got != 10 {
		t.Fatalf("expected first non-enforced writer to keep 10, got %d", got)
	}
	if got := *resolved.Settings.Password.MaximumAge; got != 90 {
		t.Fatalf("expected unset field filled with 90, got %d", got)
	}
}

func TestResolveEffectiveSkipsDisabledPolicies(t *testing.T) {
	disabled := passwordPolicy("pol-off", 1, true, 20)
	disabled.Enabled = false

	effective := ResolveEffective("user-1", []entities.Policy{
		disabled,
		passwordPolicy("pol-on", 2, false, 8),
	})
	resolved := effective.Types[entities.PolicyTypePassword]
	if got := *resolved.Settings.Password.MinimumLength; got != 8 {
		t.Fatalf("expected disabled policy to be ignored, got %d", got)
	}
	if len(resolved.SourcePolicyIDs) != 1 || resolved.SourcePolicyIDs[0] != "pol-on" {
		t.Fatalf("unexpected sources %v", resolved.SourcePolicyIDs)
	}
}

func TestResolveEffectiveDeterministicAcrossInputOrder(t *testing.T) {
	a := passwordPolicy("pol-a", 2, false, 10)
	b := passwordPolicy("pol-b", 2, false, 8)
	c := passwordPolicy("pol-c", 1, true, 14)

	forward := ResolveEffective("user-1", []entities.Policy{a, b, c})
	backward := ResolveEffective("user-1", []entities.Policy{c, b, a})
	if !reflect.DeepEqual(forward, backward) {
		t.Fatalf("resolution depends on input order: %+v vs %+v", forward, backward)
	}
}

func TestResolveEffectiveOmitsTypesWithoutPolicies(t *testing.T) {
	effective := ResolveEffective("user-1", []entities.Policy{
		passwordPolicy("pol-a", 1, false, 10),
	})
	if _, ok := effective.Types[entities.PolicyTypeSession]; ok {
		t.Fatal("expected no session entry without session policies")
	}
	if effective.UserID != "user-1" {
		t.Fatalf("unexpected user id %s", effective.UserID)
	}
}

func TestResolveEffectiveMergesListsByPrecedence(t *testing.T) {
	strict := entities.Policy{
		PolicyID: "pol-strict",
		Type:     entities.PolicyTypeAccessControl,
		Enforced: true,
		Enabled:  true,
		Order:    1,
		Settings: entities.Settings{
			AccessControl: &entities.AccessControlSettings{
				IPWhitelist: []string{"10.0.0.1"},
			},
		},
	}
	loose := entities.Policy{
		PolicyID: "pol-loose",
		Type:     entities.PolicyTypeAccessControl,
		Enabled:  true,
		Order:    2,
		Settings: entities.Settings{
			AccessControl: &entities.AccessControlSettings{
				IPWhitelist: []string{"10.0.0.1", "10.0.0.2"},
				IPBlacklist: []string{"192.0.2.7"},
			},
		},
	}
	effective := ResolveEffective("user-1", []entities.Policy{loose, strict})
	resolved := effective.Types[entities.PolicyTypeAccessControl]
	if !reflect.DeepEqual(resolved.Settings.AccessControl.IPWhitelist, []string{"10.0.0.1"}) {
		t.Fatalf("expected enforced whitelist to win, got %v", resolved.Settings.AccessControl.IPWhitelist)
	}
	if !reflect.DeepEqual(resolved.Settings.AccessControl.IPBlacklist, []string{"192.0.2.7"}) {
		t.Fatalf("expected unset blacklist filled, got %v", resolved.Settings.AccessControl.IPBlacklist)
	}
}

package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"
)

func strPtr(v string) *string { return &v }

func seedOUTree(store *Store) {
	store.AddOU(entities.OrganizationUnit{OUID: "ou-root", Name: "Corp"})
	store.AddOU(entities.OrganizationUnit{OUID: "ou-eng", Name: "Engineering", ParentID: strPtr("ou-root")})
	store.AddOU(entities.OrganizationUnit{OUID: "ou-platform", Name: "Platform", ParentID: strPtr("ou-eng")})
	store.AddOU(entities.OrganizationUnit{OUID: "ou-sales", Name: "Sales", ParentID: strPtr("ou-root")})
}

func TestGetOUAncestryRootToSelf(t *testing.T) {
	store := NewStore()
	seedOUTree(store)

	chain, err := store.GetOUAncestry(context.Background(), "ou-platform")
	if err != nil {
		t.Fatalf("ancestry failed: %v", err)
	}
	got := make([]string, 0, len(chain))
	for _, ou := range chain {
		got = append(got, ou.OUID)
	}
	want := []string{"ou-root", "ou-eng", "ou-platform"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected chain %v, got %v", want, got)
	}
}

func TestGetOUAncestryUnknownOU(t *testing.T) {
	store := NewStore()
	seedOUTree(store)

	if _, err := store.GetOUAncestry(context.Background(), "ou-missing"); !errors.Is(err, domainerrors.ErrOUNotFound) {
		t.Fatalf("expected OU not found, got %v", err)
	}
}

func TestGetOUMembersIncludesDescendants(t *testing.T) {
	store := NewStore()
	seedOUTree(store)
	store.AddUser(entities.EnterpriseUser{UserID: "user-eng", OUID: "ou-eng"})
	store.AddUser(entities.EnterpriseUser{UserID: "user-platform", OUID: "ou-platform"})
	store.AddUser(entities.EnterpriseUser{UserID: "user-sales", OUID: "ou-sales"})

	members, err := store.GetOUMembers(context.Background(), "ou-eng")
	if err != nil {
		t.Fatalf("members lookup failed: %v", err)
	}
	want := []string{"user-eng", "user-platform"}
	if !reflect.DeepEqual(members, want) {
		t.Fatalf("expected members %v, got %v", want, members)
	}
}

func TestGetGroupMembersScansUserRecords(t *testing.T) {
	store := NewStore()
	store.AddGroup(entities.SecurityGroup{GroupID: "grp-contractors", Name: "Contractors"})
	store.AddUser(entities.EnterpriseUser{UserID: "user-b", GroupIDs: []string{"grp-contractors"}})
	store.AddUser(entities.EnterpriseUser{UserID: "user-a", GroupIDs: []string{"grp-contractors", "grp-other"}})
	store.AddUser(entities.EnterpriseUser{UserID: "user-c"})

	members, err := store.GetGroupMembers(context.Background(), "grp-contractors")
	if err != nil {
		t.Fatalf("members lookup failed: %v", err)
	}
	want := []string{"user-a", "user-b"}
	if !reflect.DeepEqual(members, want) {
		t.Fatalf("expected members %v, got %v", want, members)
	}
}

func TestSavePolicyRecordsOutboxOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	input := ports.SavePolicyInput{
		Policy: entities.Policy{
			PolicyID:  "pol-1",
			Type:      entities.PolicyTypePassword,
			Enabled:   true,
			UpdatedAt: time.Now().UTC(),
		},
		OutboxID:     "out-1",
		EventType:    "policy.changed",
		EventPayload: []byte(`{"policy_id":"pol-1"}`),
	}
	if err := store.SavePolicy(ctx, input); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SavePolicy(ctx, input); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected duplicate outbox id to conflict, got %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "out-1" {
		t.Fatalf("unexpected pending set %v", pending)
	}

	if err := store.MarkOutboxPublished(ctx, "out-1", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending set, got %v", pending)
	}
}

func TestDeletePolicyUnknownID(t *testing.T) {
	store := NewStore()
	err := store.DeletePolicy(context.Background(), ports.DeletePolicyInput{
		PolicyID: "pol-missing",
		OutboxID: "out-1",
	})
	if !errors.Is(err, domainerrors.ErrPolicyNotFound) {
		t.Fatalf("expected policy not found, got %v", err)
	}
}

func TestSettingsCacheExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	settings := entities.EffectiveSettings{
		UserID: "user-1",
		Types:  map[entities.PolicyType]entities.ResolvedPolicy{},
	}
	if err := store.Set(ctx, "user-1", settings, now.Add(time.Minute)); err != nil {
		t.Fatalf("cache set failed: %v", err)
	}

	cached, hit, err := store.Get(ctx, "user-1", now)
	if err != nil || !hit {
		t.Fatalf("expected cache hit, got hit=%v err=%v", hit, err)
	}
	if cached.UserID != "user-1" {
		t.Fatalf("unexpected cached user %s", cached.UserID)
	}

	if _, hit, _ := store.Get(ctx, "user-1", now.Add(2*time.Minute)); hit {
		t.Fatal("expected expired entry to miss")
	}
	if _, hit, _ := store.Get(ctx, "user-1", now); hit {
		t.Fatal("expected expired entry to be evicted")
	}
}

func TestIdempotencyRecordConflictAndExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	record := ports.IdempotencyRecord{
		Key:             "key-1",
		Operation:       "create_policy",
		RequestHash:     "hash-a",
		ResponsePayload: []byte(`{"ok":true}`),
		ExpiresAt:       now.Add(time.Hour),
	}
	if err := store.PutRecord(ctx, record); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	conflicting := record
	conflicting.RequestHash = "hash-b"
	if err := store.PutRecord(ctx, conflicting); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected conflict for differing request hash, got %v", err)
	}

	stored, found, err := store.GetRecord(ctx, "key-1", now)
	if err != nil || !found {
		t.Fatalf("expected stored record, got found=%v err=%v", found, err)
	}
	if stored.RequestHash != "hash-a" {
		t.Fatalf("unexpected request hash %s", stored.RequestHash)
	}

	if _, found, _ := store.GetRecord(ctx, "key-1", now.Add(2*time.Hour)); found {
		t.Fatal("expected expired record to miss")
	}
}

func TestReserveEventDedup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	replayed, err := store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || replayed {
		t.Fatalf("expected fresh reservation, got replayed=%v err=%v", replayed, err)
	}

	replayed, err = store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || !replayed {
		t.Fatalf("expected replay detection, got replayed=%v err=%v", replayed, err)
	}

	if _, err := store.ReserveEvent(ctx, "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected payload mismatch conflict, got %v", err)
	}
}

package redisadapter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

func newTestCache(t *testing.T) (*SettingsCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSettingsCache(client), server
}

func sampleSettings(userID string) entities.EffectiveSettings {
	minLength := 12
	return entities.EffectiveSettings{
		UserID: userID,
		Types: map[entities.PolicyType]entities.ResolvedPolicy{
			entities.PolicyTypePassword: {
				Settings: entities.Settings{
					Password: &entities.PasswordSettings{MinimumLength: &minLength},
				},
				SourcePolicyIDs: []string{"pol-1"},
			},
		},
	}
}

func TestSettingsCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	settings := sampleSettings("user-1")
	if err := cache.Set(ctx, "user-1", settings, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	cached, hit, err := cache.Get(ctx, "user-1", time.Now())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if cached.UserID != "user-1" {
		t.Fatalf("unexpected user id %s", cached.UserID)
	}
	resolved, ok := cached.Types[entities.PolicyTypePassword]
	if !ok || *resolved.Settings.Password.MinimumLength != 12 {
		t.Fatalf("unexpected cached payload %+v", cached)
	}
}

func TestSettingsCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, hit, err := cache.Get(context.Background(), "user-unknown", time.Now())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if hit {
		t.Fatal("expected miss for unknown user")
	}
}

func TestSettingsCacheTTLExpiry(t *testing.T) {
	cache, server := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "user-1", sampleSettings("user-1"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	server.FastForward(2 * time.Minute)

	if _, hit, err := cache.Get(ctx, "user-1", time.Now()); err != nil || hit {
		t.Fatalf("expected expired entry to miss, got hit=%v err=%v", hit, err)
	}
}

func TestSettingsCacheSkipsAlreadyExpired(t *testing.T) {
	cache, server := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "user-1", sampleSettings("user-1"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if server.Exists(settingsKey("user-1")) {
		t.Fatal("expected no key for an already expired entry")
	}
}

func TestSettingsCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "user-1", sampleSettings("user-1"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := cache.Invalidate(ctx, "user-1"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, hit, _ := cache.Get(ctx, "user-1", time.Now()); hit {
		t.Fatal("expected miss after invalidation")
	}
}

func TestSettingsCacheCorruptEntryBehavesLikeMiss(t *testing.T) {
	cache, server := newTestCache(t)

	if err := server.Set(settingsKey("user-1"), "not-json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, hit, err := cache.Get(context.Background(), "user-1", time.Now()); err != nil || hit {
		t.Fatalf("expected corrupt entry to miss, got hit=%v err=%v", hit, err)
	}
}

package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"

	"github.com/redis/go-redis/v9"
)

const settingsKeyPrefix = "policy:settings:"

// SettingsCache stores resolved effective settings in Redis with TTL.
// Values are JSON payloads keyed per user.
type SettingsCache struct {
	client *redis.Client
}

func NewSettingsCache(client *redis.Client) *SettingsCache {
	return &SettingsCache{client: client}
}

// Connect builds a Redis client and verifies connectivity before use.
func Connect(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *SettingsCache) Get(ctx context.Context, userID string, _ time.Time) (entities.EffectiveSettings, bool, error) {
	raw, err := c.client.Get(ctx, settingsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.EffectiveSettings{}, false, nil
		}
		return entities.EffectiveSettings{}, false, storeError(err)
	}

	var settings entities.EffectiveSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		// A corrupt entry behaves like a miss; the caller recomputes and
		// overwrites it.
		return entities.EffectiveSettings{}, false, nil
	}
	return settings, true, nil
}

func (c *SettingsCache) Set(ctx context.Context, userID string, settings entities.EffectiveSettings, expiresAt time.Time) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, settingsKey(userID), payload, ttl).Err(); err != nil {
		return storeError(err)
	}
	return nil
}

func (c *SettingsCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, settingsKey(userID)).Err(); err != nil {
		return storeError(err)
	}
	return nil
}

func settingsKey(userID string) string {
	return settingsKeyPrefix + userID
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}

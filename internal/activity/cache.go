package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis based caching of activity feeds with versioning
// controls. Invalidation bumps a per-scope version counter instead of
// deleting keys; stale entries age out via TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(scope string, id int64) string {
	return fmt.Sprintf("activity:ver:%s:%d", scope, id)
}

// version returns the current feed version, initialising the counter when
// missing. The counter must exist before the first INCR: otherwise a cold
// read and the state after the first bump would both resolve to version 1
// and the bump would not invalidate anything.
func (c *Cache) version(ctx context.Context, scope string, id int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(scope, id)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, versionKey(scope, id), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, versionKey(scope, id), ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// feedKey composes a versioned cache key for one feed.
func (c *Cache) feedKey(ctx context.Context, scope string, id int64, limit int32) (string, error) {
	ver, err := c.version(ctx, scope, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("activity:feed:%s:%d:%d:%d", scope, id, limit, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("activity: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// BumpProject invalidates the project feed.
func (c *Cache) BumpProject(ctx context.Context, projectID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey("project", projectID)).Err()
}

// BumpUser invalidates the user feed.
func (c *Cache) BumpUser(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey("user", userID)).Err()
}

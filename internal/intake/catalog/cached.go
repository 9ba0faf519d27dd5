package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"internship-intake/internal/common/database"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/models"
)

const cachePrefix = "intake:catalog:"

// CachedSource puts a redis cache-aside layer in front of another source.
// Concurrent misses for the same key share one upstream call. Redis
// failures are logged and bypassed.
type CachedSource struct {
	next   Source
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Logger
}

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "catalog-cache"),
	}
}

func (c *CachedSource) Categories(ctx context.Context) ([]models.Option, error) {
	return c.get(ctx, cachePrefix+"sectors", func() ([]models.Option, error) {
		return c.next.Categories(ctx)
	})
}

func (c *CachedSource) Roles(ctx context.Context, category string) ([]models.Option, error) {
	return c.get(ctx, cachePrefix+"roles:"+category, func() ([]models.Option, error) {
		return c.next.Roles(ctx, category)
	})
}

func (c *CachedSource) Locations(ctx context.Context, category, role string) ([]models.Option, error) {
	return c.get(ctx, cachePrefix+"locations:"+category+"|"+role, func() ([]models.Option, error) {
		return c.next.Locations(ctx, category, role)
	})
}

// Invalidate drops every cached list.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *CachedSource) get(ctx context.Context, key string, load func() ([]models.Option, error)) ([]models.Option, error) {
	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var opts []models.Option
		if jerr := json.Unmarshal([]byte(val), &opts); jerr == nil {
			return opts, nil
		}
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"key": key})
	case !database.IsMiss(err):
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		opts, err := load()
		if err != nil {
			return nil, err
		}
		if data, jerr := json.Marshal(opts); jerr == nil {
			if serr := c.redis.Set(ctx, key, data, c.ttl).Err(); serr != nil {
				c.logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": serr.Error()})
			}
		}
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Option), nil
}

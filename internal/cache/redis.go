package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/westbrook/config"
	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache backs session storage, change notifications, the per-session
// calendar, the room-page handoff and the checkout lock.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}))
}

func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Publish(ctx context.Context, key string) error {
	return c.client.Publish(ctx, changeChannel(key), key).Err()
}

func (c *RedisCache) Subscribe(ctx context.Context, key string) (<-chan struct{}, error) {
	ps := c.client.Subscribe(ctx, changeChannel(key))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (c *RedisCache) GetAvailability(ctx context.Context, sessionID string) (domain.AvailabilityMap, error) {
	var m domain.AvailabilityMap
	found, err := c.getJSON(ctx, availabilityKey(sessionID), &m)
	if err != nil || !found {
		return nil, err
	}
	return m, nil
}

func (c *RedisCache) SetAvailability(ctx context.Context, sessionID string, m domain.AvailabilityMap, ttl time.Duration) error {
	return c.setJSON(ctx, availabilityKey(sessionID), m, ttl)
}

func (c *RedisCache) GetHandoff(ctx context.Context, sessionID string) (*domain.Handoff, error) {
	var h domain.Handoff
	found, err := c.getJSON(ctx, handoffKey(sessionID), &h)
	if err != nil || !found {
		return nil, err
	}
	return &h, nil
}

func (c *RedisCache) SetHandoff(ctx context.Context, sessionID string, h domain.Handoff, ttl time.Duration) error {
	return c.setJSON(ctx, handoffKey(sessionID), h, ttl)
}

func (c *RedisCache) AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, checkoutLockKey(sessionID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseCheckoutLock(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, checkoutLockKey(sessionID)).Err()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

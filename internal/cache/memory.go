package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type calendarEntry struct {
	days      domain.AvailabilityMap
	expiresAt time.Time
}

type handoffEntry struct {
	handoff   domain.Handoff
	expiresAt time.Time
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// MemoryCache is the single-process stand-in for RedisCache.
type MemoryCache struct {
	clock clock.Clock

	mu           sync.Mutex
	entries      map[string]memoryEntry
	availability map[string]calendarEntry
	handoffs     map[string]handoffEntry
	locks        map[string]time.Time
	subscribers  map[string]map[chan struct{}]struct{}
}

func NewMemoryCache(c clock.Clock) *MemoryCache {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &MemoryCache{
		clock:        c,
		entries:      make(map[string]memoryEntry),
		availability: make(map[string]calendarEntry),
		handoffs:     make(map[string]handoffEntry),
		locks:        make(map[string]time.Time),
		subscribers:  make(map[string]map[chan struct{}]struct{}),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if expired(e.expiresAt, c.clock.Now()) {
		delete(c.entries, key)
		return nil, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: expiry(c.clock.Now(), ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Sweep drops everything past its ttl and reports how many stored entries
// went. Calendars, handoffs and checkout locks are purged but not counted.
func (c *MemoryCache) Sweep(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for key, e := range c.entries {
		if expired(e.expiresAt, now) {
			delete(c.entries, key)
			n++
		}
	}
	for id, e := range c.availability {
		if expired(e.expiresAt, now) {
			delete(c.availability, id)
		}
	}
	for id, e := range c.handoffs {
		if expired(e.expiresAt, now) {
			delete(c.handoffs, id)
		}
	}
	for id, until := range c.locks {
		if !now.Before(until) {
			delete(c.locks, id)
		}
	}
	return n, nil
}

func (c *MemoryCache) Publish(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subscribers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *MemoryCache) Subscribe(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	if c.subscribers[key] == nil {
		c.subscribers[key] = make(map[chan struct{}]struct{})
	}
	c.subscribers[key][ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subscribers[key], ch)
		if len(c.subscribers[key]) == 0 {
			delete(c.subscribers, key)
		}
		close(ch)
		c.mu.Unlock()
	}()
	return ch, nil
}

func (c *MemoryCache) GetAvailability(_ context.Context, sessionID string) (domain.AvailabilityMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.availability[sessionID]
	if !ok {
		return nil, nil
	}
	if expired(e.expiresAt, c.clock.Now()) {
		delete(c.availability, sessionID)
		return nil, nil
	}
	return e.days, nil
}

func (c *MemoryCache) SetAvailability(_ context.Context, sessionID string, m domain.AvailabilityMap, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.availability[sessionID] = calendarEntry{days: m, expiresAt: expiry(c.clock.Now(), ttl)}
	return nil
}

func (c *MemoryCache) GetHandoff(_ context.Context, sessionID string) (*domain.Handoff, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.handoffs[sessionID]
	if !ok {
		return nil, nil
	}
	if expired(e.expiresAt, c.clock.Now()) {
		delete(c.handoffs, sessionID)
		return nil, nil
	}
	h := e.handoff
	return &h, nil
}

func (c *MemoryCache) SetHandoff(_ context.Context, sessionID string, h domain.Handoff, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handoffs[sessionID] = handoffEntry{handoff: h, expiresAt: expiry(c.clock.Now(), ttl)}
	return nil
}

func (c *MemoryCache) AcquireCheckoutLock(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if until, held := c.locks[sessionID]; held && now.Before(until) {
		return false, nil
	}
	c.locks[sessionID] = now.Add(ttl)
	return true, nil
}

func (c *MemoryCache) ReleaseCheckoutLock(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, sessionID)
	return nil
}

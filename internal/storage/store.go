// Package storage persists a session's booking state with a write timestamp
// and expires it on read, the way the booking page used browser storage.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/Domenick1991/westbrook/internal/pkg/errs"
	"go.uber.org/zap"
)

const (
	KeyPrefix  = "westbrook_booking:"
	DefaultTTL = time.Hour
)

// Backend is a byte-oriented key/value store. Get returns nil, nil for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by backends that do not expire keys on their own.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// ChangeFeed fans out "key was written" notifications. The channel returned
// by Subscribe is closed once ctx is done.
type ChangeFeed interface {
	Publish(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string) (<-chan struct{}, error)
}

type envelope struct {
	domain.BookingState
	Timestamp int64 `json:"timestamp"`
}

type Store struct {
	backend Backend
	feed    ChangeFeed
	ttl     time.Duration
	clock   clock.Clock
	logger  *zap.Logger
}

type StoreOption func(*Store)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(c clock.Clock) StoreOption {
	return func(s *Store) {
		s.clock = c
	}
}

func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(backend Backend, feed ChangeFeed, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		feed:    feed,
		ttl:     DefaultTTL,
		clock:   clock.NewRealClock(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save writes the full state and notifies watchers of the key.
func (s *Store) Save(ctx context.Context, sessionID string, state domain.BookingState) error {
	payload, err := json.Marshal(envelope{BookingState: state, Timestamp: s.clock.Now().UnixMilli()})
	if err != nil {
		return errs.Wrap(err, "encode booking state")
	}

	key := Key(sessionID)
	if err := s.backend.Set(ctx, key, payload, s.ttl); err != nil {
		return errs.Wrapf(err, "save booking state %s", key)
	}

	if s.feed != nil {
		if err := s.feed.Publish(ctx, key); err != nil {
			s.logger.Warn("publish state change failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Load returns the saved state, or nil when nothing usable is stored.
// Expired and malformed entries are removed.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.BookingState, error) {
	key := Key(sessionID)
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, errs.Wrapf(err, "load booking state %s", key)
	}
	if data == nil {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("discarding malformed booking state", zap.String("key", key), zap.Error(err))
		s.discard(ctx, key)
		return nil, nil
	}

	age := s.clock.Now().UnixMilli() - env.Timestamp
	if age >= s.ttl.Milliseconds() {
		s.logger.Debug("booking state expired", zap.String("key", key), zap.Int64("age_ms", age))
		s.discard(ctx, key)
		return nil, nil
	}

	state := env.BookingState
	return &state, nil
}

func (s *Store) Remove(ctx context.Context, sessionID string) error {
	key := Key(sessionID)
	if err := s.backend.Delete(ctx, key); err != nil {
		return errs.Wrapf(err, "remove booking state %s", key)
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, key); err != nil {
			s.logger.Warn("publish state change failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Watch reloads the state every time the key is written and yields it.
// Writes that leave nothing loadable are skipped. Last write wins.
func (s *Store) Watch(ctx context.Context, sessionID string) (<-chan domain.BookingState, error) {
	if s.feed == nil {
		return nil, errs.New("storage: change feed not configured")
	}
	changes, err := s.feed.Subscribe(ctx, Key(sessionID))
	if err != nil {
		return nil, errs.Wrap(err, "subscribe to state changes")
	}

	out := make(chan domain.BookingState, 1)
	go func() {
		defer close(out)
		for range changes {
			state, err := s.Load(ctx, sessionID)
			if err != nil {
				s.logger.Warn("reload after change failed", zap.String("session_id", sessionID), zap.Error(err))
				continue
			}
			if state == nil {
				continue
			}
			select {
			case out <- *state:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Sweep deletes expired entries from backends that need it and reports how many.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	sweeper, ok := s.backend.(Sweeper)
	if !ok {
		return 0, nil
	}
	n, err := sweeper.Sweep(ctx, s.clock.Now())
	return n, errs.Wrap(err, "sweep expired booking states")
}

func (s *Store) discard(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("discard booking state failed", zap.String("key", key), zap.Error(err))
	}
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// StateRepository stores sessions. Get returns nil, nil for unknown
// operators.
type StateRepository interface {
	GetState(ctx context.Context, operatorID int64) (*Session, error)
	SetState(ctx context.Context, s *Session) error
	ClearState(ctx context.Context, operatorID int64) error
}

// RedisStateRepository keeps sessions as JSON with a TTL.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStateRepository{client: client, ttl: ttl}
}

func redisKey(operatorID int64) string {
	return "deskplan:session:" + strconv.FormatInt(operatorID, 10)
}

func (r *RedisStateRepository) GetState(ctx context.Context, operatorID int64) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(operatorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %d: %w", operatorID, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", operatorID, err)
	}
	return &s, nil
}

func (r *RedisStateRepository) SetState(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", s.OperatorID, err)
	}
	return r.client.Set(ctx, redisKey(s.OperatorID), data, r.ttl).Err()
}

func (r *RedisStateRepository) ClearState(ctx context.Context, operatorID int64) error {
	return r.client.Del(ctx, redisKey(operatorID)).Err()
}

// MemoryStateRepository keeps sessions in process with expiry.
type MemoryStateRepository struct {
	cache *cache.Cache
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStateRepository{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryStateRepository) GetState(_ context.Context, operatorID int64) (*Session, error) {
	v, ok := m.cache.Get(strconv.FormatInt(operatorID, 10))
	if !ok {
		return nil, nil
	}
	s := v.(Session)
	return s.clone(), nil
}

func (m *MemoryStateRepository) SetState(_ context.Context, s *Session) error {
	m.cache.SetDefault(strconv.FormatInt(s.OperatorID, 10), *s.clone())
	return nil
}

func (m *MemoryStateRepository) ClearState(_ context.Context, operatorID int64) error {
	m.cache.Delete(strconv.FormatInt(operatorID, 10))
	return nil
}

// recoveryInterval is how long the failover repository waits before
// probing a failed primary again.
const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary and switches to fallback
// while primary fails.
type FailoverStateRepository struct {
	primary   StateRepository
	fallback  StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{primary: primary, fallback: fallback, logger: logger}
}

func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(r.lastCheck) >= recoveryInterval
}

func (r *FailoverStateRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Warn().Err(err).Msg("Session store unavailable, switching to fallback")
	}
	r.lastCheck = time.Now()
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Session store recovered")
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, operatorID int64) (*Session, error) {
	if r.usePrimary() {
		s, err := r.primary.GetState(ctx, operatorID)
		if err == nil {
			r.markUp()
			return s, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetState(ctx, operatorID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, s *Session) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, s)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetState(ctx, s)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, operatorID int64) error {
	if r.usePrimary() {
		err := r.primary.ClearState(ctx, operatorID)
		if err == nil {
			r.markUp()
			return r.fallback.ClearState(ctx, operatorID)
		}
		r.markDown(err)
	}
	return r.fallback.ClearState(ctx, operatorID)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskplan/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is the key holding the document when none is configured.
const DefaultRedisKey = "deskplan:document"

// RedisStore keeps the whole document as one JSON string. SET replaces
// it atomically.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zerolog.Logger
}

func NewRedisStore(client *redis.Client, key string, logger *zerolog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

func (s *RedisStore) Load(ctx context.Context) (*models.Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	doc, repairs, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	LogRepairs(s.logger, s.key, repairs)
	return doc, nil
}

// SetAside copies the stored value to a timestamped key and returns it.
func (s *RedisStore) SetAside(ctx context.Context) (string, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}
	dst := s.key + ":unreadable:" + time.Now().Format(setAsideLayout)
	if err := s.client.Set(ctx, dst, data, 0).Err(); err != nil {
		return "", fmt.Errorf("redis set %s: %w", dst, err)
	}
	return dst, nil
}

func (s *RedisStore) Save(ctx context.Context, doc *models.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore namespaces every key under prefix so several instances can
// share one Redis database and see each other's sessions.
func NewRedisSessionStore(client *redis.Client, prefix string) SessionStore {
	return &redisSessionStore{client: client, prefix: prefix + sessionKeyPrefix}
}

func (s *redisSessionStore) Save(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+tokenID, userID.String(), ttl).Err()
}

// Consume relies on GETDEL so two racing refreshes cannot both win.
func (s *redisSessionStore) Consume(ctx context.Context, tokenID string) (uuid.UUID, bool, error) {
	val, err := s.client.GetDel(ctx, s.prefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt session %s: %w", tokenID, err)
	}
	return userID, true, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, s.prefix+tokenID).Err()
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStore tracks live refresh sessions by token ID. A session exists until it
// is consumed, revoked or expires.
type SessionStore interface {
	Save(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error
	// Consume removes the session atomically and reports its owner; ok is false when
	// the session was unknown, expired or already consumed.
	Consume(ctx context.Context, tokenID string) (userID uuid.UUID, ok bool, err error)
	Revoke(ctx context.Context, tokenID string) error
}

const sessionKeyPrefix = "refresh:"

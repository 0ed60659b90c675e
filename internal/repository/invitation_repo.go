package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"familyvault/mediahub/internal/model"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
	GetByEmail(ctx context.Context, email string) (*model.Invitation, error)
	GetPendingByCode(ctx context.Context, code string) (*model.Invitation, error)
	GetByCode(ctx context.Context, code string) (*model.Invitation, error)
	// Consume flips a pending invitation to registered in one conditional update.
	// It reports false when no pending row matched (unknown code or lost race).
	Consume(ctx context.Context, code string, userID uuid.UUID, at time.Time) (bool, error)
	HasRegisteredInvitation(ctx context.Context, userID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]model.Invitation, error)
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"familyvault/mediahub/internal/model"
)

type PermissionRepository interface {
	// Grant inserts the grant unless the (user, category) pair already exists.
	Grant(ctx context.Context, grant *model.PermissionGrant) error
	Revoke(ctx context.Context, userID, categoryID uuid.UUID) error
	Exists(ctx context.Context, userID, categoryID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PermissionGrant, error)
}

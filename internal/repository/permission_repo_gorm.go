package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"familyvault/mediahub/internal/model"
)

type gormPermissionRepository struct {
	db *gorm.DB
}

func NewGormPermissionRepository(db *gorm.DB) PermissionRepository {
	return &gormPermissionRepository{db: db}
}

func (r *gormPermissionRepository) Grant(ctx context.Context, grant *model.PermissionGrant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(grant).Error
}

func (r *gormPermissionRepository) Revoke(ctx context.Context, userID, categoryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Delete(&model.PermissionGrant{}).Error
}

func (r *gormPermissionRepository) Exists(ctx context.Context, userID, categoryID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PermissionGrant{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Count(&n).Error
	return n > 0, err
}

func (r *gormPermissionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PermissionGrant, error) {
	var grants []model.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("granted_at ASC").
		Find(&grants).Error
	return grants, err
}

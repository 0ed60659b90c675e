package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
)

type gormInvitationRepository struct {
	db *gorm.DB
}

func NewGormInvitationRepository(db *gorm.DB) InvitationRepository {
	return &gormInvitationRepository{db: db}
}

func (r *gormInvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *gormInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) GetByEmail(ctx context.Context, email string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).First(&inv, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) GetPendingByCode(ctx context.Context, code string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Where("code = ? AND status = ?", code, model.InvitationPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) GetByCode(ctx context.Context, code string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).First(&inv, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) Consume(ctx context.Context, code string, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("code = ? AND status = ?", code, model.InvitationPending).
		Updates(map[string]interface{}{
			"status":        model.InvitationRegistered,
			"registered_at": at,
			"user_id":       userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormInvitationRepository) HasRegisteredInvitation(ctx context.Context, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("user_id = ? AND status = ?", userID, model.InvitationRegistered).
		Count(&n).Error
	return n > 0, err
}

func (r *gormInvitationRepository) List(ctx context.Context) ([]model.Invitation, error) {
	var invs []model.Invitation
	if err := r.db.WithContext(ctx).Order("invited_at DESC").Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

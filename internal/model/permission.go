package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PermissionGrant lets one user see every media item of one category.
// The row's existence is the grant.
type PermissionGrant struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey;autoIncrement:false" json:"user_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;autoIncrement:false;index" json:"category_id"`
	GrantedAt  time.Time `gorm:"not null" json:"granted_at"`
	GrantedBy  uuid.UUID `gorm:"type:uuid;not null" json:"granted_by"`
}

func (PermissionGrant) TableName() string { return "category_permissions" }

func NewPermissionGrant(userID, categoryID, grantedBy uuid.UUID) (*PermissionGrant, error) {
	if userID == uuid.Nil || categoryID == uuid.Nil {
		return nil, errors.New("grant requires user and category")
	}
	return &PermissionGrant{
		UserID:     userID,
		CategoryID: categoryID,
		GrantedAt:  time.Now().UTC(),
		GrantedBy:  grantedBy,
	}, nil
}

package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending    InvitationStatus = "pending"
	InvitationRegistered InvitationStatus = "registered"
)

type Invitation struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Code         string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	InvitedBy    uuid.UUID        `gorm:"type:uuid;not null" json:"invited_by"`
	InvitedAt    time.Time        `gorm:"not null" json:"invited_at"`
	RegisteredAt *time.Time       `json:"registered_at,omitempty"`
	UserID       *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
}

func (Invitation) TableName() string { return "invitations" }

func (i *Invitation) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NewInvitation builds a pending invitation; email must already be normalised.
func NewInvitation(email, code string, invitedBy uuid.UUID) (*Invitation, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("invitation email is required")
	}
	if code == "" {
		return nil, errors.New("invitation code is required")
	}
	return &Invitation{
		ID:        uuid.New(),
		Email:     email,
		Code:      code,
		Status:    InvitationPending,
		InvitedBy: invitedBy,
		InvitedAt: time.Now().UTC(),
	}, nil
}

func (i *Invitation) IsPending() bool { return i.Status == InvitationPending }

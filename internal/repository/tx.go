package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRepositories exposes the repositories bound to one database transaction.
type TxRepositories struct {
	Users       UserRepository
	Invitations InvitationRepository
	Permissions PermissionRepository
}

// Transactor runs fn inside a transaction; a non-nil error from fn rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(TxRepositories{
			Users:       NewGormUserRepository(tx),
			Invitations: NewGormInvitationRepository(tx),
			Permissions: NewGormPermissionRepository(tx),
		})
	})
}

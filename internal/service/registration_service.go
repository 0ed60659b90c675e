package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/pkg/crypto"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 50
)

type RegisterInput struct {
	Email     string
	Password  string
	Code      string
	FirstName string
	LastName  string
}

type RegistrationService interface {
	// Register creates a member account for the holder of a pending invitation and
	// consumes the invitation in the same transaction.
	Register(ctx context.Context, in RegisterInput) (*model.Principal, error)
}

type registrationService struct {
	invitations InvitationService
	userRepo    repository.UserRepository
	transactor  repository.Transactor
	notifier    *Notifier
	logger      *zap.Logger
}

func NewRegistrationService(
	invitations InvitationService,
	userRepo repository.UserRepository,
	transactor repository.Transactor,
	notifier *Notifier,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		invitations: invitations,
		userRepo:    userRepo,
		transactor:  transactor,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *registrationService) Register(ctx context.Context, in RegisterInput) (*model.Principal, error) {
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	inv, err := s.invitations.ValidateCode(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInviteInvalid
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil || email != inv.Email {
		return nil, ErrEmailMismatch
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *model.User
	err = s.transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		username, err := uniqueUsername(ctx, repos.Users, email)
		if err != nil {
			return err
		}
		u := &model.User{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			DisplayName:  displayName(in.FirstName, in.LastName, username),
			Role:         model.RoleMember,
			Status:       model.UserStatusActive,
		}
		if err := repos.Users.Create(ctx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailExists
			}
			return fmt.Errorf("create user: %w", err)
		}
		if _, err := consumeCode(ctx, repos.Invitations, inv.Code, u.ID); err != nil {
			if errors.Is(err, ErrInviteInvalid) {
				return ErrInviteConflict
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	s.notifier.welcome(ctx, user.Email, user.DisplayName)
	return user.Principal(), nil
}

// uniqueUsername derives a username from the email local part, appending 1, 2, ...
// until it is free.
func uniqueUsername(ctx context.Context, users repository.UserRepository, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if len(base) > maxUsernameLength-6 {
		base = base[:maxUsernameLength-6]
	}

	candidate := base
	for i := 1; i < 100000; i++ {
		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func displayName(first, last, fallback string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return fallback
	}
	return name
}

var _ RegistrationService = (*registrationService)(nil)

func checkPassword(pw string) error {
	switch {
	case len(pw) < minPasswordLength:
		return ErrWeakPassword
	case len(pw) > crypto.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

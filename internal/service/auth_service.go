package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/pkg/crypto"
	jwtpkg "familyvault/mediahub/pkg/jwt"
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*TokenSet, *model.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	// ResolvePrincipal validates an access token and reloads the account so the
	// returned role is current.
	ResolvePrincipal(ctx context.Context, accessToken string) (*model.Principal, error)
	// EnsureAdmin creates or promotes the bootstrap administrator.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	userRepo   repository.UserRepository
	sessions   repository.SessionStore
	jwtManager *jwtpkg.Manager
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessions repository.SessionStore,
	jwtManager *jwtpkg.Manager,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		sessions:   sessions,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenSet, *model.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != model.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}

	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// RefreshToken rotates the refresh token: the presented one is consumed atomically,
// so replaying it fails.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}
	owner, ok, err := s.sessions.Consume(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("consume refresh session: %w", err)
	}
	if !ok || owner.String() != claims.Subject {
		return nil, ErrRefreshTokenInvalid
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return ErrRefreshTokenInvalid
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *authService) ResolvePrincipal(ctx context.Context, accessToken string) (*model.Principal, error) {
	claims, err := s.jwtManager.Validate(accessToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeAccess {
		return nil, ErrInvalidCredentials
	}
	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == model.RoleAdmin {
			return nil
		}
		user.Role = model.RoleAdmin
		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("promoted bootstrap admin", zap.String("email", email))
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("get admin: %w", err)
	}

	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	username, err := uniqueUsername(ctx, s.userRepo, email)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  username,
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("created bootstrap admin", zap.String("email", email))
	return nil
}

func (s *authService) activeUser(ctx context.Context, subject string) (*model.User, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

func (s *authService) issue(ctx context.Context, user *model.User) (*TokenSet, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, claims, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.sessions.Save(ctx, claims.ID, user.ID, s.jwtManager.RefreshTokenTTL()); err != nil {
		return nil, fmt.Errorf("save refresh session: %w", err)
	}
	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

var _ AuthService = (*authService)(nil)

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
)

// InvitationLookup answers whether a user registered through an invitation.
type InvitationLookup interface {
	IsRegisteredInvitee(ctx context.Context, userID uuid.UUID) (bool, error)
}

// MediaLookup resolves the category of a media item.
type MediaLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error)
}

type PermissionService interface {
	// CanAccess decides whether principal may see mediaID, or the library at all when mediaID is nil.
	CanAccess(ctx context.Context, principal *model.Principal, mediaID *uuid.UUID) (bool, error)
	Grant(ctx context.Context, userID, categoryID, grantedBy uuid.UUID) error
	Revoke(ctx context.Context, userID, categoryID uuid.UUID) error
	ListGrants(ctx context.Context, userID uuid.UUID) ([]model.PermissionGrant, error)
	GrantAllCategories(ctx context.Context, userID, grantedBy uuid.UUID) (int, error)
}

type permissionService struct {
	permRepo     repository.PermissionRepository
	categoryRepo repository.CategoryRepository
	userRepo     repository.UserRepository
	invitations  InvitationLookup
	media        MediaLookup
}

func NewPermissionService(
	permRepo repository.PermissionRepository,
	categoryRepo repository.CategoryRepository,
	userRepo repository.UserRepository,
	invitations InvitationLookup,
	media MediaLookup,
) PermissionService {
	return &permissionService{
		permRepo:     permRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		invitations:  invitations,
		media:        media,
	}
}

func (s *permissionService) CanAccess(ctx context.Context, principal *model.Principal, mediaID *uuid.UUID) (bool, error) {
	if principal == nil {
		return false, nil
	}
	if principal.IsAdmin() {
		return true, nil
	}

	if !principal.HasMemberRole() {
		invited, err := s.invitations.IsRegisteredInvitee(ctx, principal.UserID)
		if err != nil {
			return false, fmt.Errorf("check invitee: %w", err)
		}
		if !invited {
			return false, nil
		}
	}

	if mediaID == nil {
		return true, nil
	}

	item, err := s.media.GetByID(ctx, *mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrMediaNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup media: %w", err)
	}
	// Uncategorized media is visible to every registrant.
	if item.CategoryID == nil {
		return true, nil
	}

	ok, err := s.permRepo.Exists(ctx, principal.UserID, *item.CategoryID)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return ok, nil
}

func (s *permissionService) Grant(ctx context.Context, userID, categoryID, grantedBy uuid.UUID) error {
	if err := s.requireUserAndCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	grant, err := model.NewPermissionGrant(userID, categoryID, grantedBy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	if err := s.permRepo.Grant(ctx, grant); err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

func (s *permissionService) Revoke(ctx context.Context, userID, categoryID uuid.UUID) error {
	if err := s.permRepo.Revoke(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	return nil
}

func (s *permissionService) ListGrants(ctx context.Context, userID uuid.UUID) ([]model.PermissionGrant, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	grants, err := s.permRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}

// GrantAllCategories gives userID every existing category and returns how many grants it issued.
func (s *permissionService) GrantAllCategories(ctx context.Context, userID, grantedBy uuid.UUID) (int, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get user: %w", err)
	}
	cats, err := s.categoryRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		grant, err := model.NewPermissionGrant(userID, c.ID, grantedBy)
		if err != nil {
			return 0, err
		}
		if err := s.permRepo.Grant(ctx, grant); err != nil {
			return 0, fmt.Errorf("grant category %s: %w", c.Slug, err)
		}
	}
	return len(cats), nil
}

func (s *permissionService) requireUserAndCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

var _ PermissionService = (*permissionService)(nil)

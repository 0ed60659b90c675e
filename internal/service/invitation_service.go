package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/pkg/crypto"
)

// codeAttempts bounds retries when a freshly generated code collides with an existing one.
const codeAttempts = 3

type InvitationService interface {
	CreateInvitation(ctx context.Context, email string, invitedBy uuid.UUID, sendEmail bool) (*model.Invitation, error)
	// ValidateCode returns the invitation only while it is pending; otherwise nil.
	ValidateCode(ctx context.Context, code string) (*model.Invitation, error)
	ConsumeCode(ctx context.Context, code string, userID uuid.UUID) (*model.Invitation, error)
	Resend(ctx context.Context, inviteID uuid.UUID) error
	ListInvitations(ctx context.Context) ([]model.Invitation, error)
	RegistrationURL(code string) string
	IsRegisteredInvitee(ctx context.Context, userID uuid.UUID) (bool, error)
}

type invitationService struct {
	inviteRepo    repository.InvitationRepository
	notifier      *Notifier
	publicBaseURL string
	sendEmail     bool
}

func NewInvitationService(
	inviteRepo repository.InvitationRepository,
	notifier *Notifier,
	publicBaseURL string,
	sendEmail bool,
) InvitationService {
	return &invitationService{
		inviteRepo:    inviteRepo,
		notifier:      notifier,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		sendEmail:     sendEmail,
	}
}

func (s *invitationService) CreateInvitation(ctx context.Context, email string, invitedBy uuid.UUID, sendEmail bool) (*model.Invitation, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	existing, err := s.inviteRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Status == model.InvitationRegistered {
			return nil, ErrAlreadyRegistered
		}
		return nil, ErrAlreadyInvited
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("check existing invitation: %w", err)
	}

	var inv *model.Invitation
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := crypto.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		inv, err = model.NewInvitation(email, code, invitedBy)
		if err != nil {
			return nil, err
		}
		err = s.inviteRepo.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create invitation: %w", err)
		}
		// The email may have been invited concurrently; otherwise the code collided.
		if _, lookupErr := s.inviteRepo.GetByEmail(ctx, email); lookupErr == nil {
			return nil, ErrAlreadyInvited
		}
		inv = nil
	}
	if inv == nil {
		return nil, fmt.Errorf("create invitation: no unique code after %d attempts", codeAttempts)
	}

	if sendEmail && s.sendEmail {
		s.notifier.invitation(ctx, inv.Email, s.RegistrationURL(inv.Code), inv.Code)
	}
	return inv, nil
}

func (s *invitationService) ValidateCode(ctx context.Context, code string) (*model.Invitation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	inv, err := s.inviteRepo.GetPendingByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("validate invite code: %w", err)
	}
	return inv, nil
}

func (s *invitationService) ConsumeCode(ctx context.Context, code string, userID uuid.UUID) (*model.Invitation, error) {
	return consumeCode(ctx, s.inviteRepo, code, userID)
}

// consumeCode is shared with the registration transaction, which binds its own repository.
func consumeCode(ctx context.Context, repo repository.InvitationRepository, code string, userID uuid.UUID) (*model.Invitation, error) {
	ok, err := repo.Consume(ctx, strings.TrimSpace(code), userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("consume invite code: %w", err)
	}
	if !ok {
		return nil, ErrInviteInvalid
	}
	inv, err := repo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("reload invitation: %w", err)
	}
	return inv, nil
}

func (s *invitationService) Resend(ctx context.Context, inviteID uuid.UUID) error {
	inv, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("get invitation: %w", err)
	}
	if !inv.IsPending() {
		return ErrAlreadyRegistered
	}
	s.notifier.invitation(ctx, inv.Email, s.RegistrationURL(inv.Code), inv.Code)
	return nil
}

func (s *invitationService) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	invs, err := s.inviteRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (s *invitationService) RegistrationURL(code string) string {
	return s.publicBaseURL + "/register?invite=" + url.QueryEscape(code)
}

func (s *invitationService) IsRegisteredInvitee(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.inviteRepo.HasRegisteredInvitation(ctx, userID)
}

var _ InvitationService = (*invitationService)(nil)

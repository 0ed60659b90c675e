package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/pkg/response"
)

// AdminHandler serves invitation, permission and category administration.
type AdminHandler struct {
	invitationService service.InvitationService
	permissionService service.PermissionService
	categoryService   service.CategoryService
	logger            *zap.Logger
}

func NewAdminHandler(
	invitationService service.InvitationService,
	permissionService service.PermissionService,
	categoryService service.CategoryService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		invitationService: invitationService,
		permissionService: permissionService,
		categoryService:   categoryService,
		logger:            logger,
	}
}

type CreateInvitationRequest struct {
	Email     string `json:"email" binding:"required"`
	SendEmail *bool  `json:"send_email"`
}

type invitationView struct {
	model.Invitation
	RegistrationURL string `json:"registration_url,omitempty"`
}

// CreateInvitation invites an email address and, unless told otherwise, mails the code.
func (h *AdminHandler) CreateInvitation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	send := req.SendEmail == nil || *req.SendEmail

	inv, err := h.invitationService.CreateInvitation(c.Request.Context(), req.Email, p.UserID, send)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, invitationView{Invitation: *inv, RegistrationURL: h.invitationService.RegistrationURL(inv.Code)})
}

// ListInvitations returns all invitations, newest first.
func (h *AdminHandler) ListInvitations(c *gin.Context) {
	invs, err := h.invitationService.ListInvitations(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views := make([]invitationView, 0, len(invs))
	for _, inv := range invs {
		v := invitationView{Invitation: inv}
		if inv.IsPending() {
			v.RegistrationURL = h.invitationService.RegistrationURL(inv.Code)
		}
		views = append(views, v)
	}
	response.Success(c, views)
}

func (h *AdminHandler) ResendInvitation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.invitationService.Resend(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, nil)
}

func (h *AdminHandler) GrantCategory(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "category_id")
	if !ok {
		return
	}

	if err := h.permissionService.Grant(c.Request.Context(), userID, categoryID, p.UserID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("category granted",
		zap.String("user_id", userID.String()),
		zap.String("category_id", categoryID.String()),
		zap.String("granted_by", p.UserID.String()),
	)
	response.Success(c, nil)
}

func (h *AdminHandler) GrantAllCategories(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}

	n, err := h.permissionService.GrantAllCategories(c.Request.Context(), userID, p.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"granted": n})
}

func (h *AdminHandler) RevokeCategory(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "category_id")
	if !ok {
		return
	}

	if err := h.permissionService.Revoke(c.Request.Context(), userID, categoryID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("category revoked", zap.String("user_id", userID.String()), zap.String("category_id", categoryID.String()))
	response.Success(c, nil)
}

func (h *AdminHandler) ListGrants(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	grants, err := h.permissionService.ListGrants(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, grants)
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		response.BadRequest(c, "invalid parent_id")
		return
	}

	cat, err := h.categoryService.Create(c.Request.Context(), req.Name, req.Description, parentID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, cat)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/pkg/response"
)

// SessionCookie configures the cookie that mirrors the access token for browser playback.
type SessionCookie struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService         service.AuthService
	registrationService service.RegistrationService
	invitationService   service.InvitationService
	cookie              SessionCookie
	logger              *zap.Logger
}

func NewAuthHandler(
	authService service.AuthService,
	registrationService service.RegistrationService,
	invitationService service.InvitationService,
	cookie SessionCookie,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		registrationService: registrationService,
		invitationService:   invitationService,
		cookie:              cookie,
		logger:              logger,
	}
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	InviteCode string `json:"invite_code" binding:"required"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.registrationService.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Code:      req.InviteCode,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, gin.H{"user_id": p.UserID, "email": p.Email})
}

// ValidateInvitation reports whether a code can still be used, and for which address.
func (h *AuthHandler) ValidateInvitation(c *gin.Context) {
	inv, err := h.invitationService.ValidateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if inv == nil {
		response.NotFound(c, service.ErrInviteInvalid.Error())
		return
	}
	response.Success(c, gin.H{"email": inv.Email})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tokenSet, _, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.setSessionCookie(c, tokenSet)
	response.Success(c, tokenSet)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tokenSet, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.setSessionCookie(c, tokenSet)
	response.Success(c, tokenSet)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, tokens *service.TokenSet) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, tokens.AccessToken, int(tokens.ExpiresIn), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

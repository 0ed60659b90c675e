package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/pkg/response"
)

const ContextKeyPrincipal = "principal"

// PrincipalResolver turns an access token into the current principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (*model.Principal, error)
}

// Session attaches the principal carried by the request, if any. The token is read
// from the Authorization bearer header, falling back to the session cookie so that
// plain <video src> requests work. Bad or expired tokens leave the request anonymous.
func Session(resolver PrincipalResolver, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			c.Next()
			return
		}

		p, err := resolver.ResolvePrincipal(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(ContextKeyPrincipal, p)
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserDisabled):
		default:
			logger.Error("resolve session", zap.Error(err))
			response.Abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c) == nil {
			AbortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// AbortUnauthorized sends the 401 challenge used by every protected route.
func AbortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="mediahub"`)
	response.Abort(c, http.StatusUnauthorized, "authentication required")
}

// PrincipalFrom returns the request principal or nil when anonymous.
func PrincipalFrom(c *gin.Context) *model.Principal {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*model.Principal)
	return p
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

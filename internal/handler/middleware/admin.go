package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/pkg/response"
)

// AccessEvaluator decides library and media visibility.
type AccessEvaluator interface {
	CanAccess(ctx context.Context, principal *model.Principal, mediaID *uuid.UUID) (bool, error)
}

// AdminOnly lets administrators through. Must be used after Session.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			AbortUnauthorized(c)
			return
		}
		if !p.IsAdmin() {
			response.Abort(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// RequireLibrary lets through principals allowed to use the media library at all.
func RequireLibrary(evaluator AccessEvaluator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			AbortUnauthorized(c)
			return
		}
		ok, err := evaluator.CanAccess(c.Request.Context(), p, nil)
		if err != nil {
			logger.Error("evaluate library access", zap.String("user_id", p.UserID.String()), zap.Error(err))
			response.Abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if !ok {
			response.Abort(c, http.StatusForbidden, "access denied")
			return
		}
		c.Next()
	}
}

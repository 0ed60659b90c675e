package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/handler/middleware"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/pkg/response"
)

// principal returns the authenticated principal. Routes using it sit behind
// RequireAuth, AdminOnly or RequireLibrary, so nil only means a wiring mistake.
func principal(c *gin.Context) (*model.Principal, bool) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		middleware.AbortUnauthorized(c)
		return nil, false
	}
	return p, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// writeError maps a service error onto the response envelope. Internal and
// storage failures are logged; their detail never reaches the client.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	msg := service.MessageOf(err)
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		response.Unauthorized(c, msg)
	case service.KindForbidden:
		response.Forbidden(c, msg)
	case service.KindNotFound:
		response.NotFound(c, msg)
	case service.KindConflict:
		response.Conflict(c, msg)
	case service.KindValidation:
		response.BadRequest(c, msg)
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.ContextKeyRequestID)),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, msg)
	}
}

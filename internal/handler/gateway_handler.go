package handler

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/handler/middleware"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/internal/storage"
	"familyvault/mediahub/internal/stream"
	"familyvault/mediahub/pkg/response"
)

type intent int

const (
	intentDownload intent = iota
	intentStream
	intentThumbnail
)

// GatewayHandler is the only way file bytes leave the server. Every request is
// authenticated and authorized against the item it names before a byte is read.
type GatewayHandler struct {
	mediaService      service.MediaService
	permissionService service.PermissionService
	logger            *zap.Logger
}

func NewGatewayHandler(
	mediaService service.MediaService,
	permissionService service.PermissionService,
	logger *zap.Logger,
) *GatewayHandler {
	return &GatewayHandler{
		mediaService:      mediaService,
		permissionService: permissionService,
		logger:            logger,
	}
}

func (h *GatewayHandler) Download(c *gin.Context)  { h.serve(c, intentDownload) }
func (h *GatewayHandler) Stream(c *gin.Context)    { h.serve(c, intentStream) }
func (h *GatewayHandler) Thumbnail(c *gin.Context) { h.serve(c, intentThumbnail) }

func (h *GatewayHandler) serve(c *gin.Context, in intent) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		middleware.AbortUnauthorized(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}

	ctx := c.Request.Context()
	item, err := h.mediaService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, "lookup media", err)
		return
	}

	path := item.StoragePath
	if in == intentThumbnail {
		if item.ThumbnailPath == nil {
			h.notFound(c)
			return
		}
		path = *item.ThumbnailPath
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("stat media file", zap.String("media_id", id.String()), zap.Error(err))
		}
		h.notFound(c)
		return
	}

	allowed, err := h.permissionService.CanAccess(ctx, p, &id)
	if err != nil {
		h.internalError(c, "evaluate media access", err)
		return
	}
	if !allowed {
		h.logger.Info("media access denied", zap.String("user_id", p.UserID.String()), zap.String("media_id", id.String()))
		response.Abort(c, http.StatusForbidden, "access denied")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.notFound(c)
			return
		}
		h.internalError(c, "open media file", err)
		return
	}
	defer f.Close()

	if c.Request.Method == http.MethodGet {
		h.count(ctx, item, in)
	}

	meta := stream.Meta{
		Filename:    item.Filename,
		ContentType: item.ContentType,
		Disposition: stream.Inline,
	}
	if in == intentDownload {
		meta.Disposition = stream.Attachment
	}
	if mt, err := storage.SniffFile(path); err == nil {
		meta.ContentType = mt.String()
	}
	if in == intentThumbnail {
		meta.Filename = item.ID.String() + ".jpg"
	}

	n, err := stream.Serve(c.Writer, c.Request, f, info.Size(), meta)
	if err != nil {
		if !c.Writer.Written() {
			h.internalError(c, "serve media", err)
			return
		}
		// Headers are out; the client sees a truncated body.
		h.logger.Debug("stream interrupted",
			zap.String("media_id", id.String()),
			zap.Int64("bytes", n),
			zap.Error(err),
		)
	}
}

// count records the access; failures never block the transfer.
func (h *GatewayHandler) count(ctx context.Context, item *model.MediaItem, in intent) {
	var err error
	switch in {
	case intentDownload:
		err = h.mediaService.RecordDownload(ctx, item.ID)
	case intentStream:
		err = h.mediaService.RecordView(ctx, item.ID)
	default:
		return
	}
	if err != nil {
		h.logger.Warn("record media access", zap.String("media_id", item.ID.String()), zap.Error(err))
	}
}

func (h *GatewayHandler) notFound(c *gin.Context) {
	response.Abort(c, http.StatusNotFound, "media not found")
}

func (h *GatewayHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op, zap.String("path", c.Request.URL.Path), zap.Error(err))
	for _, k := range []string{"Content-Type", "Content-Length", "Content-Range", "Content-Disposition"} {
		c.Writer.Header().Del(k)
	}
	response.Abort(c, http.StatusInternalServerError, "internal server error")
}

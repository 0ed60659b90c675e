package handler

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/pkg/response"
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

type MediaHandler struct {
	mediaService      service.MediaService
	categoryService   service.CategoryService
	permissionService service.PermissionService
	maxUploadBytes    int64
	logger            *zap.Logger
}

func NewMediaHandler(
	mediaService service.MediaService,
	categoryService service.CategoryService,
	permissionService service.PermissionService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *MediaHandler {
	return &MediaHandler{
		mediaService:      mediaService,
		categoryService:   categoryService,
		permissionService: permissionService,
		maxUploadBytes:    maxUploadBytes,
		logger:            logger,
	}
}

type ListMediaQuery struct {
	CategoryID string `form:"category_id"`
	Search     string `form:"search"`
	OrderBy    string `form:"order_by"`
	Order      string `form:"order"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// List returns the catalog page visible to the caller: everything for admins,
// uncategorized items plus granted categories for everyone else.
func (h *MediaHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q ListMediaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	categoryID, err := parseOptionalUUID(q.CategoryID)
	if err != nil {
		response.BadRequest(c, "invalid category_id")
		return
	}

	filter := service.MediaFilter{
		CategoryID: categoryID,
		Search:     q.Search,
		OrderBy:    q.OrderBy,
		Order:      q.Order,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if !p.IsAdmin() {
		filter.VisibleTo = &p.UserID
	}
	items, err := h.mediaService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, items)
}

// Get answers 404 for items the caller may not see, so ids in other categories cannot be enumerated.
func (h *MediaHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	allowed, err := h.permissionService.CanAccess(ctx, p, &id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !allowed {
		writeError(c, h.logger, service.ErrMediaNotFound)
		return
	}
	item, err := h.mediaService.GetByID(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, item)
}

func (h *MediaHandler) ListCategories(c *gin.Context) {
	cats, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, cats)
}

// Upload accepts a multipart form with a "file" part plus optional title,
// description and category_id fields.
func (h *MediaHandler) Upload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	// Large files outlive any server-wide read deadline; the size cap bounds the body instead.
	_ = http.NewResponseController(c.Writer).SetReadDeadline(time.Time{})
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.formFileError(c, err)
		return
	}
	categoryID, err := parseOptionalUUID(c.PostForm("category_id"))
	if err != nil {
		response.BadRequest(c, "invalid category_id")
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer f.Close()

	item, err := h.mediaService.Upload(c.Request.Context(), service.UploadInput{
		Filename:    fh.Filename,
		Body:        f,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  categoryID,
		UploadedBy:  p.UserID,
	})
	if err != nil {
		if errors.Is(err, service.ErrFileTooLarge) {
			response.PayloadTooLarge(c, service.MessageOf(err))
			return
		}
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, item)
}

func (h *MediaHandler) formFileError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	var netErr net.Error
	switch {
	case errors.As(err, &tooLarge):
		response.PayloadTooLarge(c, service.ErrFileTooLarge.Error())
	case errors.Is(err, http.ErrMissingFile):
		response.BadRequest(c, "missing file")
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		response.BadRequest(c, "expected multipart/form-data body")
	case errors.As(err, &netErr) && netErr.Timeout():
		h.logger.Warn("upload body timed out", zap.Error(err))
		response.Error(c, http.StatusRequestTimeout, "upload timed out")
	default:
		writeError(c, h.logger, fmt.Errorf("read upload: %w", err))
	}
}

type UpdateMediaRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	CategoryID    *string `json:"category_id"`
	ClearCategory bool    `json:"clear_category"`
}

func (h *MediaHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	upd := service.MediaUpdate{
		Title:         req.Title,
		Description:   req.Description,
		ClearCategory: req.ClearCategory,
	}
	if req.CategoryID != nil {
		categoryID, err := parseOptionalUUID(*req.CategoryID)
		if err != nil {
			response.BadRequest(c, "invalid category_id")
			return
		}
		if categoryID == nil {
			upd.ClearCategory = true
		}
		upd.CategoryID = categoryID
	}

	item, err := h.mediaService.Update(c.Request.Context(), id, upd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, item)
}

func (h *MediaHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.mediaService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, nil)
}

func (h *MediaHandler) Scan(c *gin.Context) {
	files, err := h.mediaService.ScanServer(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, files)
}

// ImportRequest imports either one file with metadata or a batch of paths.
type ImportRequest struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	Paths       []string `json:"paths"`
}

func (h *MediaHandler) Import(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if len(req.Paths) > 0 {
		summary, err := h.mediaService.ImportMany(c.Request.Context(), req.Paths, p.UserID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		response.Success(c, summary)
		return
	}

	if req.Path == "" {
		response.BadRequest(c, "path or paths is required")
		return
	}
	categoryID, err := parseOptionalUUID(req.CategoryID)
	if err != nil {
		response.BadRequest(c, "invalid category_id")
		return
	}
	item, err := h.mediaService.Import(c.Request.Context(), service.ImportInput{
		Path:        req.Path,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  categoryID,
		UploadedBy:  p.UserID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, item)
}

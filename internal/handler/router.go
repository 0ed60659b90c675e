package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/config"
	"familyvault/mediahub/internal/handler/middleware"
)

// Handlers groups everything SetupRouter mounts.
type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Media   *MediaHandler
	Gateway *GatewayHandler
}

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	resolver middleware.PrincipalResolver,
	evaluator middleware.AccessEvaluator,
	h Handlers,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	if corsMW := middleware.CORS(cfg.CORS); corsMW != nil {
		r.Use(corsMW)
	}
	r.Use(middleware.Session(resolver, cfg.Server.SessionCookie, logger))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public auth routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.GET("/invitations/:code", h.Auth.ValidateInvitation)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
	}

	// Registrant routes
	library := r.Group("/api/v1")
	library.Use(middleware.RequireLibrary(evaluator, logger))
	{
		library.GET("/media", h.Media.List)
		library.GET("/media/:id", h.Media.Get)
		library.GET("/categories", h.Media.ListCategories)
	}

	// File gateway; authorization happens per item inside the handler.
	for _, route := range []struct {
		path string
		fn   gin.HandlerFunc
	}{
		{"/download/:id", h.Gateway.Download},
		{"/stream/:id", h.Gateway.Stream},
	} {
		r.GET(route.path, route.fn)
		r.HEAD(route.path, route.fn)
	}
	r.GET("/thumbnail/:id", h.Gateway.Thumbnail)

	// Admin routes
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminOnly())
	{
		admin.POST("/invitations", h.Admin.CreateInvitation)
		admin.GET("/invitations", h.Admin.ListInvitations)
		admin.POST("/invitations/:id/resend", h.Admin.ResendInvitation)

		admin.GET("/users/:user_id/categories", h.Admin.ListGrants)
		admin.POST("/users/:user_id/categories", h.Admin.GrantAllCategories)
		admin.PUT("/users/:user_id/categories/:category_id", h.Admin.GrantCategory)
		admin.DELETE("/users/:user_id/categories/:category_id", h.Admin.RevokeCategory)

		admin.POST("/categories", h.Admin.CreateCategory)

		admin.POST("/media", h.Media.Upload)
		admin.GET("/media/scan", h.Media.Scan)
		admin.POST("/media/import", h.Media.Import)
		admin.PATCH("/media/:id", h.Media.Update)
		admin.DELETE("/media/:id", h.Media.Delete)
	}

	return r
}

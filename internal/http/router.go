package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	router.SetHTMLTemplate(loadTemplates())

	health := NewHealthController(cfg.Database, cfg.Version)
	converter := NewConvertController(cfg.Converter, cfg.SessionManager, cfg.MaxInputBytes)
	admin := NewAdminController(cfg.Cleanup)

	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	router.GET("/", converter.Index)
	router.POST("/convert", converter.Submit)
	router.GET("/conversions/:id/download", converter.Download)

	api := router.Group("/api")
	{
		api.POST("/convert", converter.ConvertJSON)
		api.GET("/conversions", converter.List)
		api.GET("/stats", health.Stats)
		api.POST("/admin/cleanup", admin.Cleanup)
	}

	return router
}

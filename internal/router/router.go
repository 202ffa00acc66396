package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "labinsight/docs"
	"labinsight/internal/config"
	"labinsight/internal/handler"
	"labinsight/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Analysis *handler.AnalysisHandler
	Archive  *handler.ArchiveHandler
	Health   *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	upload := []gin.HandlerFunc{h.Analysis.Upload}
	if cfg.RateLimit.Enabled {
		upload = append([]gin.HandlerFunc{middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window)}, upload...)
	}

	// The bare path is what existing clients post to.
	r.POST("/upload-pdf", upload...)

	v1 := r.Group("/api/v1")
	v1.POST("/upload-pdf", upload...)

	analyses := v1.Group("/analyses")
	analyses.GET("", h.Archive.List)
	analyses.GET("/export", h.Archive.Export)
	analyses.GET("/:id", h.Archive.GetByID)

	return r
}

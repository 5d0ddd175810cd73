package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "libris/docs" // registers the OpenAPI description
	"libris/internal/handler"
	"libris/internal/middleware"
	"libris/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	ingestH *handler.IngestionHandler,
	pageH *handler.PageHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
	maxUploadMB int64,
) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadMB << 20

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authSvc))

	documents := v1.Group("/documents/:id")
	documents.POST("/ingest", ingestH.Submit)
	documents.DELETE("/ingest", ingestH.Cancel)
	documents.GET("/ingest/progress", ingestH.Progress)
	documents.POST("/ingest/reset", ingestH.Reset)
	documents.GET("/pages", pageH.List)
	documents.GET("/pages/export", pageH.Export)

	return r
}

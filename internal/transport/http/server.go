package http

import (
	"github.com/gin-gonic/gin"

	"docuchat/internal/config"
	"docuchat/internal/ingest"
	"docuchat/internal/query"
	"docuchat/internal/store"
	"docuchat/internal/transport/http/handler"
)

// Services are the pipeline boundaries the API layer consumes.
type Services struct {
	Store        *store.Store
	Ingest       *ingest.Service
	Orchestrator *query.Orchestrator
	Analysis     *query.AnalysisService
}

func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler()
	documentHandler := handler.NewDocumentHandler(svc.Ingest, svc.Store)
	queryHandler := handler.NewQueryHandler(svc.Orchestrator, svc.Analysis)

	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/api")
	docs := api.Group("/documents")
	docs.POST("", documentHandler.Upload)
	docs.POST("/url", documentHandler.UploadURL)
	docs.GET("", documentHandler.List)
	docs.GET("/:id", documentHandler.Get)
	docs.DELETE("/:id", documentHandler.Delete)
	docs.POST("/:id/reingest", documentHandler.Reingest)

	api.POST("/query", queryHandler.Query)
	api.POST("/analysis", queryHandler.Analyze)
	api.GET("/analysis/:id", queryHandler.GetAnalysis)

	return router
}

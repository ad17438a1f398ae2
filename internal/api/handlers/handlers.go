package handlers

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fluffyriot/screengrabx/internal/config"
	"github.com/fluffyriot/screengrabx/internal/coordinator"
	"github.com/fluffyriot/screengrabx/internal/stats"
)

type Handler struct {
	Coordinator *coordinator.Coordinator
	Stats       *stats.Collector
	Config      *config.AppConfig
	DBConn      *sql.DB
	Logger      *zap.Logger
}

func NewHandler(coord *coordinator.Coordinator, collector *stats.Collector, cfg *config.AppConfig, dbConn *sql.DB, logger *zap.Logger) *Handler {
	return &Handler{
		Coordinator: coord,
		Stats:       collector,
		Config:      cfg,
		DBConn:      dbConn,
		Logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.IndexHandler)
	r.GET("/robots.txt", h.RobotsHandler)
	r.GET("/healthz", h.HealthCheckHandler)
	r.GET("/oembed.json", h.OEmbedHandler)

	r.GET("/render/:account/status/:id", h.RenderPageHandler)
	r.GET("/renders/:name", h.ArtifactHandler)

	r.GET("/:account/status/:id", h.StatusHandler)
	r.GET("/:account/status/:id/media", h.MediaHandler)

	r.NoRoute(h.NotFoundHandler)
}

package router

import (
	"github.com/gin-gonic/gin"

	"pipemail.dev/triage/internal/http/handler"
	"pipemail.dev/triage/internal/http/middleware"
)

type RouterConfig struct {
	// AuthToken guards the API when set; empty disables auth (development).
	AuthToken string
}

type Handlers struct {
	Notifications *handler.NotificationHandler
	Analyses      *handler.AnalysisHandler
	Health        *handler.HealthHandler
}

func SetupRoutes(router *gin.Engine, h Handlers, cfg RouterConfig) {
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	if cfg.AuthToken != "" {
		v1.Use(middleware.Auth(cfg.AuthToken))
	}
	{
		NotificationRouter(v1.Group("/notifications"), h.Notifications)
		AnalysisRouter(v1.Group("/analyses"), h.Analyses)
	}
}

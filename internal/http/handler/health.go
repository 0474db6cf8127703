package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is any dependency with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	queue Pinger
}

func NewHealthHandler(db, queue Pinger) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// Check reports liveness of the service and its backing stores.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "database health check failed", "error", err)
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if h.queue != nil {
		if err := h.queue.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "queue health check failed", "error", err)
			status["status"] = "degraded"
			status["queue"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, status)
}

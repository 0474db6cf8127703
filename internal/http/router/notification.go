package router

import (
	"github.com/gin-gonic/gin"

	"pipemail.dev/triage/internal/http/handler"
)

func NotificationRouter(router *gin.RouterGroup, handler *handler.NotificationHandler) {
	router.POST("", handler.Ingest)
}

package router

import (
	"github.com/gin-gonic/gin"

	"pipemail.dev/triage/internal/http/handler"
)

func AnalysisRouter(router *gin.RouterGroup, handler *handler.AnalysisHandler) {
	router.GET("", handler.List)
	router.GET("/search", handler.Search)
	router.GET("/:id", handler.Get)
}

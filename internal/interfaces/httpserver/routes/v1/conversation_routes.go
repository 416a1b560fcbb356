package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/answer-api/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations", handler.List)
	router.POST("/conversations", handler.Create)
	router.GET("/conversations/:conversation_id", handler.Get)
	router.PATCH("/conversations/:conversation_id", handler.Update)
	router.DELETE("/conversations/:conversation_id", handler.Delete)
}

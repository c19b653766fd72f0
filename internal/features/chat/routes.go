package chat

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches chat endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc) {
	chats := router.Group("/chats", authenticated)
	{
		chats.POST("", handler.Open)
		chats.GET("", handler.List)
		chats.GET("/:chatId/messages", handler.ListMessages)
		chats.POST("/:chatId/messages", handler.SendMessage)
	}
}

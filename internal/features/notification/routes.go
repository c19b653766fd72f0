package notification

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches notification endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc) {
	notifications := router.Group("/notifications", authenticated)
	{
		notifications.GET("", handler.List)
		notifications.GET("/unread-count", handler.UnreadCount)
		notifications.PATCH("/:notificationId/read", handler.MarkRead)
		notifications.PATCH("/read-all", handler.MarkAllRead)
	}
}

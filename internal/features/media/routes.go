package media

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches media vault endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc) {
	media := router.Group("/media", authenticated)
	{
		media.POST("/upload-url", handler.UploadURL)
		media.POST("/access-url", handler.AccessURL)
	}
}

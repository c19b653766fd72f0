package user

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches user endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc, adminOnly []gin.HandlerFunc) {
	users := router.Group("/users")
	{
		users.GET("/me", authenticated, handler.Me)
		users.GET("", append(adminOnly, handler.List)...)
		users.GET("/:userId", append(adminOnly, handler.GetByID)...)
	}

	mentors := router.Group("/mentors")
	{
		mentors.GET("/pending", append(adminOnly, handler.ListPendingMentors)...)
		mentors.PATCH("/:userId/approve", append(adminOnly, handler.ApproveMentor)...)
		mentors.PATCH("/:userId/reject", append(adminOnly, handler.RejectMentor)...)
	}
}

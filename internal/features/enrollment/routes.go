package enrollment

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches enrollment endpoints to the router. The course
// player and progress endpoints live under /courses because clients address
// them by course, but the enrollment record backs both.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc, studentOnly, mentorOrAdmin []gin.HandlerFunc) {
	enrollments := router.Group("/enrollments")
	{
		enrollments.POST("", append(studentOnly, handler.Create)...)
		enrollments.GET("/mine", append(studentOnly, handler.ListMine)...)
		enrollments.GET("/pending", append(mentorOrAdmin, handler.ListPending)...)
		enrollments.GET("/approved", append(mentorOrAdmin, handler.ListApproved)...)
		enrollments.GET("/:enrollmentId", authenticated, handler.GetByID)
		enrollments.POST("/:enrollmentId/approve", append(mentorOrAdmin, handler.Approve)...)
		enrollments.POST("/:enrollmentId/reject", append(mentorOrAdmin, handler.Reject)...)
	}

	courses := router.Group("/courses")
	{
		courses.GET("/:courseId/player", authenticated, handler.Player)
		courses.PATCH("/:courseId/progress", append(studentOnly, handler.UpdateProgress)...)
	}
}

package course

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches course catalog endpoints to the router.
// Listing and detail reads are public; writes require a mentor or admin.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc, mentorOrAdmin []gin.HandlerFunc) {
	courses := router.Group("/courses")
	{
		courses.GET("", handler.List)
		courses.GET("/:courseId", handler.GetByID)
		courses.GET("/:courseId/assignments", authenticated, handler.ListAssignments)
		courses.GET("/:courseId/quizzes", authenticated, handler.ListQuizzes)

		courses.POST("", append(mentorOrAdmin, handler.Create)...)
		courses.PATCH("/:courseId", append(mentorOrAdmin, handler.Update)...)
		courses.DELETE("/:courseId", append(mentorOrAdmin, handler.Delete)...)
		courses.POST("/:courseId/assignments", append(mentorOrAdmin, handler.CreateAssignment)...)
		courses.POST("/:courseId/quizzes", append(mentorOrAdmin, handler.CreateQuiz)...)
	}
}

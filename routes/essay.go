package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/controllers"
)

// SetupEssayRoutes registers the grading endpoints. limit guards the routes that start a run.
func SetupEssayRoutes(router *gin.RouterGroup, ec *controllers.EssayController, progress, limit gin.HandlerFunc) {
	essays := router.Group("/essays")
	{
		essays.POST("", limit, ec.GradeEssay)
		essays.GET("", ec.ListReports)
		essays.POST("/async", limit, ec.GradeEssayAsync)
		essays.GET("/runs/:id", ec.GetRun)
		essays.GET("/runs/:id/progress", progress)
		essays.GET("/:id", ec.GetReport)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/controllers"
)

// SetupToolRoutes registers the writing coach tools.
func SetupToolRoutes(router *gin.RouterGroup, ec *controllers.EssayController, limit gin.HandlerFunc) {
	tools := router.Group("/tools", limit)
	tools.POST("/structure", ec.SuggestStructure)
	tools.POST("/repertoire", ec.AnalyzeRepertoire)
}

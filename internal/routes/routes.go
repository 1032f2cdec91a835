package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semantiq/internal/handlers"
)

func RegisterRoutes(router *gin.Engine, schemaHandler *handlers.SchemaHandler, sessionHandler *handlers.SessionHandler, modelHandler *handlers.ModelHandler, diagramHandler *handlers.DiagramHandler, transferHandler *handlers.TransferHandler) {
	api := router.Group("/api/v1")

	schemaRoutes := NewSchemaRoutes(schemaHandler, sessionHandler, transferHandler)
	schemaRoutes.RegisterRoutes(api)

	sessionRoutes := NewSessionRoutes(sessionHandler, modelHandler, diagramHandler, transferHandler)
	sessionRoutes.RegisterRoutes(api)

	diagramRoutes := NewDiagramRoutes(diagramHandler)
	diagramRoutes.RegisterRoutes(api)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}

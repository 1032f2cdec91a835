package routes

import (
	"github.com/gin-gonic/gin"

	"semantiq/internal/handlers"
)

type SchemaRoutes struct {
	schemaHandler   *handlers.SchemaHandler
	sessionHandler  *handlers.SessionHandler
	transferHandler *handlers.TransferHandler
}

func NewSchemaRoutes(schemaHandler *handlers.SchemaHandler, sessionHandler *handlers.SessionHandler, transferHandler *handlers.TransferHandler) *SchemaRoutes {
	return &SchemaRoutes{
		schemaHandler:   schemaHandler,
		sessionHandler:  sessionHandler,
		transferHandler: transferHandler,
	}
}

func (r *SchemaRoutes) RegisterRoutes(router *gin.RouterGroup) {
	schemas := router.Group("/schemas")
	{
		schemas.POST("", r.schemaHandler.CreateSchema)
		schemas.GET("", r.schemaHandler.ListSchemas)
		schemas.POST("/introspect", r.schemaHandler.Introspect)
		schemas.GET("/:id", r.schemaHandler.GetSchema)
		schemas.DELETE("/:id", r.schemaHandler.DeleteSchema)
		schemas.GET("/:id/export", r.transferHandler.ExportTSV)
		schemas.POST("/:id/sessions", r.sessionHandler.OpenSession)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"semantiq/internal/handlers"
	"semantiq/internal/middlewares"
)

type DiagramRoutes struct {
	diagramHandler *handlers.DiagramHandler
}

func NewDiagramRoutes(diagramHandler *handlers.DiagramHandler) *DiagramRoutes {
	return &DiagramRoutes{
		diagramHandler: diagramHandler,
	}
}

func (r *DiagramRoutes) RegisterRoutes(router *gin.RouterGroup) {
	diagram := router.Group("/sessions/:sessionId/diagram")
	diagram.Use(middlewares.RequireSession)
	{
		diagram.GET("", r.diagramHandler.GetDiagram)
		diagram.GET("/mermaid", r.diagramHandler.GetMermaid)
		diagram.POST("/connect", r.diagramHandler.BeginConnection)
		diagram.POST("/drop", r.diagramHandler.DropConnection)
		diagram.POST("/draft/commit", r.diagramHandler.CommitDraft)
		diagram.POST("/draft/cancel", r.diagramHandler.CancelDraft)
		diagram.POST("/draft/dismiss", r.diagramHandler.DismissDraft)
		diagram.POST("/edges/:edgeId/click", r.diagramHandler.ClickEdge)
		diagram.POST("/nodes/:table/click", r.diagramHandler.ClickNode)
		diagram.POST("/nodes/:table/overflow", r.diagramHandler.ClickOverflow)
		diagram.PUT("/nodes/:table/position", r.diagramHandler.MoveNode)
	}
}

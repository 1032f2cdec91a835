package routes

import (
	"github.com/gin-gonic/gin"

	"semantiq/internal/handlers"
	"semantiq/internal/middlewares"
)

type SessionRoutes struct {
	sessionHandler  *handlers.SessionHandler
	modelHandler    *handlers.ModelHandler
	diagramHandler  *handlers.DiagramHandler
	transferHandler *handlers.TransferHandler
}

func NewSessionRoutes(sessionHandler *handlers.SessionHandler, modelHandler *handlers.ModelHandler, diagramHandler *handlers.DiagramHandler, transferHandler *handlers.TransferHandler) *SessionRoutes {
	return &SessionRoutes{
		sessionHandler:  sessionHandler,
		modelHandler:    modelHandler,
		diagramHandler:  diagramHandler,
		transferHandler: transferHandler,
	}
}

func (r *SessionRoutes) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/sessions/:sessionId")
	sessions.Use(middlewares.RequireSession)
	{
		sessions.GET("/model", r.sessionHandler.GetModel)
		sessions.DELETE("", r.sessionHandler.CloseSession)

		sessions.PUT("/tables/:table/fields", r.modelHandler.CommitTableField)
		sessions.POST("/tables/:table/synonyms", r.modelHandler.AddTableSynonym)
		sessions.DELETE("/tables/:table/synonyms/:name", r.modelHandler.RemoveTableSynonym)

		sessions.PUT("/columns/:column/fields", r.modelHandler.CommitColumnField)
		sessions.POST("/columns/:column/synonyms", r.modelHandler.AddColumnSynonym)
		sessions.DELETE("/columns/:column/synonyms/:name", r.modelHandler.RemoveColumnSynonym)

		sessions.POST("/metrics", r.modelHandler.AddMetric)
		sessions.PUT("/metrics/:name", r.modelHandler.EditMetric)
		sessions.DELETE("/metrics/:name", r.modelHandler.RemoveMetric)

		sessions.POST("/relationships", r.modelHandler.AddRelationship)
		sessions.PUT("/relationships/:relId", r.modelHandler.UpdateRelationship)
		sessions.DELETE("/relationships/:relId", r.modelHandler.RemoveRelationship)
		sessions.POST("/relationships/:relId/synonyms", r.modelHandler.AnnotateRelationship)
		sessions.DELETE("/relationships/:relId/synonyms/:name", r.modelHandler.RemoveRelationshipSynonym)

		sessions.POST("/selection", r.modelHandler.Select)
		sessions.POST("/selection/all", r.modelHandler.SelectAll)
		sessions.PUT("/selection/inspector", r.modelHandler.SetInspector)
		sessions.DELETE("/selection", r.modelHandler.ClearSelection)
		sessions.DELETE("/selection/:table", r.modelHandler.Deselect)

		sessions.POST("/save", r.transferHandler.Save)
		sessions.POST("/import", r.transferHandler.ImportTSV)
	}
}

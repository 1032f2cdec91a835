package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semantiq/internal/models"
	"semantiq/internal/responses"
	"semantiq/internal/services"
)

// DiagramHandler drives the diagram state machine of an edit session:
// connection gestures, the relationship draft modal and node layout.
type DiagramHandler struct {
	sessionService *services.SessionService
}

func NewDiagramHandler(sessionService *services.SessionService) *DiagramHandler {
	return &DiagramHandler{
		sessionService: sessionService,
	}
}

// GetDiagram handles GET /api/v1/sessions/:sessionId/diagram
func (h *DiagramHandler) GetDiagram(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	h.diagramResponse(c, session, "Diagram state retrieved")
}

// GetMermaid handles GET /api/v1/sessions/:sessionId/diagram/mermaid
func (h *DiagramHandler) GetMermaid(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	responses.Success(c, http.StatusOK, gin.H{
		"mermaid": services.RenderMermaid(session.Model.Schema),
	}, "Schema visualization generated successfully")
}

type gestureRequest struct {
	TableID string `json:"table_id" binding:"required"`
}

// BeginConnection handles POST /api/v1/sessions/:sessionId/diagram/connect
func (h *DiagramHandler) BeginConnection(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req gestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Diagram.BeginConnection(req.TableID); err != nil {
		responses.Error(c, err, "Failed to start connection")
		return
	}

	h.diagramResponse(c, session, "Connection started")
}

type dropRequest struct {
	TableID string `json:"table_id"`
}

// DropConnection handles POST /api/v1/sessions/:sessionId/diagram/drop. An
// empty table_id means the handle was released over the canvas.
func (h *DiagramHandler) DropConnection(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req dropRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
			return
		}
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	opened, err := session.Diagram.DropConnection(req.TableID)
	if err != nil {
		responses.Error(c, err, "Failed to complete connection")
		return
	}

	message := "Connection dismissed"
	if opened {
		message = "Relationship draft opened"
	}
	h.diagramResponse(c, session, message)
}

type commitDraftRequest struct {
	Name             string                `json:"name,omitempty"`
	RelationshipType string                `json:"relationship_type,omitempty"`
	Synonyms         []models.SynonymGroup `json:"synonyms,omitempty"`
}

// CommitDraft handles POST /api/v1/sessions/:sessionId/diagram/draft/commit
func (h *DiagramHandler) CommitDraft(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req commitDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
			return
		}
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	rel, err := session.Diagram.CommitDraft(req.Name, req.RelationshipType, req.Synonyms)
	if err != nil {
		responses.Error(c, err, "Failed to create relationship")
		return
	}

	responses.Success(c, http.StatusCreated, gin.H{
		"relationship": rel,
		"state":        session.Diagram.State(),
	}, "Relationship created")
}

// CancelDraft handles POST /api/v1/sessions/:sessionId/diagram/draft/cancel
func (h *DiagramHandler) CancelDraft(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	session.Diagram.CancelDraft()
	h.diagramResponse(c, session, "Draft cancelled")
}

// DismissDraft handles POST /api/v1/sessions/:sessionId/diagram/draft/dismiss.
// The draft endpoints stay around so clicking the dashed edge reopens the
// modal.
func (h *DiagramHandler) DismissDraft(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	session.Diagram.DismissDraft()
	h.diagramResponse(c, session, "Draft dismissed")
}

// ClickEdge handles POST /api/v1/sessions/:sessionId/diagram/edges/:edgeId/click
func (h *DiagramHandler) ClickEdge(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Diagram.ClickEdge(c.Param("edgeId")); err != nil {
		responses.Error(c, err, "Failed to handle edge click")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{
		"state":         session.Diagram.State(),
		"inspector_tab": session.Diagram.InspectorTab(),
		"pair_filter":   session.Diagram.PairFilter(),
		"relationships": session.Diagram.FilteredRelationships(),
	}, "Edge selected")
}

// ClickNode handles POST /api/v1/sessions/:sessionId/diagram/nodes/:table/click
func (h *DiagramHandler) ClickNode(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Diagram.ClickNode(c.Param("table")); err != nil {
		responses.Error(c, err, "Failed to handle node click")
		return
	}

	h.diagramResponse(c, session, "Node selected")
}

// ClickOverflow handles POST /api/v1/sessions/:sessionId/diagram/nodes/:table/overflow
func (h *DiagramHandler) ClickOverflow(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Diagram.ClickOverflow(c.Param("table")); err != nil {
		responses.Error(c, err, "Failed to handle overflow click")
		return
	}

	h.diagramResponse(c, session, "Column list opened")
}

type moveNodeRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MoveNode handles PUT /api/v1/sessions/:sessionId/diagram/nodes/:table/position
func (h *DiagramHandler) MoveNode(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req moveNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Diagram.MoveNode(c.Param("table"), req.X, req.Y); err != nil {
		responses.Error(c, err, "Failed to move node")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"positions": session.Diagram.Positions()}, "Node moved")
}

func (h *DiagramHandler) diagramResponse(c *gin.Context, session *services.EditSession, message string) {
	responses.Success(c, http.StatusOK, gin.H{
		"state":         session.Diagram.State(),
		"draft":         session.Diagram.Draft(),
		"inspector_tab": session.Diagram.InspectorTab(),
		"pair_filter":   session.Diagram.PairFilter(),
		"positions":     session.Diagram.Positions(),
		"selection":     session.Model.Selection(),
		"inspector":     session.Model.Inspector(),
	}, message)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"semantiq/internal/models"
	"semantiq/internal/responses"
	"semantiq/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

type openSessionRequest struct {
	// Schema lets the client hand over an already loaded payload so opening
	// the editor does not refetch what the page just rendered.
	Schema *models.WireSchema `json:"schema,omitempty"`
}

// OpenSession handles POST /api/v1/schemas/:id/sessions
func (h *SessionHandler) OpenSession(c *gin.Context) {
	schemaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid schema ID format")
		return
	}

	var req openSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
			return
		}
	}

	session, token, err := h.sessionService.Open(c.Request.Context(), schemaID, req.Schema)
	if err != nil {
		responses.Error(c, err, "Failed to open edit session")
		return
	}

	responses.Success(c, http.StatusCreated, gin.H{
		"session_id": session.ID,
		"schema_id":  session.SchemaID,
		"token":      token,
		"created_at": session.CreatedAt,
	}, "Edit session opened")
}

// GetModel handles GET /api/v1/sessions/:sessionId/model
func (h *SessionHandler) GetModel(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	responses.Success(c, http.StatusOK, gin.H{
		"schema":    session.Model.Schema,
		"selection": session.Model.Selection(),
		"inspector": session.Model.Inspector(),
	}, "Model retrieved successfully")
}

// CloseSession handles DELETE /api/v1/sessions/:sessionId
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid session ID format")
		return
	}

	if err := h.sessionService.Close(c.Request.Context(), id); err != nil {
		responses.Error(c, err, "Failed to close session")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Session closed")
}

// fetchSession resolves the :sessionId route param and writes the failure
// response itself, so mutation handlers can bail out with a bare return.
func fetchSession(c *gin.Context, sessions *services.SessionService) (*services.EditSession, error) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid session ID format")
		return nil, err
	}

	session, err := sessions.Get(id)
	if err != nil {
		responses.Error(c, err, "Session not found")
		return nil, err
	}

	sessions.Touch(c.Request.Context(), session)
	return session, nil
}

package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"semantiq/internal/responses"
	"semantiq/internal/services"
)

const maxImportBytes = 16 << 20

// TransferHandler covers persistence of a session's model and the
// spreadsheet export/import round trip.
type TransferHandler struct {
	sessionService     *services.SessionService
	persistenceService *services.PersistenceService
	transferService    *services.TransferService
}

func NewTransferHandler(sessionService *services.SessionService, persistenceService *services.PersistenceService, transferService *services.TransferService) *TransferHandler {
	return &TransferHandler{
		sessionService:     sessionService,
		persistenceService: persistenceService,
		transferService:    transferService,
	}
}

// Save handles POST /api/v1/sessions/:sessionId/save
func (h *TransferHandler) Save(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	wire, err := h.persistenceService.Save(c.Request.Context(), session.Model.Schema, nil)
	if err != nil {
		responses.Error(c, err, "Failed to save schema")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{
		"schema_id":  wire.ID,
		"updated_at": wire.UpdatedAt,
	}, "Schema saved successfully")
}

// ExportTSV handles GET /api/v1/schemas/:id/export. The response is the
// spreadsheet itself, not the JSON envelope.
func (h *TransferHandler) ExportTSV(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid schema ID format")
		return
	}

	filename, data, err := h.transferService.ExportTSV(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err, "Failed to export schema")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/tab-separated-values", data)
}

// ImportTSV handles POST /api/v1/sessions/:sessionId/import. The edited
// spreadsheet is applied to the stored payload, then the session model is
// rebuilt from the re-saved schema.
func (h *TransferHandler) ImportTSV(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Missing import file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Failed to read import file")
		return
	}

	schemaID, err := uuid.Parse(session.SchemaID)
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Session schema ID is not a UUID")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	updated, wire, err := h.transferService.ImportTSV(c.Request.Context(), schemaID, data)
	if err != nil {
		responses.Error(c, err, "Failed to import spreadsheet")
		return
	}

	h.sessionService.Replace(session, wire)

	responses.Success(c, http.StatusOK, gin.H{
		"updated_columns": updated,
	}, "Spreadsheet imported successfully")
}

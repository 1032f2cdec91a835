package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"semantiq/internal/models"
	"semantiq/internal/responses"
	"semantiq/internal/services"
)

// ModelHandler commits edits against the in-session schema model. Every
// mutation takes the session lock so commits apply in arrival order.
type ModelHandler struct {
	sessionService *services.SessionService
}

func NewModelHandler(sessionService *services.SessionService) *ModelHandler {
	return &ModelHandler{
		sessionService: sessionService,
	}
}

type fieldCommitRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

// CommitTableField handles PUT /api/v1/sessions/:sessionId/tables/:table/fields
func (h *ModelHandler) CommitTableField(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req fieldCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	value, ok := req.Value.(string)
	if !ok {
		err := fmt.Errorf("%w: table.%s wants a string", models.ErrUnknownField, req.Field)
		responses.Error(c, err, "Failed to update table field")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.SetTableField(c.Param("table"), req.Field, value); err != nil {
		responses.Error(c, err, "Failed to update table field")
		return
	}

	table, _ := session.Model.Table(c.Param("table"))
	responses.Success(c, http.StatusOK, gin.H{"table": table}, "Table field updated")
}

// CommitColumnField handles PUT /api/v1/sessions/:sessionId/columns/:column/fields
func (h *ModelHandler) CommitColumnField(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req fieldCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.SetColumnField(c.Param("column"), req.Field, req.Value); err != nil {
		responses.Error(c, err, "Failed to update column field")
		return
	}

	column, _ := session.Model.Column(c.Param("column"))
	responses.Success(c, http.StatusOK, gin.H{"column": column}, "Column field updated")
}

type synonymRequest struct {
	Synonym      string   `json:"synonym" binding:"required"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// AddTableSynonym handles POST /api/v1/sessions/:sessionId/tables/:table/synonyms
func (h *ModelHandler) AddTableSynonym(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req synonymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	added, err := session.Model.AddTableSynonym(c.Param("table"), models.SynonymGroup{
		Synonym:      req.Synonym,
		SampleValues: req.SampleValues,
	})
	if err != nil {
		responses.Error(c, err, "Failed to add synonym")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"added": added}, "Synonym recorded")
}

// RemoveTableSynonym handles DELETE /api/v1/sessions/:sessionId/tables/:table/synonyms/:name
func (h *ModelHandler) RemoveTableSynonym(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	removed, err := session.Model.RemoveTableSynonym(c.Param("table"), c.Param("name"))
	if err != nil {
		responses.Error(c, err, "Failed to remove synonym")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"removed": removed}, "Synonym removed")
}

// AddColumnSynonym handles POST /api/v1/sessions/:sessionId/columns/:column/synonyms
func (h *ModelHandler) AddColumnSynonym(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req synonymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	added, err := session.Model.AddColumnSynonym(c.Param("column"), models.SynonymGroup{
		Synonym:      req.Synonym,
		SampleValues: req.SampleValues,
	})
	if err != nil {
		responses.Error(c, err, "Failed to add synonym")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"added": added}, "Synonym recorded")
}

// RemoveColumnSynonym handles DELETE /api/v1/sessions/:sessionId/columns/:column/synonyms/:name
func (h *ModelHandler) RemoveColumnSynonym(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	removed, err := session.Model.RemoveColumnSynonym(c.Param("column"), c.Param("name"))
	if err != nil {
		responses.Error(c, err, "Failed to remove synonym")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"removed": removed}, "Synonym removed")
}

type metricRequest struct {
	Table          string   `json:"table,omitempty"`
	Name           string   `json:"name" binding:"required"`
	Expression     string   `json:"expression,omitempty"`
	DefaultFilters []string `json:"default_filters,omitempty"`
}

// AddMetric handles POST /api/v1/sessions/:sessionId/metrics. An empty table
// targets the schema-level metric list.
func (h *ModelHandler) AddMetric(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	metric := models.Metric{Name: req.Name, Expression: req.Expression, DefaultFilters: req.DefaultFilters}
	if err := session.Model.AddMetric(req.Table, metric); err != nil {
		responses.Error(c, err, "Failed to add metric")
		return
	}

	responses.Success(c, http.StatusCreated, gin.H{"metric": metric}, "Metric added")
}

// EditMetric handles PUT /api/v1/sessions/:sessionId/metrics/:name
func (h *ModelHandler) EditMetric(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req metricRequest
	req.Name = c.Param("name")
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.EditMetric(req.Table, c.Param("name"), req.Expression); err != nil {
		responses.Error(c, err, "Failed to edit metric")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Metric updated")
}

// RemoveMetric handles DELETE /api/v1/sessions/:sessionId/metrics/:name?table=
func (h *ModelHandler) RemoveMetric(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.RemoveMetric(c.Query("table"), c.Param("name")); err != nil {
		responses.Error(c, err, "Failed to remove metric")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Metric removed")
}

type relationshipRequest struct {
	Name             string                `json:"name,omitempty"`
	Description      string                `json:"description,omitempty"`
	RelationshipType string                `json:"relationship_type,omitempty"`
	SourceTable      string                `json:"source_table" binding:"required"`
	SourceColumns    []string              `json:"source_columns"`
	TargetTable      string                `json:"target_table" binding:"required"`
	TargetColumns    []string              `json:"target_columns"`
	ConfidenceScore  float64               `json:"confidence_score,omitempty"`
	Synonyms         []models.SynonymGroup `json:"synonyms,omitempty"`
}

// AddRelationship handles POST /api/v1/sessions/:sessionId/relationships
func (h *ModelHandler) AddRelationship(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req relationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	rel, err := session.Model.AddRelationship(models.Relationship{
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.RelationshipType,
		SourceTableID:   req.SourceTable,
		SourceColumns:   req.SourceColumns,
		TargetTableID:   req.TargetTable,
		TargetColumns:   req.TargetColumns,
		ConfidenceScore: req.ConfidenceScore,
		Synonyms:        req.Synonyms,
	})
	if err != nil {
		responses.Error(c, err, "Failed to add relationship")
		return
	}

	responses.Success(c, http.StatusCreated, gin.H{"relationship": rel}, "Relationship created")
}

type relationshipPatchRequest struct {
	Name            *string  `json:"name,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Type            *string  `json:"relationship_type,omitempty"`
	SourceColumns   []string `json:"source_columns,omitempty"`
	TargetColumns   []string `json:"target_columns,omitempty"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// UpdateRelationship handles PUT /api/v1/sessions/:sessionId/relationships/:relId
func (h *ModelHandler) UpdateRelationship(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req relationshipPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	rel, err := session.Model.UpdateRelationship(c.Param("relId"), models.RelationshipPatch{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		SourceColumns: req.SourceColumns,
		TargetColumns: req.TargetColumns,
		Confidence:    req.ConfidenceScore,
	})
	if err != nil {
		responses.Error(c, err, "Failed to update relationship")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"relationship": rel}, "Relationship updated")
}

// RemoveRelationship handles DELETE /api/v1/sessions/:sessionId/relationships/:relId
func (h *ModelHandler) RemoveRelationship(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.RemoveRelationship(c.Param("relId")); err != nil {
		responses.Error(c, err, "Failed to remove relationship")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Relationship removed")
}

// AnnotateRelationship handles POST /api/v1/sessions/:sessionId/relationships/:relId/synonyms.
// Unlike the other relationship mutations this also works on system-derived
// relationships.
func (h *ModelHandler) AnnotateRelationship(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req synonymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	added, err := session.Model.AnnotateRelationship(c.Param("relId"), models.SynonymGroup{
		Synonym:      req.Synonym,
		SampleValues: req.SampleValues,
	})
	if err != nil {
		responses.Error(c, err, "Failed to annotate relationship")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"added": added}, "Relationship annotated")
}

// RemoveRelationshipSynonym handles DELETE /api/v1/sessions/:sessionId/relationships/:relId/synonyms/:name
func (h *ModelHandler) RemoveRelationshipSynonym(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	removed, err := session.Model.RemoveRelationshipSynonym(c.Param("relId"), c.Param("name"))
	if err != nil {
		responses.Error(c, err, "Failed to remove relationship synonym")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"removed": removed}, "Relationship synonym removed")
}

type selectionRequest struct {
	TableID string `json:"table_id" binding:"required"`
}

// Select handles POST /api/v1/sessions/:sessionId/selection
func (h *ModelHandler) Select(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.Select(req.TableID); err != nil {
		responses.Error(c, err, "Failed to select table")
		return
	}
	session.Diagram.SyncLayout()

	h.selectionResponse(c, session)
}

// Deselect handles DELETE /api/v1/sessions/:sessionId/selection/:table
func (h *ModelHandler) Deselect(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	session.Model.Deselect(c.Param("table"))
	session.Diagram.SyncLayout()

	h.selectionResponse(c, session)
}

// SelectAll handles POST /api/v1/sessions/:sessionId/selection/all
func (h *ModelHandler) SelectAll(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	session.Model.SelectAll()
	session.Diagram.SyncLayout()

	h.selectionResponse(c, session)
}

// ClearSelection handles DELETE /api/v1/sessions/:sessionId/selection
func (h *ModelHandler) ClearSelection(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	session.Model.ClearSelection()
	session.Diagram.SyncLayout()

	h.selectionResponse(c, session)
}

// SetInspector handles PUT /api/v1/sessions/:sessionId/selection/inspector
func (h *ModelHandler) SetInspector(c *gin.Context) {
	session, err := fetchSession(c, h.sessionService)
	if err != nil {
		return
	}

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err := session.Model.SetInspector(req.TableID); err != nil {
		responses.Error(c, err, "Failed to set inspected table")
		return
	}

	h.selectionResponse(c, session)
}

func (h *ModelHandler) selectionResponse(c *gin.Context, session *services.EditSession) {
	responses.Success(c, http.StatusOK, gin.H{
		"selection": session.Model.Selection(),
		"inspector": session.Model.Inspector(),
		"positions": session.Diagram.Positions(),
	}, "Selection updated")
}

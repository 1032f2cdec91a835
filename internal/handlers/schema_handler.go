package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"semantiq/internal/models"
	"semantiq/internal/responses"
	"semantiq/internal/services"
)

type SchemaHandler struct {
	catalogService       *services.CatalogService
	introspectionService *services.IntrospectionService
}

func NewSchemaHandler(catalogService *services.CatalogService, introspectionService *services.IntrospectionService) *SchemaHandler {
	return &SchemaHandler{
		catalogService:       catalogService,
		introspectionService: introspectionService,
	}
}

// CreateSchema handles POST /api/v1/schemas
func (h *SchemaHandler) CreateSchema(c *gin.Context) {
	var wire models.WireSchema
	if err := c.ShouldBindJSON(&wire); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	record, err := h.catalogService.CreateSchema(c.Request.Context(), &wire)
	if err != nil {
		responses.Error(c, err, "Failed to create schema")
		return
	}

	responses.Success(c, http.StatusCreated, gin.H{
		"id":      record.ID,
		"name":    record.Name,
		"dialect": record.Dialect,
	}, "Schema created successfully")
}

// ListSchemas handles GET /api/v1/schemas
func (h *SchemaHandler) ListSchemas(c *gin.Context) {
	records, err := h.catalogService.ListSchemas(c.Request.Context())
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to list schemas")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"schemas": records}, "Schemas retrieved successfully")
}

// GetSchema handles GET /api/v1/schemas/:id
func (h *SchemaHandler) GetSchema(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid schema ID format")
		return
	}

	record, wire, err := h.catalogService.GetSchema(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err, "Failed to get schema")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{
		"id":      record.ID,
		"name":    record.Name,
		"dialect": record.Dialect,
		"schema":  wire,
	}, "Schema retrieved successfully")
}

// DeleteSchema handles DELETE /api/v1/schemas/:id
func (h *SchemaHandler) DeleteSchema(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid schema ID format")
		return
	}

	if err := h.catalogService.DeleteSchema(c.Request.Context(), id); err != nil {
		responses.Error(c, err, "Failed to delete schema")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Schema deleted successfully")
}

type introspectRequest struct {
	ConnectionConfig map[string]any `json:"connection_config" binding:"required"`
	SchemaName       string         `json:"schema_name"`
	DisplayName      string         `json:"display_name"`
	Store            bool           `json:"store"`
}

// Introspect handles POST /api/v1/schemas/introspect. It builds a wire schema
// from a live database and optionally stores it as a new catalog entry.
func (h *SchemaHandler) Introspect(c *gin.Context) {
	var req introspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	wire, err := h.introspectionService.IntrospectSchema(c.Request.Context(), req.ConnectionConfig, req.SchemaName, req.DisplayName)
	if err != nil {
		responses.Error(c, err, "Failed to introspect database")
		return
	}

	if req.Store {
		record, err := h.catalogService.CreateSchema(c.Request.Context(), wire)
		if err != nil {
			responses.Error(c, err, "Failed to store introspected schema")
			return
		}
		responses.Success(c, http.StatusCreated, gin.H{"id": record.ID, "schema": wire}, "Schema introspected and stored")
		return
	}

	responses.Success(c, http.StatusOK, gin.H{"schema": wire}, "Schema introspected successfully")
}

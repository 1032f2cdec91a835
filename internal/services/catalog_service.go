package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"semantiq/internal/models"
	"semantiq/internal/repositories"
)

// CatalogService manages the stored schema records themselves: creating,
// listing and deleting entries in the catalog, independent of any edit
// session.
type CatalogService struct {
	schemaRepo *repositories.SchemaRepository
}

func NewCatalogService(schemaRepo *repositories.SchemaRepository) *CatalogService {
	return &CatalogService{schemaRepo: schemaRepo}
}

// CreateSchema stores a new catalog entry from a wire payload. The record id
// becomes the schema id when the payload carries none.
func (s *CatalogService) CreateSchema(ctx context.Context, wire *models.WireSchema) (*models.SchemaRecord, error) {
	if strings.TrimSpace(wire.DisplayName) == "" {
		return nil, &ValidationError{Field: "display_name", Reason: "display name is required"}
	}

	record := &models.SchemaRecord{Name: wire.DisplayName, Dialect: wire.Dialect}
	record.Prepare()

	if wire.ID == "" {
		wire.ID = record.ID.String()
	} else if parsed, err := uuid.Parse(wire.ID); err == nil {
		record.ID = parsed
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, &TransformError{Op: "marshal schema payload", Err: err}
	}
	record.Payload = payload

	if err := s.schemaRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create schema record: %w", err)
	}
	return record, nil
}

func (s *CatalogService) ListSchemas(ctx context.Context) ([]models.SchemaRecord, error) {
	return s.schemaRepo.List(ctx)
}

// GetSchema returns the record together with its decoded payload.
func (s *CatalogService) GetSchema(ctx context.Context, id uuid.UUID) (*models.SchemaRecord, *models.WireSchema, error) {
	record, err := s.schemaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, &NotFoundError{Kind: "schema", ID: id.String()}
	}

	var wire models.WireSchema
	if len(record.Payload) > 0 {
		if err := json.Unmarshal(record.Payload, &wire); err != nil {
			return nil, nil, &TransformError{Op: "decode schema payload", Err: err}
		}
	}
	return record, &wire, nil
}

func (s *CatalogService) DeleteSchema(ctx context.Context, id uuid.UUID) error {
	return s.schemaRepo.Delete(ctx, id)
}

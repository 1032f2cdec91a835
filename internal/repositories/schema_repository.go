package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"semantiq/internal/models"
)

// SchemaRepository is the catalog of stored semantic schemas.
type SchemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

func (r *SchemaRepository) Create(ctx context.Context, record *models.SchemaRecord) error {
	record.Prepare()
	return r.db.WithContext(ctx).Create(record).Error
}

// List returns catalog rows without their payloads.
func (r *SchemaRepository) List(ctx context.Context) ([]models.SchemaRecord, error) {
	var records []models.SchemaRecord
	err := r.db.WithContext(ctx).
		Select("id", "name", "dialect", "created_at", "updated_at").
		Order("name").
		Find(&records).Error
	return records, err
}

func (r *SchemaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SchemaRecord, error) {
	var record models.SchemaRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// UpdatePayload replaces the stored wire payload for a schema. The schema id
// inside the payload is authoritative and matches the record id by the time
// a save reaches this layer.
func (r *SchemaRepository) UpdatePayload(ctx context.Context, id, name, dialect string, payload []byte) error {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"name":       name,
		"dialect":    dialect,
		"payload":    json.RawMessage(payload),
		"updated_at": time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).
		Model(&models.SchemaRecord{}).
		Where("id = ?", recordID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SchemaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SchemaRecord{}, "id = ?", id).Error
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaRecord is the stored form of a semantic schema: the wire payload as
// jsonb plus the catalog columns the list view needs.
type SchemaRecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Dialect   string          `gorm:"type:text" json:"dialect"`
	Payload   json.RawMessage `gorm:"type:jsonb;not null" json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (SchemaRecord) TableName() string {
	return "semantic_schemas"
}

func (r *SchemaRecord) Prepare() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
}

package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// RunMigrations brings the catalog schema up to date. Statements are
// idempotent so restarts are safe.
func RunMigrations(db *gorm.DB) error {
	migrations := []string{
		createSemanticSchemasTable,
		createSemanticSchemasNameIndex,
	}

	for i, migration := range migrations {
		log.Printf("Running migration %d/%d", i+1, len(migrations))
		if err := db.Exec(migration).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("All migrations completed successfully")
	return nil
}

const createSemanticSchemasTable = `
CREATE TABLE IF NOT EXISTS semantic_schemas (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  name TEXT NOT NULL,
  dialect TEXT,
  payload JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createSemanticSchemasNameIndex = `
CREATE INDEX IF NOT EXISTS idx_semantic_schemas_name ON semantic_schemas (name);
`

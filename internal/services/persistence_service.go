package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"semantiq/internal/models"
	"semantiq/internal/repositories"
)

// Payloads past this size still save; they just get logged. Nothing is
// hard-capped.
const payloadWarnBytes = 4 << 20

// PersistenceService orchestrates pre-submit validation, annotation rollup
// and the save itself. A failure at any step leaves the in-memory model
// untouched: all rollups are applied to the egressed copy, never back to the
// session model.
type PersistenceService struct {
	schemaRepo *repositories.SchemaRepository
}

func NewPersistenceService(schemaRepo *repositories.SchemaRepository) *PersistenceService {
	return &PersistenceService{schemaRepo: schemaRepo}
}

// ValidateForSave runs the fatal pre-submit checks. Any failure blocks the
// submission before a store call is made.
func ValidateForSave(schema *models.DatabaseSchema) error {
	if schema.ID == "" {
		return &ValidationError{Field: "id", Reason: "schema id is required"}
	}
	if strings.TrimSpace(schema.DisplayName) == "" {
		return &ValidationError{Field: "display_name", Reason: "display name is required"}
	}
	if len(schema.ConnectionConfig) == 0 {
		return &ValidationError{Field: "connection_config", Reason: "connection config is required"}
	}
	if len(schema.Tables) == 0 {
		return &ValidationError{Field: "tables", Reason: "schema has no tables"}
	}
	return nil
}

// BuildPayload egresses the model and applies the save-time rollups:
// per-table synonym groups merge into the schema-level synonym map (while
// remaining inline on their tables), and relationship synonyms are indexed
// both by relationship id and by unordered table pair. Both indexes are
// kept as-is; the pair index merges phrases from distinct relationships
// sharing the same two tables, which downstream consumers must not assume
// is intentional sharing.
func BuildPayload(schema *models.DatabaseSchema) (*models.WireSchema, []byte, error) {
	wire := EgressSchema(schema)

	if wire.Synonyms == nil {
		wire.Synonyms = make(map[string][]string)
	}
	for _, name := range sortedTableNames(schema.Tables) {
		for _, group := range schema.Tables[name].SynonymGroups {
			wire.Synonyms[group.Synonym] = models.MergeSampleValues(
				wire.Synonyms[group.Synonym], group.SampleValues)
		}
	}

	for _, rel := range schema.Relationships {
		if len(rel.Synonyms) == 0 {
			continue
		}
		if wire.RelSynonymsByPair == nil {
			wire.RelSynonymsByPair = make(map[string][]string)
		}
		key := pairKey(rel.SourceTableID, rel.TargetTableID)
		for _, group := range rel.Synonyms {
			if !containsFold(wire.RelSynonymsByPair[key], group.Synonym) {
				wire.RelSynonymsByPair[key] = append(wire.RelSynonymsByPair[key], group.Synonym)
			}
		}
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, nil, &TransformError{Op: "serialize", Err: err}
	}
	if len(payload) > payloadWarnBytes {
		log.Printf("schema %s payload is %d bytes, larger than expected", wire.ID, len(payload))
	}
	return wire, payload, nil
}

// Save validates, builds the payload and writes it to the store. The
// completion hook, when given, receives the transformed payload after a
// successful write.
func (s *PersistenceService) Save(ctx context.Context, schema *models.DatabaseSchema, onSaved func(*models.WireSchema)) (*models.WireSchema, error) {
	if err := ValidateForSave(schema); err != nil {
		return nil, err
	}
	wire, payload, err := BuildPayload(schema)
	if err != nil {
		return nil, err
	}
	if err := s.schemaRepo.UpdatePayload(ctx, wire.ID, wire.DisplayName, wire.Dialect, payload); err != nil {
		return nil, fmt.Errorf("failed to persist schema %s: %w", wire.ID, err)
	}
	if onSaved != nil {
		onSaved(wire)
	}
	return wire, nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func containsFold(list []string, item string) bool {
	for _, s := range list {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

func sortedTableNames(tables map[string]*models.Table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

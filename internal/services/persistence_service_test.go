package services

import (
	"errors"
	"testing"

	"semantiq/internal/models"
)

func saveableSchema(t *testing.T) *models.DatabaseSchema {
	t.Helper()
	schema := ingestFixture(t)
	schema.ConnectionConfig = map[string]any{"host": "localhost"}
	return schema
}

func TestValidateForSave(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.DatabaseSchema)
		field  string
	}{
		{"missing id", func(s *models.DatabaseSchema) { s.ID = "" }, "id"},
		{"blank display name", func(s *models.DatabaseSchema) { s.DisplayName = "   " }, "display_name"},
		{"no connection config", func(s *models.DatabaseSchema) { s.ConnectionConfig = nil }, "connection_config"},
		{"no tables", func(s *models.DatabaseSchema) { s.Tables = nil }, "tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := saveableSchema(t)
			tt.mutate(schema)

			err := ValidateForSave(schema)
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if validation.Field != tt.field {
				t.Errorf("field = %q, want %q", validation.Field, tt.field)
			}
		})
	}

	if err := ValidateForSave(saveableSchema(t)); err != nil {
		t.Errorf("valid schema rejected: %v", err)
	}
}

func TestBuildPayloadSynonymRollup(t *testing.T) {
	schema := saveableSchema(t)
	model := models.NewSchemaModel(schema)
	if _, err := model.AddTableSynonym("customers", models.SynonymGroup{
		Synonym:      "big spenders",
		SampleValues: []string{"VIP"},
	}); err != nil {
		t.Fatalf("add synonym: %v", err)
	}

	wire, payload, err := BuildPayload(schema)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("empty payload")
	}

	// The group rolls up into the schema-level map with its sample values.
	values := wire.Synonyms["big spenders"]
	if len(values) != 1 || values[0] != "VIP" {
		t.Errorf("rolled up synonyms = %v", values)
	}

	// And stays inline on the table.
	found := false
	for _, g := range wire.Tables["customers"].Synonyms {
		if g.Synonym == "big spenders" {
			found = true
		}
	}
	if !found {
		t.Errorf("group removed from table on rollup")
	}
}

func TestBuildPayloadPairIndex(t *testing.T) {
	schema := saveableSchema(t)

	// Two relationships over the same pair, opposite directions, one shared
	// phrase in differing case.
	schema.Relationships = []*models.Relationship{
		{
			ID: "r1", SourceTableID: "orders", TargetTableID: "customers",
			Type:     models.RelationshipManyToOne,
			Synonyms: []models.SynonymGroup{{Synonym: "placed by"}},
		},
		{
			ID: "r2", SourceTableID: "customers", TargetTableID: "orders",
			Type:     models.RelationshipOneToMany,
			Synonyms: []models.SynonymGroup{{Synonym: "Placed By"}, {Synonym: "ordered"}},
		},
	}

	wire, _, err := BuildPayload(schema)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	key := pairKey("orders", "customers")
	if key != pairKey("customers", "orders") {
		t.Fatalf("pair key is direction-sensitive")
	}
	names := wire.RelSynonymsByPair[key]
	if len(names) != 2 {
		t.Errorf("pair index = %v, want case-insensitive merge to 2 entries", names)
	}
}

func TestBuildPayloadLeavesModelUntouched(t *testing.T) {
	schema := saveableSchema(t)
	model := models.NewSchemaModel(schema)
	if _, err := model.AddTableSynonym("customers", models.SynonymGroup{Synonym: "clientele"}); err != nil {
		t.Fatalf("add synonym: %v", err)
	}
	before := len(schema.Synonyms)

	if _, _, err := BuildPayload(schema); err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(schema.Synonyms) != before {
		t.Errorf("rollup mutated the in-memory schema synonym map")
	}
}

package services

import (
	"os"
	"path/filepath"
	"testing"

	"semantiq/internal/models"
)

const seedYAML = `
synonyms:
  - table: customers
    synonym: clientele
    sample_values: ["Acme"]
  - table: unknown_table
    synonym: ghosts
metrics:
  - table: orders
    name: revenue
    expression: SUM(total)
  - name: total_rows
    expression: COUNT(*)
`

func writeSeedFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadSeedDefinitions(t *testing.T) {
	defs, err := LoadSeedDefinitions(writeSeedFile(t, "seeds.yaml", seedYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs.Synonyms) != 2 || len(defs.Metrics) != 2 {
		t.Fatalf("defs = %+v", defs)
	}
}

func TestLoadSeedDefinitionsRejectsOtherFormats(t *testing.T) {
	if _, err := LoadSeedDefinitions(writeSeedFile(t, "seeds.json", `{}`)); err == nil {
		t.Errorf("non-yaml file accepted")
	}
}

func TestValidateSeedDefinitionsIndexedErrors(t *testing.T) {
	defs := &SeedDefinitions{
		Synonyms: []SeedSynonym{{Table: "customers", Synonym: "ok"}, {Table: "", Synonym: "bad"}},
	}
	err := ValidateSeedDefinitions(defs)
	if err == nil {
		t.Fatalf("missing table accepted")
	}
	if got := err.Error(); got != "synonym 1: table is required" {
		t.Errorf("error = %q", got)
	}

	defs = &SeedDefinitions{Metrics: []SeedMetric{{Name: "revenue"}}}
	if err := ValidateSeedDefinitions(defs); err == nil {
		t.Errorf("missing expression accepted")
	}
}

func TestApplySeeds(t *testing.T) {
	defs, err := LoadSeedDefinitions(writeSeedFile(t, "seeds.yml", seedYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	schema := ingestFixture(t)
	model := models.NewSchemaModel(schema)
	defs.Apply(model)

	groups := schema.Tables["customers"].SynonymGroups
	found := false
	for _, g := range groups {
		if g.Synonym == "clientele" {
			found = true
		}
	}
	if !found {
		t.Errorf("seed synonym not applied: %+v", groups)
	}

	// The unknown table entry is skipped, not an error.
	if _, ok := schema.Tables["unknown_table"]; ok {
		t.Errorf("seed invented a table")
	}

	// Table metric lands in metric_items without disturbing the existing one.
	items := schema.Tables["orders"].MetricItems
	if len(items) != 1 || items[0].Name != "revenue" {
		t.Fatalf("metric items = %+v", items)
	}
	if items[0].Expression != "SUM(amount)" {
		t.Errorf("seed overwrote existing metric: %+v", items[0])
	}

	if len(schema.Metrics) != 1 || schema.Metrics[0].Name != "total_rows" {
		t.Errorf("schema metrics = %+v", schema.Metrics)
	}

	// Idempotent: a second apply changes nothing.
	defs.Apply(model)
	if len(schema.Tables["orders"].MetricItems) != 1 || len(schema.Metrics) != 1 {
		t.Errorf("second apply duplicated entries")
	}
}

package services

import (
	"encoding/json"
	"testing"

	"semantiq/internal/models"
)

const fixturePayload = `{
	"id": "shop",
	"display_name": "Shop",
	"dialect": "postgres",
	"created_at": "not-a-timestamp",
	"tables": {
		"customers": {
			"name": "customers",
			"synonyms": ["clients", {"synonym": "accounts", "sample_values": ["Acme"]}],
			"metrics": ["customer_count"],
			"metadata": {"alias": "cust", "region": "eu"},
			"columns": {
				"id": {"name": "id", "type": "uuid", "primary": true},
				"name": {"name": "name", "data_type": "text"}
			}
		},
		"orders": {
			"name": "orders",
			"metrics": {"revenue": {"name": "revenue", "expression": "SUM(price)"}},
			"metadata": {
				"metric_items": [{"name": "revenue", "expression": "SUM(amount)"}]
			},
			"columns": {
				"id": {"name": "id", "type": "uuid", "primary": true},
				"customer_id": {
					"name": "customer_id",
					"data_type": "uuid",
					"is_foreign_key": true,
					"foreign_key_ref": {"table": "customers", "column": "id"}
				}
			}
		}
	},
	"relationships": [
		{
			"id": "r1",
			"from": "orders.customer_id",
			"to": "customers.id",
			"relationship_type": "many_to_one",
			"confidence_score": 3.5,
			"metadata": {"relationship_synonyms": ["placed by"]}
		}
	]
}`

func ingestFixture(t *testing.T) *models.DatabaseSchema {
	t.Helper()
	var wire models.WireSchema
	if err := json.Unmarshal([]byte(fixturePayload), &wire); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return IngestSchema(&wire)
}

func TestIngestColumnIdentity(t *testing.T) {
	schema := ingestFixture(t)

	c := schema.Tables["orders"].Columns["customer_id"]
	if c.ID != "orders.customer_id" {
		t.Errorf("column id = %q", c.ID)
	}
	if !c.IsForeignKey || c.ForeignKeyRef == nil || c.ForeignKeyRef.Table != "customers" {
		t.Errorf("foreign key not resolved: %+v", c)
	}

	// "type"/"primary" and "data_type"/"is_primary_key" are the same fields.
	if schema.Tables["customers"].Columns["id"].DataType != "uuid" {
		t.Errorf("primary-shape type not resolved")
	}
	if !schema.Tables["customers"].Columns["id"].IsPrimaryKey {
		t.Errorf("primary-shape flag not resolved")
	}
}

func TestIngestSynonymUnion(t *testing.T) {
	schema := ingestFixture(t)

	groups := schema.Tables["customers"].SynonymGroups
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Synonym != "clients" || len(groups[0].SampleValues) != 0 {
		t.Errorf("string synonym = %+v", groups[0])
	}
	if groups[1].Synonym != "accounts" || len(groups[1].SampleValues) != 1 {
		t.Errorf("object synonym = %+v", groups[1])
	}
}

func TestIngestAliasFallback(t *testing.T) {
	schema := ingestFixture(t)

	if schema.Tables["customers"].Alias != "cust" {
		t.Errorf("metadata alias fallback = %q, want cust", schema.Tables["customers"].Alias)
	}
	// The cache keys are lifted; the rest of the metadata passes through.
	if _, ok := schema.Tables["customers"].Metadata["alias"]; ok {
		t.Errorf("alias cache left in metadata")
	}
	if schema.Tables["customers"].Metadata["region"] != "eu" {
		t.Errorf("metadata passthrough lost")
	}
}

func TestIngestAliasMapWinsOverMetadata(t *testing.T) {
	var wire models.WireSchema
	if err := json.Unmarshal([]byte(fixturePayload), &wire); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	wire.Aliases.TableAliases = map[string]string{"customers": "c"}

	schema := IngestSchema(&wire)
	if schema.Tables["customers"].Alias != "c" {
		t.Errorf("alias = %q, want top-level map to win", schema.Tables["customers"].Alias)
	}
}

func TestMetricResolution(t *testing.T) {
	schema := ingestFixture(t)

	// The metric_items cache wins over the plain metrics entry.
	items := schema.Tables["orders"].MetricItems
	if len(items) != 1 || items[0].Expression != "SUM(amount)" {
		t.Fatalf("metric items = %+v", items)
	}

	wire := EgressSchema(schema)
	if wire.Tables["orders"].Metrics["revenue"].Expression != "SUM(amount)" {
		t.Errorf("egress metric = %q, want SUM(amount)", wire.Tables["orders"].Metrics["revenue"].Expression)
	}

	// A name-only metric defaults to COUNT(*) on the way out.
	if wire.Tables["customers"].Metrics["customer_count"].Expression != defaultMetricExpression {
		t.Errorf("default expression = %q", wire.Tables["customers"].Metrics["customer_count"].Expression)
	}
}

func TestIngestRelationship(t *testing.T) {
	schema := ingestFixture(t)

	if len(schema.Relationships) != 1 {
		t.Fatalf("got %d relationships", len(schema.Relationships))
	}
	rel := schema.Relationships[0]

	if rel.SourceTableID != "orders" || len(rel.SourceColumns) != 1 || rel.SourceColumns[0] != "customer_id" {
		t.Errorf("compact from not parsed: %+v", rel)
	}
	if rel.TargetTableID != "customers" {
		t.Errorf("compact to not parsed: %+v", rel)
	}
	if rel.ConfidenceScore != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", rel.ConfidenceScore)
	}
	if rel.CardinalityRatio != "N:1" {
		t.Errorf("cardinality = %q", rel.CardinalityRatio)
	}
	if rel.JoinSQL == "" {
		t.Errorf("join sql not derived")
	}
	if len(rel.Synonyms) != 1 || rel.Synonyms[0].Synonym != "placed by" {
		t.Errorf("inline synonyms = %+v", rel.Synonyms)
	}
	if rel.UserCreated {
		t.Errorf("relationship without user_created flag treated as user-created")
	}
}

func TestIngestDropsRelationshipWithEmptyEndpoint(t *testing.T) {
	wire := &models.WireSchema{
		ID:     "s",
		Tables: map[string]models.WireTable{},
		Relationships: []models.WireRelationship{
			{ID: "bad", From: "", To: "customers.id"},
		},
	}
	schema := IngestSchema(wire)
	if len(schema.Relationships) != 0 {
		t.Errorf("half-specified relationship survived ingest")
	}
}

func TestCompositeEndpointParsing(t *testing.T) {
	wire := &models.WireSchema{
		ID:     "s",
		Tables: map[string]models.WireTable{},
		Relationships: []models.WireRelationship{
			{ID: "r", From: "order_items.order_id,line_no", To: "orders.id,line_no"},
		},
	}
	schema := IngestSchema(wire)
	if len(schema.Relationships) != 1 {
		t.Fatalf("relationship dropped")
	}
	rel := schema.Relationships[0]
	if len(rel.SourceColumns) != 2 || rel.SourceColumns[1] != "line_no" {
		t.Errorf("composite columns = %v", rel.SourceColumns)
	}
}

func TestRoundTripStability(t *testing.T) {
	first := ingestFixture(t)
	second := IngestSchema(EgressSchema(first))
	third := IngestSchema(EgressSchema(second))

	// Entity-level equivalence between consecutive cycles, timestamps aside.
	if len(second.Tables) != len(third.Tables) {
		t.Fatalf("table count drifted: %d vs %d", len(second.Tables), len(third.Tables))
	}
	for name, st := range second.Tables {
		tt, ok := third.Tables[name]
		if !ok {
			t.Fatalf("table %s lost", name)
		}
		if st.Alias != tt.Alias {
			t.Errorf("%s alias drifted: %q vs %q", name, st.Alias, tt.Alias)
		}
		if len(st.SynonymGroups) != len(tt.SynonymGroups) {
			t.Errorf("%s synonyms drifted", name)
		}
		if len(st.MetricItems) != len(tt.MetricItems) {
			t.Errorf("%s metric items drifted", name)
		}
		if len(st.Columns) != len(tt.Columns) {
			t.Errorf("%s columns drifted", name)
		}
	}
	if len(second.Relationships) != len(third.Relationships) {
		t.Fatalf("relationships drifted")
	}
	for i := range second.Relationships {
		sr, tr := second.Relationships[i], third.Relationships[i]
		if sr.ID != tr.ID || sr.SourceTableID != tr.SourceTableID || sr.Type != tr.Type {
			t.Errorf("relationship %d drifted: %+v vs %+v", i, sr, tr)
		}
		if len(sr.Synonyms) != len(tr.Synonyms) {
			t.Errorf("relationship %d synonyms drifted", i)
		}
	}
}

func TestEgressPreservesRelationshipSampleValues(t *testing.T) {
	schema := ingestFixture(t)
	schema.Relationships[0].Synonyms = []models.SynonymGroup{
		{Synonym: "placed by", SampleValues: []string{"order 7 -> acme"}},
	}

	wire := EgressSchema(schema)

	// Inline metadata flattens to names only.
	raw, err := json.Marshal(wire.Relationships[0].Metadata)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"relationship_synonyms":["placed by"]}` {
		t.Errorf("inline form = %s", raw)
	}

	// The schema-level index keeps the full groups.
	groups := wire.RelSynonymsByID["r1"]
	if len(groups) != 1 || len(groups[0].SampleValues) != 1 {
		t.Fatalf("index groups = %+v", groups)
	}

	// And ingest prefers the index, so the values survive a full cycle.
	again := IngestSchema(wire)
	if len(again.Relationships[0].Synonyms[0].SampleValues) != 1 {
		t.Errorf("sample values lost on re-ingest")
	}
}

func TestParseWireTimeHealsGarbage(t *testing.T) {
	schema := ingestFixture(t)
	if schema.CreatedAt.IsZero() {
		t.Errorf("unparseable timestamp should heal to now, got zero")
	}
}

func TestColumnAliasRoundTrip(t *testing.T) {
	schema := ingestFixture(t)
	schema.Tables["customers"].Columns["name"].Alias = "customer_name"

	wire := EgressSchema(schema)
	if wire.Aliases.ColumnAliases["customers"]["name"] != "customer_name" {
		t.Errorf("column alias not written to alias map")
	}

	again := IngestSchema(wire)
	if again.Tables["customers"].Columns["name"].Alias != "customer_name" {
		t.Errorf("column alias lost on re-ingest")
	}
}

func TestEgressDropsClearedAlias(t *testing.T) {
	var wire models.WireSchema
	if err := json.Unmarshal([]byte(fixturePayload), &wire); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	wire.Aliases.TableAliases = map[string]string{"customers": "cust"}
	wire.Aliases.ColumnAliases = map[string]map[string]string{"customers": {"name": "customer_name"}}
	schema := IngestSchema(&wire)

	model := models.NewSchemaModel(schema)
	if err := model.SetTableField("customers", "alias", ""); err != nil {
		t.Fatalf("clear table alias: %v", err)
	}
	if err := model.SetColumnField("customers.name", "alias", ""); err != nil {
		t.Fatalf("clear column alias: %v", err)
	}

	out := EgressSchema(schema)
	if alias, ok := out.Aliases.TableAliases["customers"]; ok {
		t.Errorf("cleared table alias still egressed: %q", alias)
	}
	if alias, ok := out.Aliases.ColumnAliases["customers"]["name"]; ok {
		t.Errorf("cleared column alias still egressed: %q", alias)
	}
	if _, ok := out.Tables["customers"].Metadata["alias"]; ok {
		t.Errorf("cleared alias kept in table metadata")
	}

	again := IngestSchema(out)
	if alias := again.Tables["customers"].Alias; alias != "" {
		t.Errorf("cleared table alias resurrected on re-ingest: %q", alias)
	}
	if alias := again.Tables["customers"].Columns["name"].Alias; alias != "" {
		t.Errorf("cleared column alias resurrected on re-ingest: %q", alias)
	}
}

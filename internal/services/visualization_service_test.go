package services

import (
	"strings"
	"testing"
)

func TestRenderMermaid(t *testing.T) {
	schema := ingestFixture(t)
	out := RenderMermaid(schema)

	if !strings.HasPrefix(out, "erDiagram\n") {
		t.Fatalf("output does not start with erDiagram: %q", out[:20])
	}
	if !strings.Contains(out, `ORDERS }o--|| CUSTOMERS`) {
		t.Errorf("many_to_one edge missing:\n%s", out)
	}
	if !strings.Contains(out, "CUSTOMERS {") || !strings.Contains(out, "ORDERS {") {
		t.Errorf("table blocks missing:\n%s", out)
	}
	if !strings.Contains(out, "uuid id PK") {
		t.Errorf("primary key annotation missing:\n%s", out)
	}
	if !strings.Contains(out, "uuid customer_id FK") {
		t.Errorf("foreign key annotation missing:\n%s", out)
	}
}

func TestRenderMermaidDeduplicatesEdges(t *testing.T) {
	schema := ingestFixture(t)
	dup := *schema.Relationships[0]
	dup.ID = "r2"
	schema.Relationships = append(schema.Relationships, &dup)

	out := RenderMermaid(schema)
	if strings.Count(out, "}o--||") != 1 {
		t.Errorf("duplicate edge rendered:\n%s", out)
	}
}

func TestSimplifyDataType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"integer", "int"},
		{"character varying(255)", "varchar"},
		{"timestamp with time zone", "timestamptz"},
		{"double precision", "double"},
		{"jsonb", "jsonb"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := simplifyDataType(tt.in); got != tt.want {
			t.Errorf("simplifyDataType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

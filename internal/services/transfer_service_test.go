package services

import (
	"errors"
	"strings"
	"testing"

	"semantiq/internal/models"
)

func TestRenderTSV(t *testing.T) {
	schema := ingestFixture(t)
	out := string(RenderTSV(schema))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != strings.Join(exportHeader, "\t") {
		t.Fatalf("header = %q", lines[0])
	}
	// One row per column, tables and columns in sorted order.
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 4 column rows", len(lines))
	}
	if !strings.HasPrefix(lines[1], "customers\tid\t") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "orders\tcustomer_id\t") {
		t.Errorf("third row = %q", lines[3])
	}

	nameRow := strings.Split(lines[2], "\t")
	if nameRow[0] != "customers" || nameRow[1] != "name" {
		t.Fatalf("row order: %v", nameRow)
	}
}

func TestCellEscapingRoundTrip(t *testing.T) {
	tests := []string{
		"plain",
		"tab\there",
		"line\nbreak",
		"cr\rhere",
		"all\t\n\r",
	}
	for _, s := range tests {
		escaped := escapeCell(s)
		if strings.ContainsAny(escaped, "\t\n\r") {
			t.Errorf("escapeCell(%q) left control chars: %q", s, escaped)
		}
		if got := unescapeCell(escaped); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestParseTSVRequiresIdentityHeaders(t *testing.T) {
	_, err := parseTSV([]byte("display_name\tdescription\nfoo\tbar\n"))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	_, err = parseTSV([]byte(""))
	if !errors.As(err, &validation) {
		t.Fatalf("empty file err = %v, want ValidationError", err)
	}
}

func TestParseTSVRows(t *testing.T) {
	data := "table\tcolumn\tdisplay_name\ncustomers\tname\tCustomer Name\n\norders\tid\tOrder ID\n"
	rows, err := parseTSV([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows (blank lines should be skipped)", len(rows))
	}
	if rows[0]["display_name"] != "Customer Name" {
		t.Errorf("row 0 = %v", rows[0])
	}
}

func TestApplyColumnRowCountsOnlyChanges(t *testing.T) {
	c := &models.Column{Name: "name", DisplayName: "Customer Name"}

	// Identical values: no change.
	if applyColumnRow(c, map[string]string{"display_name": "Customer Name"}) {
		t.Errorf("no-op row reported as change")
	}

	if !applyColumnRow(c, map[string]string{"display_name": "Name", "is_preferred": "true"}) {
		t.Errorf("real change not reported")
	}
	if c.DisplayName != "Name" || !c.IsPreferred {
		t.Errorf("changes not applied: %+v", c)
	}

	// Unknown priority values are ignored rather than applied.
	if applyColumnRow(c, map[string]string{"priority": "urgent"}) {
		t.Errorf("invalid priority applied")
	}
	if !applyColumnRow(c, map[string]string{"priority": models.PriorityHigh}) {
		t.Errorf("valid priority not applied")
	}

	// Synonyms arrive as the JSON cell form.
	if !applyColumnRow(c, map[string]string{"synonyms": `[{"synonym":"customer name"}]`}) {
		t.Errorf("synonym cell not applied")
	}
	if len(c.SynonymGroups) != 1 {
		t.Errorf("synonym groups = %+v", c.SynonymGroups)
	}
}

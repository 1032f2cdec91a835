package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"semantiq/internal/models"
	"semantiq/internal/repositories"
)

// The spreadsheet shape is one row per column, with the annotation fields
// curators actually edit offline. Complex cells (synonyms, term lists)
// serialize to JSON so a plain spreadsheet tool round-trips them.
var exportHeader = []string{
	"table", "column", "display_name", "description", "business_description",
	"business_context", "priority", "is_preferred", "exclude_column",
	"alias", "synonyms", "business_terms", "use_cases", "relevance_keywords",
}

// TransferService renders the persisted schema as a tab-separated
// spreadsheet and applies edited spreadsheets back onto the stored payload.
type TransferService struct {
	schemaRepo *repositories.SchemaRepository
}

func NewTransferService(schemaRepo *repositories.SchemaRepository) *TransferService {
	return &TransferService{schemaRepo: schemaRepo}
}

// ExportTSV renders the stored schema for download.
func (s *TransferService) ExportTSV(ctx context.Context, schemaID uuid.UUID) (string, []byte, error) {
	record, err := s.schemaRepo.GetByID(ctx, schemaID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch schema %s: %w", schemaID, err)
	}
	if record == nil {
		return "", nil, &NotFoundError{Kind: "schema", ID: schemaID.String()}
	}
	var wire models.WireSchema
	if err := json.Unmarshal(record.Payload, &wire); err != nil {
		return "", nil, &TransformError{Op: "export", Err: err}
	}
	schema := IngestSchema(&wire)

	filename := fmt.Sprintf("%s_schema.tsv", record.Name)
	return filename, RenderTSV(schema), nil
}

// RenderTSV writes the spreadsheet form of an editable schema.
func RenderTSV(schema *models.DatabaseSchema) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(exportHeader, "\t"))
	sb.WriteByte('\n')
	for _, tableName := range sortedTableNames(schema.Tables) {
		t := schema.Tables[tableName]
		for _, colName := range sortedColumnNames(t) {
			c := t.Columns[colName]
			row := []string{
				t.Name,
				c.Name,
				c.DisplayName,
				c.Description,
				c.BusinessDescription,
				c.BusinessContext,
				c.Priority,
				strconv.FormatBool(c.IsPreferred),
				strconv.FormatBool(c.ExcludeColumn),
				c.Alias,
				jsonCell(c.SynonymGroups),
				jsonCell(c.BusinessTerms),
				jsonCell(c.UseCases),
				jsonCell(c.RelevanceKeywords),
			}
			for i, cell := range row {
				row[i] = escapeCell(cell)
			}
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String())
}

// ImportTSV applies an edited spreadsheet to the stored payload and returns
// how many columns were updated. Rows naming unknown tables or columns are
// skipped, not errors; a row only counts when it changed something. The
// stored payload is rewritten; callers re-ingest afterwards.
func (s *TransferService) ImportTSV(ctx context.Context, schemaID uuid.UUID, data []byte) (int, *models.WireSchema, error) {
	record, err := s.schemaRepo.GetByID(ctx, schemaID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch schema %s: %w", schemaID, err)
	}
	if record == nil {
		return 0, nil, &NotFoundError{Kind: "schema", ID: schemaID.String()}
	}
	var wire models.WireSchema
	if err := json.Unmarshal(record.Payload, &wire); err != nil {
		return 0, nil, &TransformError{Op: "import", Err: err}
	}
	schema := IngestSchema(&wire)

	rows, err := parseTSV(data)
	if err != nil {
		return 0, nil, err
	}

	updated := 0
	for _, row := range rows {
		t, ok := schema.Tables[row["table"]]
		if !ok {
			continue
		}
		c, ok := t.Columns[row["column"]]
		if !ok {
			continue
		}
		if applyColumnRow(c, row) {
			updated++
		}
	}

	if updated > 0 {
		_, payload, err := BuildPayload(schema)
		if err != nil {
			return 0, nil, err
		}
		if err := s.schemaRepo.UpdatePayload(ctx, schema.ID, schema.DisplayName, schema.Dialect, payload); err != nil {
			return 0, nil, fmt.Errorf("failed to persist imported schema: %w", err)
		}
	}
	fresh := EgressSchema(schema)
	return updated, fresh, nil
}

func applyColumnRow(c *models.Column, row map[string]string) bool {
	changed := false
	setString := func(dst *string, key string) {
		value, ok := row[key]
		if ok && value != *dst {
			*dst = value
			changed = true
		}
	}
	setString(&c.DisplayName, "display_name")
	setString(&c.Description, "description")
	setString(&c.BusinessDescription, "business_description")
	setString(&c.BusinessContext, "business_context")
	setString(&c.Alias, "alias")

	if value, ok := row["priority"]; ok {
		switch value {
		case models.PriorityHigh, models.PriorityMedium, models.PriorityLow, "":
			if value != c.Priority {
				c.Priority = value
				changed = true
			}
		}
	}
	if value, ok := row["is_preferred"]; ok {
		if b, err := strconv.ParseBool(value); err == nil && b != c.IsPreferred {
			c.IsPreferred = b
			changed = true
		}
	}
	if value, ok := row["exclude_column"]; ok {
		if b, err := strconv.ParseBool(value); err == nil && b != c.ExcludeColumn {
			c.ExcludeColumn = b
			changed = true
		}
	}
	if value, ok := row["synonyms"]; ok && value != "" {
		var groups models.GroupList
		if err := json.Unmarshal([]byte(value), &groups); err == nil {
			if jsonCell([]models.SynonymGroup(groups)) != jsonCell(c.SynonymGroups) {
				c.SynonymGroups = []models.SynonymGroup(groups)
				changed = true
			}
		}
	}
	for key, dst := range map[string]*[]string{
		"business_terms":     &c.BusinessTerms,
		"use_cases":          &c.UseCases,
		"relevance_keywords": &c.RelevanceKeywords,
	} {
		value, ok := row[key]
		if !ok || value == "" {
			continue
		}
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err == nil {
			if jsonCell(list) != jsonCell(*dst) {
				*dst = list
				changed = true
			}
		}
	}
	return changed
}

func parseTSV(data []byte) ([]map[string]string, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, &ValidationError{Field: "file", Reason: "spreadsheet is empty"}
	}
	header := strings.Split(lines[0], "\t")
	hasTable, hasColumn := false, false
	for _, h := range header {
		switch h {
		case "table":
			hasTable = true
		case "column":
			hasColumn = true
		}
	}
	if !hasTable || !hasColumn {
		return nil, &ValidationError{Field: "file", Reason: "spreadsheet must have table and column headers"}
	}

	var rows []map[string]string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				row[h] = unescapeCell(cells[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func jsonCell(v any) string {
	switch val := v.(type) {
	case []models.SynonymGroup:
		if len(val) == 0 {
			return ""
		}
	case []string:
		if len(val) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// escapeCell keeps cells single-line so the TSV stays parseable.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

func unescapeCell(s string) string {
	s = strings.ReplaceAll(s, "\\t", "\t")
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\r", "\r")
	return s
}

func sortedColumnNames(t *models.Table) []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

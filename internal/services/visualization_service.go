package services

import (
	"fmt"
	"strings"

	"semantiq/internal/models"
)

// RenderMermaid draws the schema as a Mermaid ER diagram. Relationship
// lines come from the curated relationship list, so user-created
// relationships show up alongside the foreign-key derived ones.
func RenderMermaid(schema *models.DatabaseSchema) string {
	var sb strings.Builder

	sb.WriteString("erDiagram\n")

	if len(schema.Relationships) > 0 {
		// Use a map to deduplicate relationships
		seen := make(map[string]bool)
		for _, rel := range schema.Relationships {
			edge := mermaidEdge(rel.Type)
			key := fmt.Sprintf("%s:%s:%s", rel.SourceTableID, edge, rel.TargetTableID)
			if seen[key] {
				continue
			}
			seen[key] = true

			// Mermaid ER diagram syntax requires a label (even if empty)
			sb.WriteString(fmt.Sprintf("    %s %s %s : %q\n",
				strings.ToUpper(rel.SourceTableID),
				edge,
				strings.ToUpper(rel.TargetTableID),
				rel.Name))
		}
		sb.WriteString("\n")
	}

	for _, tableName := range sortedTableNames(schema.Tables) {
		t := schema.Tables[tableName]
		sb.WriteString(fmt.Sprintf("    %s {\n", strings.ToUpper(t.Name)))

		for _, colName := range sortedColumnNames(t) {
			c := t.Columns[colName]
			annotations := ""
			if c.IsPrimaryKey {
				annotations = " PK"
			}
			if c.IsForeignKey {
				annotations += " FK"
			}

			sb.WriteString(fmt.Sprintf("        %s %s%s\n",
				simplifyDataType(c.DataType),
				c.Name,
				annotations))
		}

		sb.WriteString("    }\n\n")
	}

	return sb.String()
}

func mermaidEdge(relType string) string {
	switch relType {
	case models.RelationshipOneToMany:
		return "||--o{"
	case models.RelationshipManyToOne:
		return "}o--||"
	case models.RelationshipOneToOne:
		return "||--||"
	case models.RelationshipManyToMany:
		return "}o--o{"
	default:
		return "}o--||"
	}
}

func simplifyDataType(dataType string) string {
	dt := strings.ToLower(dataType)

	switch {
	case dt == "integer":
		return "int"
	case strings.HasPrefix(dt, "character varying"):
		return "varchar"
	case strings.HasPrefix(dt, "character"):
		return "char"
	case strings.HasPrefix(dt, "timestamp without time zone"):
		return "timestamp"
	case strings.HasPrefix(dt, "timestamp with time zone"):
		return "timestamptz"
	case strings.HasPrefix(dt, "time without time zone"):
		return "time"
	case dt == "double precision":
		return "double"
	case strings.HasPrefix(dt, "numeric"):
		return "numeric"
	case strings.HasPrefix(dt, "decimal"):
		return "decimal"
	case strings.HasPrefix(dt, "array"):
		return "array"
	case dt == "":
		return "unknown"
	default:
		return dt
	}
}

// MermaidForWire is the one-shot form used by the CLI: decode, normalize,
// render.
func MermaidForWire(wire *models.WireSchema) string {
	return RenderMermaid(IngestSchema(wire))
}

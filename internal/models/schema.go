package models

import (
	"fmt"
	"strings"
	"time"
)

// Relationship types supported by the semantic layer.
const (
	RelationshipOneToMany  = "one_to_many"
	RelationshipManyToOne  = "many_to_one"
	RelationshipOneToOne   = "one_to_one"
	RelationshipManyToMany = "many_to_many"
)

// Column priority levels used by the downstream NL-to-SQL ranker.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// CardinalityRatio returns the compact ratio notation for a relationship type.
func CardinalityRatio(relationshipType string) string {
	switch relationshipType {
	case RelationshipOneToMany:
		return "1:N"
	case RelationshipManyToOne:
		return "N:1"
	case RelationshipOneToOne:
		return "1:1"
	case RelationshipManyToMany:
		return "N:M"
	default:
		return ""
	}
}

// DatabaseSchema is the in-session editable model of one semantic schema.
// It is built by the normalizer on session open and flattened back to the
// wire shape on save; it never outlives the session.
type DatabaseSchema struct {
	ID               string                       `json:"id"`
	DisplayName      string                       `json:"display_name"`
	Dialect          string                       `json:"dialect"`
	SchemaPrefix     string                       `json:"schema_prefix,omitempty"`
	ConnectionConfig map[string]any               `json:"connection_config"`
	Tables           map[string]*Table            `json:"tables"`
	Relationships    []*Relationship              `json:"relationships"`
	Metrics          []Metric                     `json:"metrics,omitempty"`
	Synonyms         map[string][]string          `json:"synonyms,omitempty"`
	TableAliases     map[string]string            `json:"table_aliases,omitempty"`
	ColumnAliases    map[string]map[string]string `json:"column_aliases,omitempty"`
	Metadata         map[string]any               `json:"metadata,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

// Table is a curated table annotation. ID equals the physical table name;
// the name is structural and immutable after ingest.
type Table struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	DisplayName      string             `json:"display_name,omitempty"`
	Description      string             `json:"description,omitempty"`
	BusinessContext  string             `json:"business_context,omitempty"`
	SchemaName       string             `json:"schema_name,omitempty"`
	DatabaseID       string             `json:"database_id,omitempty"`
	Alias            string             `json:"alias,omitempty"`
	Columns          map[string]*Column `json:"columns"`
	SynonymGroups    []SynonymGroup     `json:"synonym_groups,omitempty"`
	MetricItems      []Metric           `json:"metric_items,omitempty"`
	Metrics          map[string]Metric  `json:"metrics,omitempty"`
	RowCountEstimate int64              `json:"row_count_estimate,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Column is a curated column annotation. ID is "{table}.{column}", assigned
// once at ingest and never revalidated: structural identity belongs to the
// live database, not to this annotation layer.
type Column struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	DisplayName         string         `json:"display_name,omitempty"`
	Description         string         `json:"description,omitempty"`
	BusinessContext     string         `json:"business_context,omitempty"`
	ExcludeColumn       bool           `json:"exclude_column,omitempty"`
	DataType            string         `json:"data_type,omitempty"`
	IsPrimaryKey        bool           `json:"is_primary_key,omitempty"`
	IsUnique            bool           `json:"is_unique,omitempty"`
	DefaultValue        *string        `json:"default_value,omitempty"`
	IsForeignKey        bool           `json:"is_foreign_key,omitempty"`
	ForeignKeyRef       *ForeignKeyRef `json:"foreign_key_ref,omitempty"`
	Alias               string         `json:"alias,omitempty"`
	SynonymGroups       []SynonymGroup `json:"synonym_groups,omitempty"`
	BusinessDescription string         `json:"business_description,omitempty"`
	BusinessTerms       []string       `json:"business_terms,omitempty"`
	Priority            string         `json:"priority,omitempty"`
	IsPreferred         bool           `json:"is_preferred,omitempty"`
	UseCases            []string       `json:"use_cases,omitempty"`
	RelevanceKeywords   []string       `json:"relevance_keywords,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ForeignKeyRef is the detailed target of a foreign key column.
type ForeignKeyRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// SynonymGroup is an alternate phrase for an entity, optionally with sample
// values that help the NL matcher recognize it in questions.
type SynonymGroup struct {
	Synonym      string   `json:"synonym"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// Metric is a named SQL aggregation scoped to a table or to the whole schema.
type Metric struct {
	Name           string   `json:"name"`
	Expression     string   `json:"expression"`
	DefaultFilters []string `json:"default_filters,omitempty"`
}

// Relationship joins two tables. System-derived relationships (FK discovery,
// AI inference) are read-only apart from synonym annotation; only
// user-created ones may be renamed, retyped or deleted.
type Relationship struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	SourceTableID    string         `json:"source_table_id"`
	SourceColumns    []string       `json:"source_columns,omitempty"`
	TargetTableID    string         `json:"target_table_id"`
	TargetColumns    []string       `json:"target_columns,omitempty"`
	Type             string         `json:"relationship_type"`
	CardinalityRatio string         `json:"cardinality_ratio,omitempty"`
	JoinSQL          string         `json:"join_sql,omitempty"`
	ConfidenceScore  float64        `json:"confidence_score"`
	UserCreated      bool           `json:"user_created"`
	Synonyms         []SynonymGroup `json:"relationship_synonyms,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ColumnID builds the stable column identifier used across the model.
func ColumnID(table, column string) string {
	return table + "." + column
}

// DeriveJoinSQL renders the ON clause for a relationship from its endpoint
// column lists. Mismatched list lengths fall back to the shorter pairing.
func (r *Relationship) DeriveJoinSQL() string {
	n := len(r.SourceColumns)
	if len(r.TargetColumns) < n {
		n = len(r.TargetColumns)
	}
	if n == 0 {
		return ""
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("%s.%s = %s.%s",
			r.SourceTableID, r.SourceColumns[i], r.TargetTableID, r.TargetColumns[i]))
	}
	return strings.Join(parts, " AND ")
}

// AddSynonymGroup inserts a group into a list, treating names as unique
// case-insensitively. A duplicate name is a no-op; the second return value
// reports whether the list changed.
func AddSynonymGroup(groups []SynonymGroup, group SynonymGroup) ([]SynonymGroup, bool) {
	name := strings.TrimSpace(group.Synonym)
	if name == "" {
		return groups, false
	}
	for _, g := range groups {
		if strings.EqualFold(g.Synonym, name) {
			return groups, false
		}
	}
	group.Synonym = name
	return append(groups, group), true
}

// RemoveSynonymGroup removes a group by case-insensitive name.
func RemoveSynonymGroup(groups []SynonymGroup, name string) ([]SynonymGroup, bool) {
	for i, g := range groups {
		if strings.EqualFold(g.Synonym, name) {
			return append(groups[:i:i], groups[i+1:]...), true
		}
	}
	return groups, false
}

// MergeSampleValues appends values not already present, preserving order.
func MergeSampleValues(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	out := existing
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package models

import (
	"encoding/json"
	"fmt"
)

// WireSchema is the persisted/transport representation of a semantic schema.
// Field shapes stay backward compatible with older payloads: synonyms may be
// plain strings or objects, table metrics a name list or a spec map, and
// relationships either compact "table.column" endpoints or structured ones.
type WireSchema struct {
	ID                string                    `json:"id"`
	DisplayName       string                    `json:"display_name"`
	Dialect           string                    `json:"dialect,omitempty"`
	SchemaPrefix      string                    `json:"schema_prefix,omitempty"`
	ConnectionConfig  map[string]any            `json:"connection_config,omitempty"`
	Tables            map[string]WireTable      `json:"tables"`
	Relationships     []WireRelationship        `json:"relationships,omitempty"`
	Metrics           []Metric                  `json:"metrics,omitempty"`
	Synonyms          map[string][]string       `json:"synonyms,omitempty"`
	Aliases           WireAliases               `json:"aliases,omitempty"`
	RelSynonymsByID   map[string][]SynonymGroup `json:"relationship_synonyms,omitempty"`
	RelSynonymsByPair map[string][]string       `json:"relationship_synonyms_by_pair,omitempty"`
	Metadata          map[string]any            `json:"metadata,omitempty"`
	CreatedAt         string                    `json:"created_at,omitempty"`
	UpdatedAt         string                    `json:"updated_at,omitempty"`
}

// WireAliases carries the short-form names used in generated SQL.
type WireAliases struct {
	TableAliases  map[string]string            `json:"table_aliases,omitempty"`
	ColumnAliases map[string]map[string]string `json:"column_aliases,omitempty"`
}

type WireTable struct {
	ID               string                `json:"id,omitempty"`
	Name             string                `json:"name,omitempty"`
	DisplayName      string                `json:"display_name,omitempty"`
	Description      string                `json:"description,omitempty"`
	BusinessContext  string                `json:"business_context,omitempty"`
	SchemaName       string                `json:"schema_name,omitempty"`
	DatabaseID       string                `json:"database_id,omitempty"`
	Columns          map[string]WireColumn `json:"columns"`
	Synonyms         GroupList             `json:"synonyms,omitempty"`
	Metrics          FlexMetrics           `json:"metrics,omitempty"`
	RowCountEstimate int64                 `json:"row_count_estimate,omitempty"`
	Metadata         map[string]any        `json:"metadata,omitempty"`
	CreatedAt        string                `json:"created_at,omitempty"`
	UpdatedAt        string                `json:"updated_at,omitempty"`
}

// WireColumn carries both the current "primary" field names (type, primary,
// unique, default, foreign_key) and the legacy ones (data_type,
// is_primary_key, is_foreign_key). Egress emits both sets so older readers
// keep working; ingest accepts either.
type WireColumn struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`

	Type       string  `json:"type,omitempty"`
	Primary    bool    `json:"primary,omitempty"`
	Unique     bool    `json:"unique,omitempty"`
	Default    *string `json:"default,omitempty"`
	ForeignKey bool    `json:"foreign_key,omitempty"`

	DataType     string         `json:"data_type,omitempty"`
	IsPrimaryKey bool           `json:"is_primary_key,omitempty"`
	IsForeignKey bool           `json:"is_foreign_key,omitempty"`
	ForeignKeyRef *ForeignKeyRef `json:"foreign_key_ref,omitempty"`

	BusinessContext     string         `json:"business_context,omitempty"`
	ExcludeColumn       bool           `json:"exclude_column,omitempty"`
	Synonyms            GroupList      `json:"synonyms,omitempty"`
	BusinessDescription string         `json:"business_description,omitempty"`
	BusinessTerms       []string       `json:"business_terms,omitempty"`
	Priority            string         `json:"priority,omitempty"`
	IsPreferred         bool           `json:"is_preferred,omitempty"`
	UseCases            []string       `json:"use_cases,omitempty"`
	RelevanceKeywords   []string       `json:"relevance_keywords,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           string         `json:"created_at,omitempty"`
	UpdatedAt           string         `json:"updated_at,omitempty"`
}

// WireRelationship accepts either the compact legacy shape, where From and To
// are "table.column" (or "table.col1,col2") strings, or the structured shape.
type WireRelationship struct {
	ID               string                `json:"id,omitempty"`
	Name             string                `json:"name,omitempty"`
	Description      string                `json:"description,omitempty"`
	From             string                `json:"from,omitempty"`
	To               string                `json:"to,omitempty"`
	SourceTableID    string                `json:"source_table_id,omitempty"`
	SourceColumns    []string              `json:"source_columns,omitempty"`
	TargetTableID    string                `json:"target_table_id,omitempty"`
	TargetColumns    []string              `json:"target_columns,omitempty"`
	Type             string                `json:"relationship_type,omitempty"`
	CardinalityRatio string                `json:"cardinality_ratio,omitempty"`
	JoinSQL          string                `json:"join_sql,omitempty"`
	ConfidenceScore  float64               `json:"confidence_score,omitempty"`
	Metadata         *WireRelationshipMeta `json:"metadata,omitempty"`
	CreatedAt        string                `json:"created_at,omitempty"`
}

// WireRelationshipMeta flattens relationship synonyms to plain strings on the
// way out, so any sample values carried on ingest do not survive here. The
// schema-level relationship_synonyms index is where they are preserved.
type WireRelationshipMeta struct {
	UserCreated          bool           `json:"user_created,omitempty"`
	RelationshipSynonyms StringOrGroups `json:"relationship_synonyms,omitempty"`
}

// GroupList is a synonym list whose wire elements may be plain strings or
// {synonym, sample_values} objects. It always marshals the full object form.
type GroupList []SynonymGroup

func (l *GroupList) UnmarshalJSON(data []byte) error {
	groups, err := parseSynonymUnion(data)
	if err != nil {
		return err
	}
	*l = groups
	return nil
}

// StringOrGroups is the relationship-synonym variant of the union: it accepts
// both wire shapes but marshals bare strings.
type StringOrGroups []SynonymGroup

func (l *StringOrGroups) UnmarshalJSON(data []byte) error {
	groups, err := parseSynonymUnion(data)
	if err != nil {
		return err
	}
	*l = groups
	return nil
}

func (l StringOrGroups) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(l))
	for _, g := range l {
		names = append(names, g.Synonym)
	}
	return json.Marshal(names)
}

func parseSynonymUnion(data []byte) ([]SynonymGroup, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("synonyms must be an array: %w", err)
	}
	groups := make([]SynonymGroup, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			groups = append(groups, SynonymGroup{Synonym: s})
			continue
		}
		var g SynonymGroup
		if err := json.Unmarshal(item, &g); err == nil && g.Synonym != "" {
			groups = append(groups, g)
			continue
		}
		// Unrecognized synonym shapes are cosmetic; skip rather than fail.
	}
	return groups, nil
}

// FlexMetrics accepts table metrics either as a plain list of names or as a
// map of name to spec. Marshalling always produces the map form.
type FlexMetrics map[string]Metric

func (m *FlexMetrics) UnmarshalJSON(data []byte) error {
	var specs map[string]Metric
	if err := json.Unmarshal(data, &specs); err == nil {
		for name, spec := range specs {
			spec.Name = name
			specs[name] = spec
		}
		*m = specs
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("metrics must be a name list or a spec map")
	}
	out := make(map[string]Metric, len(names))
	for _, name := range names {
		out[name] = Metric{Name: name}
	}
	*m = out
	return nil
}

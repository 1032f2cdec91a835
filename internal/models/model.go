package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTableNotFound        = errors.New("table not found")
	ErrColumnNotFound       = errors.New("column not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrMetricNotFound       = errors.New("metric not found")
	ErrUnknownField         = errors.New("unknown or immutable field")
	ErrReadOnlyRelationship = errors.New("relationship is system-derived and read-only")
	ErrEmptyEndpoint        = errors.New("relationship requires both endpoint tables")
	ErrConfidenceRange      = errors.New("confidence_score must be within [0,1]")
)

// SchemaModel owns one editable schema for the duration of an edit session.
// Columns are indexed flat by their stable "{table}.{column}" id so field
// edits and uniqueness checks stay O(1) instead of walking the table tree.
// It also tracks the selected-table set that drives the diagram and the
// inspector, keeping the inspector pinned to a member of that set.
type SchemaModel struct {
	Schema *DatabaseSchema

	columns   map[string]*Column
	selection []string
	inspector string
}

func NewSchemaModel(schema *DatabaseSchema) *SchemaModel {
	m := &SchemaModel{
		Schema:  schema,
		columns: make(map[string]*Column),
	}
	for _, t := range schema.Tables {
		for _, c := range t.Columns {
			m.columns[c.ID] = c
		}
	}
	return m
}

func (m *SchemaModel) Table(id string) (*Table, bool) {
	t, ok := m.Schema.Tables[id]
	return t, ok
}

func (m *SchemaModel) Column(id string) (*Column, bool) {
	c, ok := m.columns[id]
	return c, ok
}

// TableNames returns the table ids in deterministic order.
func (m *SchemaModel) TableNames() []string {
	names := make([]string, 0, len(m.Schema.Tables))
	for name := range m.Schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *SchemaModel) touch(t *Table) {
	now := time.Now().UTC()
	t.UpdatedAt = now
	m.Schema.UpdatedAt = now
}

// SetTableField commits one display/business field on a table. Structural
// names are immutable after ingest, so they are not reachable from here.
func (m *SchemaModel) SetTableField(tableID, field string, value string) error {
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	switch field {
	case "display_name":
		t.DisplayName = value
	case "description":
		t.Description = value
	case "business_context":
		t.BusinessContext = value
	case "alias":
		t.Alias = value
	default:
		return fmt.Errorf("%w: table.%s", ErrUnknownField, field)
	}
	m.touch(t)
	return nil
}

// SetColumnField commits one display/business field on a column, stamping
// updated_at on both the column and its owning table.
func (m *SchemaModel) SetColumnField(columnID, field string, value any) error {
	c, ok := m.Column(columnID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	switch field {
	case "display_name":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a string", ErrUnknownField, field)
		}
		c.DisplayName = s
	case "description":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a string", ErrUnknownField, field)
		}
		c.Description = s
	case "business_context":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a string", ErrUnknownField, field)
		}
		c.BusinessContext = s
	case "business_description":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a string", ErrUnknownField, field)
		}
		c.BusinessDescription = s
	case "alias":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a string", ErrUnknownField, field)
		}
		c.Alias = s
	case "priority":
		s, ok := value.(string)
		if !ok || (s != PriorityHigh && s != PriorityMedium && s != PriorityLow && s != "") {
			return fmt.Errorf("%w: priority must be high, medium or low", ErrUnknownField)
		}
		c.Priority = s
	case "is_preferred":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a bool", ErrUnknownField, field)
		}
		c.IsPreferred = b
	case "exclude_column":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: column.%s wants a bool", ErrUnknownField, field)
		}
		c.ExcludeColumn = b
	case "business_terms":
		list, err := stringSlice(value)
		if err != nil {
			return fmt.Errorf("%w: column.%s wants a string list", ErrUnknownField, field)
		}
		c.BusinessTerms = list
	case "use_cases":
		list, err := stringSlice(value)
		if err != nil {
			return fmt.Errorf("%w: column.%s wants a string list", ErrUnknownField, field)
		}
		c.UseCases = list
	case "relevance_keywords":
		list, err := stringSlice(value)
		if err != nil {
			return fmt.Errorf("%w: column.%s wants a string list", ErrUnknownField, field)
		}
		c.RelevanceKeywords = list
	default:
		return fmt.Errorf("%w: column.%s", ErrUnknownField, field)
	}
	c.UpdatedAt = time.Now().UTC()
	table, _, found := strings.Cut(columnID, ".")
	if t, ok := m.Table(table); ok && found {
		m.touch(t)
	}
	return nil
}

func stringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("not a string list")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("not a string list")
	}
}

// AddRelationship appends a user-authored relationship. Both endpoints must
// name existing tables; column references are taken on trust, matching how
// the live database owns structural identity.
func (m *SchemaModel) AddRelationship(rel Relationship) (*Relationship, error) {
	if rel.SourceTableID == "" || rel.TargetTableID == "" {
		return nil, ErrEmptyEndpoint
	}
	if _, ok := m.Table(rel.SourceTableID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, rel.SourceTableID)
	}
	if _, ok := m.Table(rel.TargetTableID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, rel.TargetTableID)
	}
	if rel.ConfidenceScore < 0 || rel.ConfidenceScore > 1 {
		return nil, ErrConfidenceRange
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.Name == "" {
		rel.Name = rel.SourceTableID + "_to_" + rel.TargetTableID
	}
	if rel.Type == "" {
		rel.Type = RelationshipManyToOne
	}
	if rel.CardinalityRatio == "" {
		rel.CardinalityRatio = CardinalityRatio(rel.Type)
	}
	if rel.ConfidenceScore == 0 {
		rel.ConfidenceScore = 1.0
	}
	rel.UserCreated = true
	rel.JoinSQL = rel.DeriveJoinSQL()
	rel.CreatedAt = time.Now().UTC()
	m.Schema.Relationships = append(m.Schema.Relationships, &rel)
	m.Schema.UpdatedAt = rel.CreatedAt
	return &rel, nil
}

func (m *SchemaModel) Relationship(id string) (*Relationship, bool) {
	for _, rel := range m.Schema.Relationships {
		if rel.ID == id {
			return rel, true
		}
	}
	return nil, false
}

// RelationshipsBetween returns every relationship joining the two tables,
// in either direction. This backs the pair-filtered inspector view.
func (m *SchemaModel) RelationshipsBetween(a, b string) []*Relationship {
	var out []*Relationship
	for _, rel := range m.Schema.Relationships {
		if (rel.SourceTableID == a && rel.TargetTableID == b) ||
			(rel.SourceTableID == b && rel.TargetTableID == a) {
			out = append(out, rel)
		}
	}
	return out
}

// RelationshipPatch carries the mutable relationship fields; nil means keep.
type RelationshipPatch struct {
	Name          *string
	Description   *string
	Type          *string
	SourceColumns []string
	TargetColumns []string
	Confidence    *float64
}

// UpdateRelationship mutates a user-created relationship. System-derived
// relationships only accept synonym annotation, via AnnotateRelationship.
func (m *SchemaModel) UpdateRelationship(id string, patch RelationshipPatch) (*Relationship, error) {
	rel, ok := m.Relationship(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	if !rel.UserCreated {
		return nil, ErrReadOnlyRelationship
	}
	if patch.Confidence != nil && (*patch.Confidence < 0 || *patch.Confidence > 1) {
		return nil, ErrConfidenceRange
	}
	if patch.Name != nil && *patch.Name != "" {
		rel.Name = *patch.Name
	}
	if patch.Description != nil {
		rel.Description = *patch.Description
	}
	if patch.Type != nil && *patch.Type != "" {
		rel.Type = *patch.Type
		rel.CardinalityRatio = CardinalityRatio(*patch.Type)
	}
	if patch.SourceColumns != nil {
		rel.SourceColumns = patch.SourceColumns
	}
	if patch.TargetColumns != nil {
		rel.TargetColumns = patch.TargetColumns
	}
	if patch.Confidence != nil {
		rel.ConfidenceScore = *patch.Confidence
	}
	rel.JoinSQL = rel.DeriveJoinSQL()
	m.Schema.UpdatedAt = time.Now().UTC()
	return rel, nil
}

// AnnotateRelationship adds a synonym group to any relationship, including
// system-derived ones. Duplicate names are a no-op.
func (m *SchemaModel) AnnotateRelationship(id string, group SynonymGroup) (bool, error) {
	rel, ok := m.Relationship(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	groups, added := AddSynonymGroup(rel.Synonyms, group)
	rel.Synonyms = groups
	if added {
		m.Schema.UpdatedAt = time.Now().UTC()
	}
	return added, nil
}

func (m *SchemaModel) RemoveRelationshipSynonym(id, name string) (bool, error) {
	rel, ok := m.Relationship(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	groups, removed := RemoveSynonymGroup(rel.Synonyms, name)
	rel.Synonyms = groups
	if removed {
		m.Schema.UpdatedAt = time.Now().UTC()
	}
	return removed, nil
}

// RemoveRelationship deletes a user-created relationship.
func (m *SchemaModel) RemoveRelationship(id string) error {
	for i, rel := range m.Schema.Relationships {
		if rel.ID != id {
			continue
		}
		if !rel.UserCreated {
			return ErrReadOnlyRelationship
		}
		m.Schema.Relationships = append(m.Schema.Relationships[:i], m.Schema.Relationships[i+1:]...)
		m.Schema.UpdatedAt = time.Now().UTC()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
}

// AddTableSynonym adds a synonym group to a table; duplicates are a no-op.
func (m *SchemaModel) AddTableSynonym(tableID string, group SynonymGroup) (bool, error) {
	t, ok := m.Table(tableID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	groups, added := AddSynonymGroup(t.SynonymGroups, group)
	t.SynonymGroups = groups
	if added {
		m.touch(t)
	}
	return added, nil
}

func (m *SchemaModel) RemoveTableSynonym(tableID, name string) (bool, error) {
	t, ok := m.Table(tableID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	groups, removed := RemoveSynonymGroup(t.SynonymGroups, name)
	t.SynonymGroups = groups
	if removed {
		m.touch(t)
	}
	return removed, nil
}

func (m *SchemaModel) AddColumnSynonym(columnID string, group SynonymGroup) (bool, error) {
	c, ok := m.Column(columnID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	groups, added := AddSynonymGroup(c.SynonymGroups, group)
	c.SynonymGroups = groups
	if added {
		c.UpdatedAt = time.Now().UTC()
	}
	return added, nil
}

func (m *SchemaModel) RemoveColumnSynonym(columnID, name string) (bool, error) {
	c, ok := m.Column(columnID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	groups, removed := RemoveSynonymGroup(c.SynonymGroups, name)
	c.SynonymGroups = groups
	if removed {
		c.UpdatedAt = time.Now().UTC()
	}
	return removed, nil
}

// AddMetric upserts a metric; tableID "" targets the schema scope. Table
// metrics land in the metric_items cache, which wins over the plain metrics
// map on egress.
func (m *SchemaModel) AddMetric(tableID string, metric Metric) error {
	if strings.TrimSpace(metric.Name) == "" {
		return errors.New("metric name is required")
	}
	if tableID == "" {
		for i, existing := range m.Schema.Metrics {
			if strings.EqualFold(existing.Name, metric.Name) {
				m.Schema.Metrics[i] = metric
				m.Schema.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		m.Schema.Metrics = append(m.Schema.Metrics, metric)
		m.Schema.UpdatedAt = time.Now().UTC()
		return nil
	}
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	for i, existing := range t.MetricItems {
		if strings.EqualFold(existing.Name, metric.Name) {
			t.MetricItems[i] = metric
			m.touch(t)
			return nil
		}
	}
	t.MetricItems = append(t.MetricItems, metric)
	m.touch(t)
	return nil
}

// EditMetric updates the expression of an existing metric in either scope.
func (m *SchemaModel) EditMetric(tableID, name, expression string) error {
	if tableID == "" {
		for i, metric := range m.Schema.Metrics {
			if strings.EqualFold(metric.Name, name) {
				m.Schema.Metrics[i].Expression = expression
				m.Schema.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrMetricNotFound, name)
	}
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	for i, metric := range t.MetricItems {
		if strings.EqualFold(metric.Name, name) {
			t.MetricItems[i].Expression = expression
			m.touch(t)
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrMetricNotFound, tableID, name)
}

func (m *SchemaModel) RemoveMetric(tableID, name string) error {
	if tableID == "" {
		for i, metric := range m.Schema.Metrics {
			if strings.EqualFold(metric.Name, name) {
				m.Schema.Metrics = append(m.Schema.Metrics[:i], m.Schema.Metrics[i+1:]...)
				m.Schema.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrMetricNotFound, name)
	}
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	for i, metric := range t.MetricItems {
		if strings.EqualFold(metric.Name, name) {
			t.MetricItems = append(t.MetricItems[:i], t.MetricItems[i+1:]...)
			delete(t.Metrics, metric.Name)
			m.touch(t)
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrMetricNotFound, tableID, name)
}

// Select adds a table to the selection set and points the inspector at it.
func (m *SchemaModel) Select(tableID string) error {
	if _, ok := m.Table(tableID); !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	for _, id := range m.selection {
		if id == tableID {
			m.inspector = tableID
			return nil
		}
	}
	m.selection = append(m.selection, tableID)
	m.inspector = tableID
	return nil
}

// Deselect removes a table. If it was the inspected table, the inspector
// falls back to the first remaining selection, or closes on an empty set.
func (m *SchemaModel) Deselect(tableID string) {
	for i, id := range m.selection {
		if id != tableID {
			continue
		}
		m.selection = append(m.selection[:i], m.selection[i+1:]...)
		break
	}
	if m.inspector == tableID {
		if len(m.selection) > 0 {
			m.inspector = m.selection[0]
		} else {
			m.inspector = ""
		}
	}
}

func (m *SchemaModel) SelectAll() {
	m.selection = m.TableNames()
	if m.inspector == "" && len(m.selection) > 0 {
		m.inspector = m.selection[0]
	}
}

func (m *SchemaModel) ClearSelection() {
	m.selection = nil
	m.inspector = ""
}

// Selection returns the selected table ids in insertion order.
func (m *SchemaModel) Selection() []string {
	out := make([]string, len(m.selection))
	copy(out, m.selection)
	return out
}

// Inspector returns the table the inspector displays, "" when closed.
func (m *SchemaModel) Inspector() string {
	return m.inspector
}

// SetInspector points the inspector at a table already in the selection.
func (m *SchemaModel) SetInspector(tableID string) error {
	for _, id := range m.selection {
		if id == tableID {
			m.inspector = tableID
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not selected", ErrTableNotFound, tableID)
}

// IsSelected reports selection membership.
func (m *SchemaModel) IsSelected(tableID string) bool {
	for _, id := range m.selection {
		if id == tableID {
			return true
		}
	}
	return false
}

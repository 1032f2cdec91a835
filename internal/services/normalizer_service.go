package services

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"semantiq/internal/models"
)

// The normalizer converts between the persisted wire shape and the richer
// in-session editable model. Both directions are pure: ingest resolves every
// duck-typed wire shape into the canonical form exactly once, and egress
// alone decides the final wire representation. For any well-formed payload,
// ingest(egress(ingest(X))) is entity-by-entity equivalent to ingest(X),
// ignoring timestamps.

const defaultMetricExpression = "COUNT(*)"

// IngestSchema builds the editable model from a wire schema. Cosmetic
// malformations (timestamps, unknown synonym shapes, out-of-range
// confidence) are defaulted silently; nothing structural is healed.
func IngestSchema(wire *models.WireSchema) *models.DatabaseSchema {
	schema := &models.DatabaseSchema{
		ID:               wire.ID,
		DisplayName:      wire.DisplayName,
		Dialect:          wire.Dialect,
		SchemaPrefix:     wire.SchemaPrefix,
		ConnectionConfig: copyAnyMap(wire.ConnectionConfig),
		Tables:           make(map[string]*models.Table, len(wire.Tables)),
		Synonyms:         copyStringListMap(wire.Synonyms),
		TableAliases:     copyStringMap(wire.Aliases.TableAliases),
		ColumnAliases:    copyColumnAliases(wire.Aliases.ColumnAliases),
		Metadata:         copyAnyMap(wire.Metadata),
		CreatedAt:        parseWireTime(wire.CreatedAt),
		UpdatedAt:        parseWireTime(wire.UpdatedAt),
	}
	schema.Metrics = append(schema.Metrics, wire.Metrics...)

	for name, wt := range wire.Tables {
		schema.Tables[name] = ingestTable(name, wt, wire)
	}
	for _, wr := range wire.Relationships {
		if rel := ingestRelationship(wr, wire.RelSynonymsByID); rel != nil {
			schema.Relationships = append(schema.Relationships, rel)
		}
	}
	return schema
}

func ingestTable(name string, wt models.WireTable, wire *models.WireSchema) *models.Table {
	t := &models.Table{
		ID:               name,
		Name:             name,
		DisplayName:      wt.DisplayName,
		Description:      wt.Description,
		BusinessContext:  wt.BusinessContext,
		SchemaName:       wt.SchemaName,
		DatabaseID:       wt.DatabaseID,
		Columns:          make(map[string]*models.Column, len(wt.Columns)),
		RowCountEstimate: wt.RowCountEstimate,
		CreatedAt:        parseWireTime(wt.CreatedAt),
		UpdatedAt:        parseWireTime(wt.UpdatedAt),
	}

	// Alias maps are authoritative; the metadata cache is the fallback for
	// payloads written before the top-level maps existed.
	if alias, ok := wire.Aliases.TableAliases[name]; ok {
		t.Alias = alias
	} else if alias, ok := metadataString(wt.Metadata, "alias"); ok {
		t.Alias = alias
	}

	t.SynonymGroups = []models.SynonymGroup(wt.Synonyms)
	if len(t.SynonymGroups) == 0 {
		t.SynonymGroups = metadataSynonymGroups(wt.Metadata)
	}

	if len(wt.Metrics) > 0 {
		t.Metrics = make(map[string]models.Metric, len(wt.Metrics))
		for metricName, spec := range wt.Metrics {
			spec.Name = metricName
			t.Metrics[metricName] = spec
		}
	}
	t.MetricItems = metadataMetricItems(wt.Metadata)
	if len(t.MetricItems) == 0 {
		t.MetricItems = deriveMetricItems(t.Metrics)
	}

	t.Metadata = copyAnyMap(wt.Metadata)
	delete(t.Metadata, "alias")
	delete(t.Metadata, "synonym_groups")
	delete(t.Metadata, "metric_items")
	if len(t.Metadata) == 0 {
		t.Metadata = nil
	}

	for colName, wc := range wt.Columns {
		t.Columns[colName] = ingestColumn(name, colName, wc, wire)
	}
	return t
}

func ingestColumn(tableName, colName string, wc models.WireColumn, wire *models.WireSchema) *models.Column {
	c := &models.Column{
		ID:                  models.ColumnID(tableName, colName),
		Name:                colName,
		DisplayName:         wc.DisplayName,
		Description:         wc.Description,
		BusinessContext:     wc.BusinessContext,
		ExcludeColumn:       wc.ExcludeColumn,
		IsUnique:            wc.Unique,
		DefaultValue:        wc.Default,
		BusinessDescription: wc.BusinessDescription,
		BusinessTerms:       append([]string(nil), wc.BusinessTerms...),
		Priority:            wc.Priority,
		IsPreferred:         wc.IsPreferred,
		UseCases:            append([]string(nil), wc.UseCases...),
		RelevanceKeywords:   append([]string(nil), wc.RelevanceKeywords...),
		CreatedAt:           parseWireTime(wc.CreatedAt),
		UpdatedAt:           parseWireTime(wc.UpdatedAt),
	}

	c.DataType = wc.DataType
	if c.DataType == "" {
		c.DataType = wc.Type
	}
	c.IsPrimaryKey = wc.IsPrimaryKey || wc.Primary
	if wc.ForeignKeyRef != nil {
		ref := *wc.ForeignKeyRef
		c.ForeignKeyRef = &ref
	}
	c.IsForeignKey = wc.IsForeignKey || wc.ForeignKey || c.ForeignKeyRef != nil

	if alias, ok := wire.Aliases.ColumnAliases[tableName][colName]; ok {
		c.Alias = alias
	} else if alias, ok := metadataString(wc.Metadata, "alias"); ok {
		c.Alias = alias
	}

	c.SynonymGroups = []models.SynonymGroup(wc.Synonyms)

	c.Metadata = copyAnyMap(wc.Metadata)
	delete(c.Metadata, "alias")
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	return c
}

func ingestRelationship(wr models.WireRelationship, byID map[string][]models.SynonymGroup) *models.Relationship {
	rel := &models.Relationship{
		ID:               wr.ID,
		Name:             wr.Name,
		Description:      wr.Description,
		SourceTableID:    wr.SourceTableID,
		SourceColumns:    append([]string(nil), wr.SourceColumns...),
		TargetTableID:    wr.TargetTableID,
		TargetColumns:    append([]string(nil), wr.TargetColumns...),
		Type:             wr.Type,
		CardinalityRatio: wr.CardinalityRatio,
		JoinSQL:          wr.JoinSQL,
		ConfidenceScore:  clamp01(wr.ConfidenceScore),
		CreatedAt:        parseWireTime(wr.CreatedAt),
	}

	// Compact "table.column" endpoints are the legacy shape; structured
	// endpoints pass through untouched.
	if rel.SourceTableID == "" && wr.From != "" {
		rel.SourceTableID, rel.SourceColumns = parseEndpoint(wr.From)
	}
	if rel.TargetTableID == "" && wr.To != "" {
		rel.TargetTableID, rel.TargetColumns = parseEndpoint(wr.To)
	}
	if rel.SourceTableID == "" || rel.TargetTableID == "" {
		return nil
	}

	if wr.Metadata != nil {
		rel.UserCreated = wr.Metadata.UserCreated
		rel.Synonyms = []models.SynonymGroup(wr.Metadata.RelationshipSynonyms)
	}
	// The schema-level index keeps sample values that the inline flattening
	// drops, so it wins whenever it carries this relationship.
	if rel.ID != "" {
		if enriched, ok := byID[rel.ID]; ok && len(enriched) > 0 {
			rel.Synonyms = append([]models.SynonymGroup(nil), enriched...)
		}
	}

	if rel.CardinalityRatio == "" {
		rel.CardinalityRatio = models.CardinalityRatio(rel.Type)
	}
	if rel.JoinSQL == "" {
		rel.JoinSQL = rel.DeriveJoinSQL()
	}
	return rel
}

// EgressSchema flattens the editable model back to the wire shape.
func EgressSchema(schema *models.DatabaseSchema) *models.WireSchema {
	wire := &models.WireSchema{
		ID:               schema.ID,
		DisplayName:      schema.DisplayName,
		Dialect:          schema.Dialect,
		SchemaPrefix:     schema.SchemaPrefix,
		ConnectionConfig: copyAnyMap(schema.ConnectionConfig),
		Tables:           make(map[string]models.WireTable, len(schema.Tables)),
		Synonyms:         copyStringListMap(schema.Synonyms),
		Metadata:         copyAnyMap(schema.Metadata),
		CreatedAt:        schema.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        schema.UpdatedAt.UTC().Format(time.RFC3339),
	}
	wire.Metrics = append(wire.Metrics, schema.Metrics...)

	// Alias maps are rebuilt from the tables below; the ingest-time snapshot
	// on the schema would resurrect aliases the session has since cleared.
	for name, t := range schema.Tables {
		wire.Tables[name] = egressTable(t, wire)
	}
	for _, rel := range schema.Relationships {
		wire.Relationships = append(wire.Relationships, egressRelationship(rel))
		if len(rel.Synonyms) > 0 && rel.ID != "" {
			if wire.RelSynonymsByID == nil {
				wire.RelSynonymsByID = make(map[string][]models.SynonymGroup)
			}
			wire.RelSynonymsByID[rel.ID] = append([]models.SynonymGroup(nil), rel.Synonyms...)
		}
	}
	sort.Slice(wire.Relationships, func(i, j int) bool {
		return wire.Relationships[i].ID < wire.Relationships[j].ID
	})
	return wire
}

func egressTable(t *models.Table, wire *models.WireSchema) models.WireTable {
	wt := models.WireTable{
		ID:               t.ID,
		Name:             t.Name,
		DisplayName:      t.DisplayName,
		Description:      t.Description,
		BusinessContext:  t.BusinessContext,
		SchemaName:       t.SchemaName,
		DatabaseID:       t.DatabaseID,
		Columns:          make(map[string]models.WireColumn, len(t.Columns)),
		Synonyms:         models.GroupList(t.SynonymGroups),
		RowCountEstimate: t.RowCountEstimate,
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        t.UpdatedAt.UTC().Format(time.RFC3339),
	}

	wt.Metrics = mergeTableMetrics(t)

	metadata := copyAnyMap(t.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	if t.Alias != "" {
		metadata["alias"] = t.Alias
		if wire.Aliases.TableAliases == nil {
			wire.Aliases.TableAliases = make(map[string]string)
		}
		wire.Aliases.TableAliases[t.Name] = t.Alias
	}
	if len(t.SynonymGroups) > 0 {
		metadata["synonym_groups"] = append([]models.SynonymGroup(nil), t.SynonymGroups...)
	}
	if len(t.MetricItems) > 0 {
		metadata["metric_items"] = append([]models.Metric(nil), t.MetricItems...)
	}
	if len(metadata) > 0 {
		wt.Metadata = metadata
	}

	for name, c := range t.Columns {
		wt.Columns[name] = egressColumn(t.Name, c, wire)
	}
	return wt
}

// mergeTableMetrics resolves the final metric set for a table: the
// metric_items cache wins over same-named plain entries, and entries that
// never received an expression default to COUNT(*).
func mergeTableMetrics(t *models.Table) models.FlexMetrics {
	if len(t.MetricItems) == 0 && len(t.Metrics) == 0 {
		return nil
	}
	out := make(models.FlexMetrics, len(t.MetricItems)+len(t.Metrics))
	for name, spec := range t.Metrics {
		spec.Name = name
		if spec.Expression == "" {
			spec.Expression = defaultMetricExpression
		}
		out[name] = spec
	}
	for _, item := range t.MetricItems {
		if item.Expression == "" {
			item.Expression = defaultMetricExpression
		}
		out[item.Name] = item
	}
	return out
}

func egressColumn(tableName string, c *models.Column, wire *models.WireSchema) models.WireColumn {
	fk := c.IsForeignKey || c.ForeignKeyRef != nil
	wc := models.WireColumn{
		ID:          c.ID,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,

		Type:       c.DataType,
		Primary:    c.IsPrimaryKey,
		Unique:     c.IsUnique,
		Default:    c.DefaultValue,
		ForeignKey: fk,

		DataType:     c.DataType,
		IsPrimaryKey: c.IsPrimaryKey,
		IsForeignKey: fk,

		BusinessContext:     c.BusinessContext,
		ExcludeColumn:       c.ExcludeColumn,
		Synonyms:            models.GroupList(c.SynonymGroups),
		BusinessDescription: c.BusinessDescription,
		BusinessTerms:       append([]string(nil), c.BusinessTerms...),
		Priority:            c.Priority,
		IsPreferred:         c.IsPreferred,
		UseCases:            append([]string(nil), c.UseCases...),
		RelevanceKeywords:   append([]string(nil), c.RelevanceKeywords...),
		CreatedAt:           c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.ForeignKeyRef != nil {
		ref := *c.ForeignKeyRef
		wc.ForeignKeyRef = &ref
	}

	metadata := copyAnyMap(c.Metadata)
	if c.Alias != "" {
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["alias"] = c.Alias
		if wire.Aliases.ColumnAliases == nil {
			wire.Aliases.ColumnAliases = make(map[string]map[string]string)
		}
		if wire.Aliases.ColumnAliases[tableName] == nil {
			wire.Aliases.ColumnAliases[tableName] = make(map[string]string)
		}
		wire.Aliases.ColumnAliases[tableName][c.Name] = c.Alias
	}
	wc.Metadata = metadata
	return wc
}

func egressRelationship(rel *models.Relationship) models.WireRelationship {
	wr := models.WireRelationship{
		ID:               rel.ID,
		Name:             rel.Name,
		Description:      rel.Description,
		From:             rel.SourceTableID + "." + strings.Join(rel.SourceColumns, ","),
		To:               rel.TargetTableID + "." + strings.Join(rel.TargetColumns, ","),
		SourceTableID:    rel.SourceTableID,
		SourceColumns:    append([]string(nil), rel.SourceColumns...),
		TargetTableID:    rel.TargetTableID,
		TargetColumns:    append([]string(nil), rel.TargetColumns...),
		Type:             rel.Type,
		CardinalityRatio: rel.CardinalityRatio,
		JoinSQL:          rel.JoinSQL,
		ConfidenceScore:  rel.ConfidenceScore,
		CreatedAt:        rel.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rel.UserCreated || len(rel.Synonyms) > 0 {
		wr.Metadata = &models.WireRelationshipMeta{
			UserCreated:          rel.UserCreated,
			RelationshipSynonyms: models.StringOrGroups(rel.Synonyms),
		}
	}
	return wr
}

func parseEndpoint(compact string) (table string, columns []string) {
	table, rest, found := strings.Cut(compact, ".")
	if !found || rest == "" {
		return table, nil
	}
	for _, col := range strings.Split(rest, ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	return table, columns
}

func deriveMetricItems(metrics map[string]models.Metric) []models.Metric {
	if len(metrics) == 0 {
		return nil
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]models.Metric, 0, len(names))
	for _, name := range names {
		items = append(items, metrics[name])
	}
	return items
}

// parseWireTime accepts the timestamp formats seen in old payloads and
// defaults to now when the value is missing or unreadable. Timestamps are
// informational only, so accept-and-heal is safe here.
func parseWireTime(value string) time.Time {
	if value == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStringListMap(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func copyColumnAliases(in map[string]map[string]string) map[string]map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for table, cols := range in {
		out[table] = copyStringMap(cols)
	}
	return out
}

func metadataString(metadata map[string]any, key string) (string, bool) {
	if metadata == nil {
		return "", false
	}
	s, ok := metadata[key].(string)
	return s, ok && s != ""
}

func metadataSynonymGroups(metadata map[string]any) []models.SynonymGroup {
	raw, ok := metadata["synonym_groups"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var groups models.GroupList
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil
	}
	return []models.SynonymGroup(groups)
}

func metadataMetricItems(metadata map[string]any) []models.Metric {
	raw, ok := metadata["metric_items"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var items []models.Metric
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}

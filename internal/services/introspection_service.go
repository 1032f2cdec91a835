package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"semantiq/internal/database"
	"semantiq/internal/models"
	"semantiq/internal/repositories"
	"semantiq/internal/utils"
)

const (
	maxJunctionTableColumns = 6
	minJunctionTableFKs     = 2
)

// IntrospectionService builds a draft wire schema from a live PostgreSQL
// database. Discovered FK constraints become system-derived relationships
// with full confidence; those stay read-only in the editor apart from
// synonym annotation.
type IntrospectionService struct{}

func NewIntrospectionService() *IntrospectionService {
	return &IntrospectionService{}
}

type introspectedTable struct {
	name        string
	columns     []repositories.IntrospectedColumn
	primaryKeys []string
	foreignKeys []repositories.IntrospectedForeignKey
}

// IntrospectSchema connects with the supplied connection config and reads
// the structural metadata of one database schema into a wire payload ready
// for curation.
func (s *IntrospectionService) IntrospectSchema(ctx context.Context, connConfig map[string]any, schemaName, displayName string) (*models.WireSchema, error) {
	pool, err := database.ConnectWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer pool.Close()

	if schemaName == "" {
		schemaName = "public"
	}
	repo := repositories.NewIntrospectionRepository(pool)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	names, err := repo.GetTables(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	estimates, err := repo.GetRowEstimates(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to read row estimates: %w", err)
	}

	tables := make([]introspectedTable, 0, len(names))
	for _, name := range names {
		t := introspectedTable{name: name}
		if t.columns, err = repo.GetColumns(ctx, schemaName, name); err != nil {
			return nil, fmt.Errorf("failed to get columns for %s: %w", name, err)
		}
		for _, col := range t.columns {
			if col.IsPrimaryKey {
				t.primaryKeys = append(t.primaryKeys, col.Name)
			}
		}
		if t.foreignKeys, err = repo.GetForeignKeys(ctx, schemaName, name); err != nil {
			return nil, fmt.Errorf("failed to get foreign keys for %s: %w", name, err)
		}
		tables = append(tables, t)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	wire := &models.WireSchema{
		ID:               uuid.NewString(),
		DisplayName:      displayName,
		Dialect:          "postgres",
		SchemaPrefix:     schemaName,
		ConnectionConfig: connConfig,
		Tables:           make(map[string]models.WireTable, len(tables)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if wire.DisplayName == "" {
		wire.DisplayName = schemaName
	}

	for _, t := range tables {
		wire.Tables[t.name] = buildWireTable(t, schemaName, estimates[t.name], now)
	}
	wire.Relationships = deriveRelationships(tables, now)
	return wire, nil
}

func buildWireTable(t introspectedTable, schemaName string, rowEstimate int64, now string) models.WireTable {
	wt := models.WireTable{
		ID:               t.name,
		Name:             t.name,
		SchemaName:       schemaName,
		Columns:          make(map[string]models.WireColumn, len(t.columns)),
		RowCountEstimate: rowEstimate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	fkByColumn := make(map[string]repositories.IntrospectedForeignKey, len(t.foreignKeys))
	for _, fk := range t.foreignKeys {
		fkByColumn[fk.FromColumn] = fk
	}
	for _, col := range t.columns {
		wc := models.WireColumn{
			ID:           models.ColumnID(t.name, col.Name),
			Name:         col.Name,
			Type:         col.DataType,
			DataType:     col.DataType,
			Primary:      col.IsPrimaryKey,
			IsPrimaryKey: col.IsPrimaryKey,
			Unique:       col.IsUnique,
			Default:      col.DefaultValue,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if fk, ok := fkByColumn[col.Name]; ok {
			wc.ForeignKey = true
			wc.IsForeignKey = true
			wc.ForeignKeyRef = &models.ForeignKeyRef{Table: fk.ToTable, Column: fk.ToColumn}
		}
		wt.Columns[col.Name] = wc
	}
	return wt
}

// deriveRelationships turns FK constraints into relationships. A junction
// table (all FKs inside a small composite PK) collapses into many_to_many
// edges between the referenced tables; otherwise a unique FK column means
// one_to_one and anything else many_to_one from the referencing side.
func deriveRelationships(tables []introspectedTable, now string) []models.WireRelationship {
	junction := detectJunctionTables(tables)
	uniqueCols := make(map[string]bool)
	for _, t := range tables {
		for _, col := range t.columns {
			if col.IsUnique || (col.IsPrimaryKey && len(t.primaryKeys) == 1) {
				uniqueCols[models.ColumnID(t.name, col.Name)] = true
			}
		}
	}

	var rels []models.WireRelationship
	for _, t := range tables {
		if junction[t.name] {
			for i := 0; i < len(t.foreignKeys); i++ {
				for j := i + 1; j < len(t.foreignKeys); j++ {
					left, right := t.foreignKeys[i], t.foreignKeys[j]
					rels = append(rels, systemRelationship(
						left.ToTable, []string{left.ToColumn},
						right.ToTable, []string{right.ToColumn},
						models.RelationshipManyToMany, now))
				}
			}
			continue
		}
		for _, fk := range t.foreignKeys {
			relType := models.RelationshipManyToOne
			if uniqueCols[models.ColumnID(t.name, fk.FromColumn)] {
				relType = models.RelationshipOneToOne
			}
			rels = append(rels, systemRelationship(
				t.name, []string{fk.FromColumn},
				fk.ToTable, []string{fk.ToColumn},
				relType, now))
		}
	}
	return rels
}

func systemRelationship(srcTable string, srcCols []string, dstTable string, dstCols []string, relType, now string) models.WireRelationship {
	rel := models.WireRelationship{
		ID:               uuid.NewString(),
		Name:             srcTable + "_to_" + dstTable,
		SourceTableID:    srcTable,
		SourceColumns:    srcCols,
		TargetTableID:    dstTable,
		TargetColumns:    dstCols,
		Type:             relType,
		CardinalityRatio: models.CardinalityRatio(relType),
		ConfidenceScore:  1.0,
		CreatedAt:        now,
	}
	return rel
}

func detectJunctionTables(tables []introspectedTable) map[string]bool {
	junction := make(map[string]bool)
	for _, t := range tables {
		if len(t.foreignKeys) < minJunctionTableFKs ||
			len(t.primaryKeys) < minJunctionTableFKs ||
			len(t.columns) > maxJunctionTableColumns {
			continue
		}
		allFKsInPK := true
		for _, fk := range t.foreignKeys {
			if !utils.Contains(t.primaryKeys, fk.FromColumn) {
				allFKsInPK = false
				break
			}
		}
		if allFKsInPK {
			junction[t.name] = true
		}
	}
	return junction
}

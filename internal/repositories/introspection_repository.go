package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IntrospectedColumn is a column as discovered from the live database.
type IntrospectedColumn struct {
	Name         string
	DataType     string
	Nullable     bool
	DefaultValue *string
	IsPrimaryKey bool
	IsUnique     bool
}

// IntrospectedForeignKey is a discovered FK constraint.
type IntrospectedForeignKey struct {
	ConstraintName string
	FromColumn     string
	ToTable        string
	ToColumn       string
}

// IntrospectionRepository reads structural metadata from a live PostgreSQL
// database through information_schema and pg_catalog. It never writes.
type IntrospectionRepository struct {
	pool *pgxpool.Pool
}

func NewIntrospectionRepository(pool *pgxpool.Pool) *IntrospectionRepository {
	return &IntrospectionRepository{pool: pool}
}

// GetTables returns all base table names in the specified schema.
func (r *IntrospectionRepository) GetTables(ctx context.Context, schema string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := r.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}

// GetColumns returns the columns of a table with primary-key and unique
// flags already resolved.
func (r *IntrospectionRepository) GetColumns(ctx context.Context, schema, table string) ([]IntrospectedColumn, error) {
	query := `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []IntrospectedColumn
	for rows.Next() {
		var col IntrospectedColumn
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.DefaultValue); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pks, err := r.getConstraintColumns(ctx, schema, table, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	uniques, err := r.getConstraintColumns(ctx, schema, table, "UNIQUE")
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i].IsPrimaryKey = pks[columns[i].Name]
		columns[i].IsUnique = uniques[columns[i].Name]
	}

	return columns, nil
}

func (r *IntrospectionRepository) getConstraintColumns(ctx context.Context, schema, table, constraintType string) (map[string]bool, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = $3
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, schema, table, constraintType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cols, nil
}

// GetForeignKeys returns all foreign keys declared on a table.
func (r *IntrospectionRepository) GetForeignKeys(ctx context.Context, schema, table string) ([]IntrospectedForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
	`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []IntrospectedForeignKey
	for rows.Next() {
		var fk IntrospectedForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fks, nil
}

// GetRowEstimates reads planner row estimates for every table in the schema.
// Estimates are cheap and good enough for annotation hints; exact counts are
// not worth a sequential scan here.
func (r *IntrospectionRepository) GetRowEstimates(ctx context.Context, schema string) (map[string]int64, error) {
	query := `
		SELECT c.relname, GREATEST(c.reltuples::bigint, 0)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'
	`

	rows, err := r.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estimates := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		estimates[name] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return estimates, nil
}

package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querysage/querysage/pkg/models"
	"github.com/querysage/querysage/pkg/sqlutil"
)

// PostgresTransport implements Transport against a Postgres-compatible
// warehouse using pgx/v5.
type PostgresTransport struct {
	pool *pgxpool.Pool
}

// NewPostgresTransport creates a new PostgresTransport.
func NewPostgresTransport(pool *pgxpool.Pool) *PostgresTransport {
	return &PostgresTransport{pool: pool}
}

// ConnectPostgres opens a pgx pool against the warehouse and verifies
// connectivity.
func ConnectPostgres(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse warehouse URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	return pool, nil
}

func (t *PostgresTransport) Ping(ctx context.Context) error {
	return t.pool.Ping(ctx)
}

func (t *PostgresTransport) Execute(ctx context.Context, sql string, rowCap int) (*models.ResultSet, error) {
	// Ask the engine for one row past the cap so truncation is detectable
	// without fetching the full result.
	query := sqlutil.WrapWithLimit(sql, rowCap+1)

	rows, err := t.pool.Query(ctx, query)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	result := &models.ResultSet{Columns: columns, Rows: []map[string]string{}}
	for rows.Next() {
		if len(result.Rows) >= rowCap {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, classifyPgError(err)
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = renderValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}

	return result, nil
}

func (t *PostgresTransport) Describe(ctx context.Context, table string) (*models.TableSchema, error) {
	schemaName := "public"
	tableName := table
	if idx := strings.IndexByte(table, '.'); idx >= 0 {
		schemaName = table[:idx]
		tableName = table[idx+1:]
	}

	rows, err := t.pool.Query(ctx,
		`SELECT c.column_name, c.data_type, COALESCE(pgd.description, '')
		 FROM information_schema.columns c
		 LEFT JOIN pg_catalog.pg_statio_all_tables st
		   ON st.schemaname = c.table_schema AND st.relname = c.table_name
		 LEFT JOIN pg_catalog.pg_description pgd
		   ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
		 WHERE c.table_schema = $1 AND c.table_name = $2
		 ORDER BY c.ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	schema := &models.TableSchema{Table: table}
	for rows.Next() {
		var col models.ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type, &col.Comment); err != nil {
			return nil, classifyPgError(err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	return schema, nil
}

// classifyPgError maps pgx errors to warehouse sentinel errors.
func classifyPgError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014": // query_canceled (statement_timeout)
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		case pgErr.Code == "42P01": // undefined_table
			return fmt.Errorf("%w: %v", ErrTableNotFound, err)
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %v", ErrPermission, err)
		case strings.HasPrefix(pgErr.Code, "42"): // syntax or access rule violation
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// renderValue formats a scanned value as text. NULLs render as "NULL",
// matching the document renderer's expectations.
func renderValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	}
	return fmt.Sprint(v)
}

// Compile-time check that PostgresTransport implements Transport.
var _ Transport = (*PostgresTransport)(nil)

// Package postgres reads site data directly from a SEAD Postgres database.
// Every query touches a single table; relations are joined in Go so the
// statements stay portable across schema versions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/sead?sslmode=disable"
	defaultSchema = "public"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex

	tableName  = regexp.MustCompile(`^tbl_[a-z0-9_]+$`)
	columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// ErrNotFound is wrapped when a site or dataset does not exist.
var ErrNotFound = errors.New("not found")

// Config locates the database.
type Config struct {
	DSN    string
	Schema string
	// MaxOpenConns caps the pool; zero keeps the database/sql default.
	MaxOpenConns int
}

// Source implements datasetapi.DataSource over database/sql with the pgx
// driver.
type Source struct {
	db     *sql.DB
	schema string
}

var _ datasetapi.DataSource = (*Source)(nil)

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, cfg.Schema), nil
}

// New wraps an open database handle.
func New(db *sql.DB, schema string) *Source {
	if schema == "" {
		schema = defaultSchema
	}
	return &Source{db: db, schema: schema}
}

// Close releases the pool.
func (s *Source) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// column is a selected column with an optional cast applied in SQL so that
// numeric and text values reach Go with a stable type.
type column struct {
	name string
	cast string
}

func col(name string) column           { return column{name: name} }
func castCol(name, cast string) column { return column{name: name, cast: cast} }

func (c column) sql() string {
	quoted := pgx.Identifier{c.name}.Sanitize()
	if c.cast == "" {
		return quoted
	}
	return quoted + "::" + c.cast + " AS " + quoted
}

func (s *Source) table(name string) (string, error) {
	if !tableName.MatchString(name) {
		return "", fmt.Errorf("postgres: table %q not allowed", name)
	}
	return pgx.Identifier{s.schema, name}.Sanitize(), nil
}

// selectAll reads every row of table.
func (s *Source) selectAll(ctx context.Context, table string, cols ...column) ([]domain.Row, error) {
	from, err := s.table(table)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, "SELECT "+selectList(cols)+" FROM "+from)
}

// selectIn reads the rows of table whose key is one of ids.
func (s *Source) selectIn(ctx context.Context, table, key string, ids []int, cols ...column) ([]domain.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	from, err := s.table(table)
	if err != nil {
		return nil, err
	}
	if !columnName.MatchString(key) {
		return nil, fmt.Errorf("postgres: column %q not allowed", key)
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	q := "SELECT " + selectList(cols) + " FROM " + from + " WHERE " + pgx.Identifier{key}.Sanitize() + " = ANY($1)"
	return s.query(ctx, q, keys)
}

func selectList(cols []column) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.sql()
	}
	return strings.Join(parts, ", ")
}

func (s *Source) query(ctx context.Context, q string, args ...any) ([]domain.Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	defer func() { _ = rows.Close() }()
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(names))
		targets := make([]any, len(names))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	return out, nil
}

// intsOf collects the integer values of key across rows, de-duplicated.
func intsOf(rows []domain.Row, key string) []int {
	var ids []int
	for _, row := range rows {
		if id, ok := row.Int(key); ok {
			ids = append(ids, id)
		}
	}
	return datasetapi.UniqueIDs(ids)
}

// LookupTable selects every row of spec.Table.
func (s *Source) LookupTable(ctx context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	return s.selectAll(ctx, spec.Table)
}

// RowsByIDSet selects the rows of table whose column is in ids.
func (s *Source) RowsByIDSet(ctx context.Context, table, column string, ids []int) ([]domain.Row, error) {
	return s.selectIn(ctx, table, column, ids)
}

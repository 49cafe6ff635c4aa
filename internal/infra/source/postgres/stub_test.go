package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// stubConn serves single-table selects from in-memory rows. It understands
// exactly the statement shapes the source emits:
//
//	SELECT <cols|*> FROM "schema"."table" [WHERE "key" = ANY($1)]
type stubConn struct {
	mu         sync.Mutex
	tables     map[string][]map[string]any
	queries    []string
	failTables map[string]bool
	failPing   bool
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{tables: map[string][]map[string]any{}, failTables: map[string]bool{}}
	name := fmt.Sprintf("stubsead%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("read only") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// CheckNamedValue lets []int64 id sets through untouched, as pgx does.
func (c *stubConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	table, cols, key, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	if c.failTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	var want map[int64]bool
	if key != "" {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected one argument for %s", query)
		}
		ids, ok := args[0].Value.([]int64)
		if !ok {
			return nil, fmt.Errorf("expected []int64 argument, got %T", args[0].Value)
		}
		want = map[int64]bool{}
		for _, id := range ids {
			want[id] = true
		}
	}
	stored := c.tables[table]
	if len(cols) == 1 && cols[0] == "*" {
		cols = allColumns(stored)
	}
	var values [][]driver.Value
	for _, row := range stored {
		if want != nil {
			id, _ := row[key].(int64)
			if !want[id] {
				continue
			}
		}
		vals := make([]driver.Value, len(cols))
		for i, name := range cols {
			vals[i] = row[name]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

func (c *stubConn) add(table string, rows ...map[string]any) {
	c.tables[table] = append(c.tables[table], rows...)
}

func (c *stubConn) queried(fragment string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.queries {
		if strings.Contains(q, fragment) {
			return true
		}
	}
	return false
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseQuery(query string) (table string, cols []string, key string, err error) {
	if !strings.HasPrefix(query, "SELECT ") {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(query, " FROM ")
	if fromIdx == -1 {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	for _, part := range strings.Split(query[len("SELECT "):fromIdx], ", ") {
		if as := strings.LastIndex(part, " AS "); as != -1 {
			part = part[as+len(" AS "):]
		}
		cols = append(cols, strings.Trim(part, `"`))
	}
	rest := query[fromIdx+len(" FROM "):]
	if whereIdx := strings.Index(rest, " WHERE "); whereIdx != -1 {
		where := rest[whereIdx+len(" WHERE "):]
		rest = rest[:whereIdx]
		key = strings.Trim(strings.TrimSpace(strings.SplitN(where, " = ", 2)[0]), `"`)
	}
	segments := strings.Split(rest, ".")
	table = strings.Trim(segments[len(segments)-1], `"`)
	return table, cols, key, nil
}

func allColumns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

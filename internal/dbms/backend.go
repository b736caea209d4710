// ABOUTME: Backend strategy contract implemented once per native engine
// ABOUTME: Database and Query only ever talk to these interfaces

package dbms

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
)

// Backend is one native engine. It is chosen when a Database is built and
// never changes per call.
type Backend interface {
	// Name is the configuration name of the backend.
	Name() string

	// Location maps a path prefix and store name to what Connect expects.
	Location(path, name string) string

	// Connect opens a native connection.
	Connect(location string) (Conn, error)

	// NativeError extracts the engine code and message from err.
	// It returns a zero code when err did not come from the engine.
	NativeError(err error) (code int, message string)
}

// Conn is an exclusively owned native connection.
type Conn interface {
	// ExecImmediate runs sql without preparing a reusable statement.
	ExecImmediate(sql string) error

	Prepare(sql string) (Stmt, error)

	// LastInsertID returns the most recent autoincrement row id of the connection.
	LastInsertID() (int64, error)

	IsReadWrite() bool

	Backup() error

	Close() error
}

// Stmt is a prepared statement together with its pending bindings.
// Positions passed to Bind are zero-based; implementations translate them to
// the engine's one-based ordinals.
type Stmt interface {
	Bind(pos int, v driver.Value)

	ClearBindings()

	// Run executes the statement with the pending bindings.
	Run() (Cursor, error)

	Close() error
}

// Cursor walks the rows produced by one Run.
type Cursor interface {
	// Step moves to the next row. It returns false once the rows are exhausted.
	Step() (bool, error)

	// Row returns the current row. The slice stays valid until the next Step.
	Row() []driver.Value

	// Columns returns the result column names.
	Columns() []string

	Close() error
}

var backends = map[string]Backend{}

func register(b Backend) {
	backends[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ordinalArgs turns ordinal->value bindings into the driver argument list.
// Gaps up to n are bound to NULL. A negative n means the engine did not say
// how many parameters the statement has.
func ordinalArgs(binds map[int]driver.Value, n int) []driver.NamedValue {
	n = max(n, 0)
	for ord := range binds {
		if ord > n {
			n = ord
		}
	}
	args := make([]driver.NamedValue, n)
	for i := range args {
		args[i] = driver.NamedValue{Ordinal: i + 1, Value: binds[i+1]}
	}
	return args
}

// Helpers shared by both backends; each engine's driver.Conn implements the
// context-aware driver interfaces.

func prepare(conn driver.Conn, query string) (driver.Stmt, error) {
	if p, ok := conn.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(context.Background(), query)
	}
	return conn.Prepare(query)
}

func query(stmt driver.Stmt, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, fmt.Errorf("statement %T cannot be queried", stmt)
	}
	return q.QueryContext(context.Background(), args)
}

func queryInt64(conn driver.Conn, sql string) (int64, error) {
	q, ok := conn.(driver.QueryerContext)
	if !ok {
		return 0, fmt.Errorf("driver %T cannot query directly", conn)
	}
	rows, err := q.QueryContext(context.Background(), sql, nil)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	dest := make([]driver.Value, len(rows.Columns()))
	if len(dest) == 0 {
		return 0, fmt.Errorf("%q returned no columns", sql)
	}
	if err := rows.Next(dest); err != nil {
		return 0, err
	}
	return toInt64(dest[0]), nil
}

func lastInsertID(conn driver.Conn) (int64, error) {
	return queryInt64(conn, "SELECT last_insert_rowid()")
}

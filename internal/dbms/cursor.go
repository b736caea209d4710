// ABOUTME: Step-cursor backend on modernc.org/sqlite at the driver level
// ABOUTME: Every Next is one native step; the statement is never re-run

package dbms

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"

	"modernc.org/sqlite"
)

const (
	// InMemory is the store name understood by the cursor backend as a
	// temporary in-memory database.
	InMemory = ":memory:"

	cursorExtension = ".sqlite"
)

// CursorBackend is the file-backed engine with a server-side step cursor.
type CursorBackend struct{}

func init() {
	register(CursorBackend{})
}

func (CursorBackend) Name() string { return "cursor" }

// Location appends the ".sqlite" extension; an empty name selects InMemory.
func (CursorBackend) Location(path, name string) string {
	if name == "" || name == InMemory {
		return InMemory
	}
	return path + name + cursorExtension
}

func (CursorBackend) Connect(location string) (Conn, error) {
	c, err := (&sqlite.Driver{}).Open(location)
	if err != nil {
		return nil, err
	}
	return &cursorConn{conn: c, location: location}, nil
}

func (CursorBackend) NativeError(err error) (int, string) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), se.Error()
	}
	return 0, ""
}

type cursorConn struct {
	conn     driver.Conn
	location string
}

func (c *cursorConn) ExecImmediate(query string) error {
	ex, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return fmt.Errorf("driver %T cannot execute directly", c.conn)
	}
	_, err := ex.ExecContext(context.Background(), query, nil)
	return err
}

func (c *cursorConn) Prepare(query string) (Stmt, error) {
	s, err := prepare(c.conn, query)
	if err != nil {
		return nil, err
	}
	return &cursorStmt{stmt: s, binds: make(map[int]driver.Value)}, nil
}

func (c *cursorConn) LastInsertID() (int64, error) {
	return lastInsertID(c.conn)
}

// IsReadWrite never touches the store: the file must be writable by this
// process and the connection must not be in query_only mode. Locks held by
// other connections do not change the answer.
func (c *cursorConn) IsReadWrite() bool {
	if c.location == InMemory {
		return true
	}
	if !writable(c.location) {
		return false
	}
	queryOnly, err := queryInt64(c.conn, "PRAGMA query_only")
	return err == nil && queryOnly == 0
}

// Backup is a no-op: a file-backed store is its own durable snapshot.
func (c *cursorConn) Backup() error {
	return nil
}

func (c *cursorConn) Close() error {
	return c.conn.Close()
}

type cursorStmt struct {
	stmt  driver.Stmt
	binds map[int]driver.Value
}

// Bind overwrites any value pending at the same position.
func (s *cursorStmt) Bind(pos int, v driver.Value) {
	s.binds[pos+1] = v
}

func (s *cursorStmt) ClearBindings() {
	clear(s.binds)
}

func (s *cursorStmt) Run() (Cursor, error) {
	rows, err := query(s.stmt, ordinalArgs(s.binds, s.stmt.NumInput()))
	if err != nil {
		return nil, err
	}
	return &stepCursor{rows: rows, row: make([]driver.Value, len(rows.Columns()))}, nil
}

func (s *cursorStmt) Close() error {
	return s.stmt.Close()
}

// stepCursor fetches one row from the engine per Step.
type stepCursor struct {
	rows driver.Rows
	row  []driver.Value
}

func (c *stepCursor) Step() (bool, error) {
	err := c.rows.Next(c.row)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *stepCursor) Row() []driver.Value {
	return c.row
}

func (c *stepCursor) Columns() []string {
	return c.rows.Columns()
}

func (c *stepCursor) Close() error {
	return c.rows.Close()
}

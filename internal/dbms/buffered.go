// ABOUTME: Buffered-result backend on mattn/go-sqlite3 at the driver level
// ABOUTME: Exec materialises the full result; rows are addressed by index

//go:build cgo

package dbms

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"

	"github.com/mattn/go-sqlite3"
)

const backupExtension = ".bak"

// BufferedBackend runs each statement to completion and keeps its whole
// result, tracking the cursor with an external row index.
type BufferedBackend struct{}

func init() {
	register(BufferedBackend{})
}

func (BufferedBackend) Name() string { return "buffered" }

// Location is path+name with no extension. An empty name opens a private
// temporary store that disappears with the connection.
func (BufferedBackend) Location(path, name string) string {
	if name == "" {
		return ""
	}
	return path + name
}

func (BufferedBackend) Connect(location string) (Conn, error) {
	c, err := (&sqlite3.SQLiteDriver{}).Open(location)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*sqlite3.SQLiteConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("unexpected connection type %T", c)
	}
	return &bufferedConn{conn: sc, location: location}, nil
}

func (BufferedBackend) NativeError(err error) (int, string) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return int(se.Code), se.Error()
	}
	return 0, ""
}

type bufferedConn struct {
	conn     *sqlite3.SQLiteConn
	location string
}

func (c *bufferedConn) ExecImmediate(query string) error {
	_, err := c.conn.Exec(query, nil)
	return err
}

func (c *bufferedConn) Prepare(query string) (Stmt, error) {
	s, err := prepare(c.conn, query)
	if err != nil {
		return nil, err
	}
	return &bufferedStmt{stmt: s}, nil
}

func (c *bufferedConn) LastInsertID() (int64, error) {
	return lastInsertID(c.conn)
}

// IsReadWrite is not probed for this engine and always reports true.
func (c *bufferedConn) IsReadWrite() bool {
	return true
}

// Backup copies the main schema into location+".bak" with the online backup API.
func (c *bufferedConn) Backup() error {
	if c.location == "" {
		return errors.New("temporary store cannot be backed up")
	}
	dc, err := (&sqlite3.SQLiteDriver{}).Open(c.location + backupExtension)
	if err != nil {
		return fmt.Errorf("opening backup target: %w", err)
	}
	dst := dc.(*sqlite3.SQLiteConn)
	defer dst.Close()

	bk, err := dst.Backup("main", c.conn, "main")
	if err != nil {
		return err
	}
	for {
		done, err := bk.Step(-1)
		if err != nil {
			bk.Finish()
			return err
		}
		if done {
			break
		}
	}
	return bk.Finish()
}

func (c *bufferedConn) Close() error {
	return c.conn.Close()
}

type binding struct {
	pos   int
	value driver.Value
}

// bufferedStmt accumulates bindings per value type. At Run they are applied
// in the order integers, reals, text, nulls, so for a position bound twice
// the later bucket wins and, within a bucket, the later call wins.
type bufferedStmt struct {
	stmt  driver.Stmt
	ints  []binding
	reals []binding
	texts []binding
	nulls []binding
}

func (s *bufferedStmt) Bind(pos int, v driver.Value) {
	b := binding{pos: pos, value: v}
	switch v.(type) {
	case int64:
		s.ints = append(s.ints, b)
	case float64:
		s.reals = append(s.reals, b)
	case string:
		s.texts = append(s.texts, b)
	default:
		s.nulls = append(s.nulls, binding{pos: pos})
	}
}

func (s *bufferedStmt) ClearBindings() {
	s.ints = s.ints[:0]
	s.reals = s.reals[:0]
	s.texts = s.texts[:0]
	s.nulls = s.nulls[:0]
}

func (s *bufferedStmt) args() []driver.NamedValue {
	binds := make(map[int]driver.Value)
	for _, bucket := range [][]binding{s.ints, s.reals, s.texts, s.nulls} {
		for _, b := range bucket {
			// one-based on the engine side
			binds[b.pos+1] = b.value
		}
	}
	return ordinalArgs(binds, s.stmt.NumInput())
}

// Run executes the statement and buffers its entire result.
func (s *bufferedStmt) Run() (Cursor, error) {
	rows, err := query(s.stmt, s.args())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	width := len(columns)
	var result [][]driver.Value
	for {
		row := make([]driver.Value, width)
		err := rows.Next(row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = append([]byte(nil), b...)
			}
		}
		result = append(result, row)
	}
	return &resultCursor{columns: columns, rows: result, index: -1}, nil
}

func (s *bufferedStmt) Close() error {
	return s.stmt.Close()
}

// resultCursor walks a materialised result by row index.
type resultCursor struct {
	columns []string
	rows    [][]driver.Value
	index   int
}

func (c *resultCursor) Step() (bool, error) {
	if c.index < len(c.rows) {
		c.index++
	}
	return c.index < len(c.rows), nil
}

func (c *resultCursor) Row() []driver.Value {
	if c.index < 0 || c.index >= len(c.rows) {
		return nil
	}
	return c.rows[c.index]
}

func (c *resultCursor) Columns() []string {
	return c.columns
}

// Len is the number of buffered rows.
func (c *resultCursor) Len() int {
	return len(c.rows)
}

func (c *resultCursor) Close() error {
	c.rows = nil
	c.index = -1
	return nil
}

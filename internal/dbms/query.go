// ABOUTME: Query is one prepared or ad-hoc statement with typed positional bindings
// ABOUTME: Exposes a forward-only cursor and typed column accessors

package dbms

import (
	"database/sql/driver"
	"errors"
	"log/slog"
	"sync"
)

// Query borrows a Database and owns one prepared statement.
//
// Exec positions the cursor on the first row, if any. The first Next after
// Exec reports that row and later calls advance, so both
//
//	q.Exec(); for q.Next() { ... }
//	for q.Next() { ... }
//
// visit every row exactly once. Next on an unexecuted statement executes it.
type Query struct {
	db     *Database
	logger *slog.Logger

	mu       sync.Mutex // guards everything below
	sql      string
	stmt     Stmt
	cursor   Cursor
	row      []driver.Value
	pending  bool // row was produced by Exec and not yet reported by Next
	rowIndex int
	rowCount int // -1 when the engine does not know it up front
	lastErr  Error
}

// NewQuery returns a Query bound to db.
func NewQuery(db *Database) *Query {
	return &Query{
		db:       db,
		logger:   db.logger,
		rowCount: -1,
	}
}

// Prepare compiles sql. Any statement already held is finalized first.
func (q *Query) Prepare(sql string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.finalizeLocked()
	q.sql = sql

	var stmt Stmt
	err := q.db.withConn(func(c Conn) error {
		var err error
		stmt, err = c.Prepare(sql)
		return err
	})
	if err != nil {
		q.logger.Debug("prepare error", "sql", sql, "error", err)
		return q.fail(StatementError, "prepare", err)
	}
	q.stmt = stmt
	return record(&q.lastErr, nil)
}

// Exec runs the prepared statement with the pending bindings. Once a result
// exists, Exec is a no-op until Reset.
func (q *Query) Exec() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stmt == nil {
		return q.fail(StatementError, "exec", ErrNoStatement)
	}
	if q.cursor != nil {
		return record(&q.lastErr, nil)
	}
	return q.execLocked()
}

func (q *Query) execLocked() error {
	var (
		cur Cursor
		has bool
	)
	err := q.db.withConn(func(Conn) error {
		var err error
		if cur, err = q.stmt.Run(); err != nil {
			return err
		}
		has, err = cur.Step()
		return err
	})
	if err != nil {
		if cur != nil {
			cur.Close()
		}
		return q.fail(StatementError, "exec", err)
	}

	q.cursor = cur
	q.rowIndex = 0
	q.rowCount = -1
	if n, ok := cur.(interface{ Len() int }); ok {
		q.rowCount = n.Len()
	}
	q.row = nil
	q.pending = has
	if has {
		q.row = cur.Row()
	}
	return record(&q.lastErr, nil)
}

// ExecDirect runs sql on the connection without touching the prepared
// statement or its bindings.
func (q *Query) ExecDirect(sql string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sql = sql
	err := q.db.withConn(func(c Conn) error {
		return c.ExecImmediate(sql)
	})
	if err != nil {
		return q.fail(StatementError, "exec", err)
	}
	return record(&q.lastErr, nil)
}

// Next advances to the next row and reports whether one is available.
func (q *Query) Next() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stmt == nil {
		q.fail(StatementError, "next", ErrNoStatement)
		return false
	}
	if q.cursor == nil {
		if err := q.execLocked(); err != nil {
			return false
		}
	}
	if q.pending {
		q.pending = false
		return true
	}
	if q.row == nil {
		return false
	}

	var has bool
	err := q.db.withConn(func(Conn) error {
		var err error
		has, err = q.cursor.Step()
		return err
	})
	if err != nil {
		q.row = nil
		q.fail(StatementError, "next", err)
		return false
	}
	if !has {
		q.row = nil
		return false
	}
	q.row = q.cursor.Row()
	q.rowIndex++
	return true
}

// Reset drops pending bindings and any result, keeping the prepared statement.
func (q *Query) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resetLocked()
}

func (q *Query) resetLocked() error {
	if q.stmt != nil {
		q.stmt.ClearBindings()
	}
	q.row = nil
	q.pending = false
	q.rowIndex = 0
	q.rowCount = -1
	if q.cursor == nil {
		return record(&q.lastErr, nil)
	}
	err := q.cursor.Close()
	q.cursor = nil
	if err != nil {
		return q.fail(ResourceReleaseFailure, "reset", err)
	}
	return record(&q.lastErr, nil)
}

// Finalize resets the Query and releases its statement. It is safe to call
// any number of times.
func (q *Query) Finalize() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finalizeLocked()
}

// Close is Finalize, for use with defer.
func (q *Query) Close() error {
	return q.Finalize()
}

func (q *Query) finalizeLocked() error {
	resetErr := q.resetLocked()
	if q.stmt == nil {
		return resetErr
	}
	err := q.stmt.Close()
	q.stmt = nil
	if err != nil {
		return q.fail(ResourceReleaseFailure, "finalize", err)
	}
	return resetErr
}

// Bind binds v at the zero-based position pos. Supported values are nil,
// int, int32, uint32, int64, float32, float64, bool and string.
func (q *Query) Bind(pos int, v any) error {
	dv, err := toDriverValue(v)
	if err != nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.fail(StatementError, "bind", err)
	}
	return q.bind(pos, dv)
}

func (q *Query) BindInt(pos int, v int32) error { return q.bind(pos, int64(v)) }
func (q *Query) BindInt64(pos int, v int64) error { return q.bind(pos, v) }
func (q *Query) BindDouble(pos int, v float64) error { return q.bind(pos, v) }
func (q *Query) BindString(pos int, v string) error { return q.bind(pos, v) }
func (q *Query) BindNull(pos int) error { return q.bind(pos, nil) }

// BindBool stores v as 0 or 1.
func (q *Query) BindBool(pos int, v bool) error {
	if v {
		return q.bind(pos, int64(1))
	}
	return q.bind(pos, int64(0))
}

func (q *Query) bind(pos int, v driver.Value) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stmt == nil {
		return q.fail(StatementError, "bind", ErrNoStatement)
	}
	if pos < 0 {
		return q.fail(StatementError, "bind", ErrInvalidPosition)
	}
	q.stmt.Bind(pos, v)
	return record(&q.lastErr, nil)
}

// value returns the column at pos of the current row, or nil when there is
// no row or pos is out of range.
func (q *Query) value(pos int) driver.Value {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos < 0 || pos >= len(q.row) {
		return nil
	}
	return q.row[pos]
}

// Int returns the column as a 32-bit integer (GetInteger).
func (q *Query) Int(pos int) int32 {
	return int32(toInt64(q.value(pos)))
}

// Uint returns the column as an unsigned 32-bit integer.
func (q *Query) Uint(pos int) uint32 {
	return uint32(toInt64(q.value(pos)))
}

func (q *Query) Int64(pos int) int64 {
	return toInt64(q.value(pos))
}

func (q *Query) Float(pos int) float64 {
	return toFloat64(q.value(pos))
}

// Text returns the column as a string; NULL reads as "". Use IsNull to tell
// the two apart. REAL values render as SQLite does, so 1.0 reads "1.0".
func (q *Query) Text(pos int) string {
	return toString(q.value(pos))
}

func (q *Query) Bool(pos int) bool {
	return q.Int(pos) != 0
}

// IsNull reports whether the column is NULL. Without a current row every
// column is NULL.
func (q *Query) IsNull(pos int) bool {
	return q.value(pos) == nil
}

// Columns returns the column names of the current result, or nil before
// Exec.
func (q *Query) Columns() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor == nil {
		return nil
	}
	return q.cursor.Columns()
}

// RowIndex is the zero-based index of the current row.
func (q *Query) RowIndex() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rowIndex
}

// RowCount is the number of rows in the result, or -1 when the backend
// streams rows and cannot know it.
func (q *Query) RowCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rowCount
}

// LastInsertID returns the connection's most recent autoincrement row id.
func (q *Query) LastInsertID() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	var id int64
	err := q.db.withConn(func(c Conn) error {
		var err error
		id, err = c.LastInsertID()
		return err
	})
	if err != nil {
		q.fail(StatementError, "last insert id", err)
		return 0
	}
	return id
}

// SQL returns the text last prepared or executed, without bound values.
func (q *Query) SQL() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sql
}

// LastError returns the outcome of the most recent operation on this Query.
func (q *Query) LastError() Error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Err returns LastError as an error, nil when the last operation succeeded.
// Check it after a Next loop ends.
func (q *Query) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lastErr.OK() {
		return nil
	}
	e := q.lastErr
	return &e
}

func (q *Query) fail(kind Kind, op string, err error) error {
	b := q.db.backend
	if errors.Is(err, ErrNotOpen) {
		kind = ConnectionFailure
	}
	return record(&q.lastErr, newError(b, kind, op, err))
}

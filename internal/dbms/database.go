// ABOUTME: Database owns the single native connection to one named store
// ABOUTME: Open/Close and transaction control are serialised by the connection lock

package dbms

import (
	"log/slog"
	"sync"
)

// Database is a connection to one store through one backend.
// A Database must outlive every Query built against it.
type Database struct {
	backend Backend
	name    string
	logger  *slog.Logger

	mu      sync.Mutex // guards conn, path and lastErr
	conn    Conn
	path    string
	lastErr Error
}

// New returns an unopened Database for the named store.
func New(backend Backend, name string) *Database {
	return &Database{
		backend: backend,
		name:    name,
		logger:  slog.Default().With("component", "dbms", "backend", backend.Name()),
	}
}

// NewInMemory returns an unopened Database for a temporary store. The cursor
// backend maps it to its in-memory sentinel; the buffered backend to a private
// temporary file.
func NewInMemory(backend Backend) *Database {
	return New(backend, "")
}

// Backend returns the engine this Database was built with.
func (d *Database) Backend() Backend {
	return d.backend
}

// Open connects to Location(). It is a no-op if already connected.
func (d *Database) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return record(&d.lastErr, nil)
	}
	location := d.backend.Location(d.path, d.name)
	conn, err := d.backend.Connect(location)
	if err != nil {
		d.logger.Debug("open failed", "location", location, "error", err)
		return record(&d.lastErr, newError(d.backend, ConnectionFailure, "open", err))
	}
	d.conn = conn
	d.logger.Debug("opened", "location", location)
	return record(&d.lastErr, nil)
}

// Close releases the connection. It is a no-op if not connected. A failed
// release is recorded but the handle is dropped either way, so a later Open
// always starts from a fresh connection.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return record(&d.lastErr, nil)
	}
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		d.logger.Debug("close failed", "error", err)
		return record(&d.lastErr, newError(d.backend, ResourceReleaseFailure, "close", err))
	}
	d.logger.Debug("closed")
	return record(&d.lastErr, nil)
}

// IsOpen reports whether a connection is held.
func (d *Database) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *Database) BeginTransaction() error {
	return d.exec("begin transaction", "BEGIN TRANSACTION")
}

// CommitTransaction commits. A failed commit is not rolled back here.
func (d *Database) CommitTransaction() error {
	return d.exec("commit transaction", "COMMIT TRANSACTION")
}

func (d *Database) RollbackTransaction() error {
	return d.exec("rollback transaction", "ROLLBACK TRANSACTION")
}

func (d *Database) exec(op, sql string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return record(&d.lastErr, newError(nil, TransactionFailure, op, ErrNotOpen))
	}
	if err := d.conn.ExecImmediate(sql); err != nil {
		return record(&d.lastErr, newError(d.backend, TransactionFailure, op, err))
	}
	return record(&d.lastErr, nil)
}

// IsReadWrite reports whether the main store accepts writes. The cursor
// backend probes the engine; the buffered backend always answers true.
// An unopened Database reports false.
func (d *Database) IsReadWrite() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return false
	}
	return d.conn.IsReadWrite()
}

// Backup takes an engine-specific durable snapshot of the open store.
func (d *Database) Backup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return record(&d.lastErr, newError(nil, ConnectionFailure, "backup", ErrNotOpen))
	}
	if err := d.conn.Backup(); err != nil {
		d.logger.Error("backup failed", "error", err)
		return record(&d.lastErr, newError(d.backend, StatementError, "backup", err))
	}
	d.logger.Info("backup was successful")
	return record(&d.lastErr, nil)
}

// SetPath sets the path prefix. It takes effect on the next Open.
func (d *Database) SetPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
}

// Path returns the configured path prefix.
func (d *Database) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Location returns the effective storage location.
func (d *Database) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Location(d.path, d.name)
}

// LastError returns the outcome of the most recent Database operation.
func (d *Database) LastError() Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// withConn runs fn on the live connection while holding the connection lock.
// Queries use it for the duration of one native call.
func (d *Database) withConn(fn func(Conn) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrNotOpen
	}
	return fn(d.conn)
}

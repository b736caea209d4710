// Package dbms is the embedded-SQL storage layer shared by every component
// that persists state: resumption data, capability caches, policy tables.
//
// # Architecture
//
// Two types make up the caller-facing contract:
//
//   - Database: one connection to one named store, plus transaction control,
//     backup and path configuration
//   - Query: one prepared or ad-hoc statement with zero-based typed bindings,
//     a forward-only cursor and typed column accessors
//
// Both sit on a Backend, chosen when the Database is built:
//
//   - "cursor": modernc.org/sqlite. Next performs one native step.
//     Stores live at path+name+".sqlite"; an empty name is ":memory:".
//   - "buffered": github.com/mattn/go-sqlite3 (cgo builds only). Exec runs the
//     statement to completion and buffers every row; Next walks the buffer by
//     row index. Stores live at path+name. Backup writes path+name+".bak".
//
// # Usage
//
//	backend, _ := dbms.Lookup("cursor")
//	db := dbms.New(backend, "policy")
//	db.SetPath("/var/lib/sdl/")
//	if err := db.Open(); err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	q := dbms.NewQuery(db)
//	defer q.Finalize()
//	if err := q.Prepare("SELECT name FROM app WHERE id = ?"); err != nil {
//	    return err
//	}
//	q.BindInt(0, 7)
//	for q.Next() {
//	    fmt.Println(q.Text(0))
//	}
//	if err := q.Err(); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Failing operations return a *Error and keep a copy as LastError on the
// Database or Query involved. Nothing is retried, and a failed commit is not
// rolled back automatically.
//
// # Concurrency
//
// Open, Close and transaction statements are serialised by the Database's
// connection lock. Each Query has its own lock and takes the connection lock
// only around native calls, always in the order Query then Database.
// Statements issued through different Queries on one Database are not
// serialised against each other; callers coordinate them.
package dbms

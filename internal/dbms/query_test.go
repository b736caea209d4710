// ABOUTME: Tests for Query binding, execution, cursor and column access
// ABOUTME: Both backends must show the same observable behaviour

package dbms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTable(t *testing.T, db *Database) {
	t.Helper()
	q := NewQuery(db)
	defer q.Finalize()
	require.NoError(t, q.ExecDirect("CREATE TABLE t (id INTEGER, name TEXT)"))
}

func insertRow(t *testing.T, db *Database, id int32, name string) {
	t.Helper()
	q := NewQuery(db)
	defer q.Finalize()
	require.NoError(t, q.Prepare("INSERT INTO t VALUES (?, ?)"))
	require.NoError(t, q.BindInt(0, id))
	require.NoError(t, q.BindString(1, name))
	require.NoError(t, q.Exec())
}

func TestQuery_Scenario(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := New(b, "store")
		db.SetPath(t.TempDir() + "/")
		require.NoError(t, db.Open())
		defer db.Close()

		create := NewQuery(db)
		defer create.Finalize()
		require.NoError(t, create.ExecDirect("CREATE TABLE t (id INTEGER, name TEXT)"))
		assert.Equal(t, "CREATE TABLE t (id INTEGER, name TEXT)", create.SQL())

		insert := NewQuery(db)
		defer insert.Finalize()
		require.NoError(t, insert.Prepare("INSERT INTO t VALUES (?, ?)"))
		require.NoError(t, insert.BindInt(0, 1))
		require.NoError(t, insert.BindString(1, "x"))
		require.NoError(t, insert.Exec())

		sel := NewQuery(db)
		defer sel.Finalize()
		require.NoError(t, sel.Prepare("SELECT name FROM t WHERE id=1"))
		require.NoError(t, sel.Exec())
		require.True(t, sel.Next())
		assert.Equal(t, "x", sel.Text(0))
		assert.False(t, sel.Next())
	})
}

func TestQuery_BindingsAreIndependentAfterReset(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("INSERT INTO t (name, id) VALUES (?, ?)"))
		require.NoError(t, q.BindString(0, "a"))
		require.NoError(t, q.BindInt(1, 5))
		require.NoError(t, q.Exec())

		require.NoError(t, q.Reset())
		require.NoError(t, q.BindString(0, "b"))
		require.NoError(t, q.BindInt(1, 6))
		require.NoError(t, q.Exec())

		sel := newTestQuery(t, db)
		require.NoError(t, sel.Prepare("SELECT id, name FROM t ORDER BY id"))
		got := map[int32]string{}
		for sel.Next() {
			got[sel.Int(0)] = sel.Text(1)
		}
		assert.Equal(t, map[int32]string{5: "a", 6: "b"}, got)
	})
}

func TestQuery_NullSemantics(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT ?, ?"))
		require.NoError(t, q.BindNull(0))
		require.NoError(t, q.BindString(1, ""))
		require.NoError(t, q.Exec())

		assert.True(t, q.IsNull(0))
		assert.Equal(t, "", q.Text(0))
		assert.False(t, q.IsNull(1))
		assert.Equal(t, "", q.Text(1))
	})
}

func TestQuery_EmptyResult(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT id, name FROM t WHERE id = ?"))
		require.NoError(t, q.BindInt(0, 42))
		require.NoError(t, q.Exec())

		assert.False(t, q.Next())
		assert.False(t, q.Next())
		assert.Equal(t, int32(0), q.Int(0))
		assert.Equal(t, "", q.Text(1))
		assert.Equal(t, 0.0, q.Float(0))
		assert.True(t, q.IsNull(0))
	})
}

func TestQuery_AccessorsBeforeExec(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		assert.Equal(t, int32(0), q.Int(0))
		assert.Equal(t, "", q.Text(0))
		assert.True(t, q.IsNull(0))

		require.NoError(t, q.Prepare("SELECT 1"))
		assert.Equal(t, int32(0), q.Int(0))
		assert.Equal(t, int64(0), q.Int64(-1))
	})
}

func TestQuery_IteratesEveryRowOnce(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)
		for i, name := range []string{"a", "b", "c"} {
			insertRow(t, db, int32(i+1), name)
		}

		t.Run("exec then next", func(t *testing.T) {
			q := newTestQuery(t, db)
			require.NoError(t, q.Prepare("SELECT name FROM t ORDER BY id"))
			require.NoError(t, q.Exec())
			assert.Equal(t, "a", q.Text(0), "first row is readable right after Exec")

			var names []string
			for q.Next() {
				names = append(names, q.Text(0))
			}
			assert.Equal(t, []string{"a", "b", "c"}, names)
			assert.Equal(t, 2, q.RowIndex())
			assert.False(t, q.Next())
		})

		t.Run("next only", func(t *testing.T) {
			q := newTestQuery(t, db)
			require.NoError(t, q.Prepare("SELECT name FROM t ORDER BY id"))

			var names []string
			for q.Next() {
				names = append(names, q.Text(0))
			}
			assert.Equal(t, []string{"a", "b", "c"}, names)
		})

		t.Run("reset reruns", func(t *testing.T) {
			q := newTestQuery(t, db)
			require.NoError(t, q.Prepare("SELECT name FROM t WHERE id >= ? ORDER BY id"))
			require.NoError(t, q.BindInt(0, 3))
			n := 0
			for q.Next() {
				n++
			}
			assert.Equal(t, 1, n)

			require.NoError(t, q.Reset())
			require.NoError(t, q.BindInt(0, 2))
			n = 0
			for q.Next() {
				n++
			}
			assert.Equal(t, 2, n)
		})
	})
}

func TestQuery_ExecTwiceDoesNotRerun(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("INSERT INTO t VALUES (?, ?)"))
		require.NoError(t, q.BindInt(0, 1))
		require.NoError(t, q.BindString(1, "once"))
		require.NoError(t, q.Exec())
		require.NoError(t, q.Exec())

		assert.Equal(t, int64(1), countRows(t, db, "t"))
	})
}

func TestQuery_ExecDirectKeepsPreparedBindings(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("INSERT INTO t VALUES (?, ?)"))
		require.NoError(t, q.BindInt(0, 9))
		require.NoError(t, q.BindString(1, "kept"))

		require.NoError(t, q.ExecDirect("CREATE TABLE other (v TEXT)"))
		assert.Equal(t, "CREATE TABLE other (v TEXT)", q.SQL())
		require.NoError(t, q.Exec())

		sel := newTestQuery(t, db)
		require.NoError(t, sel.Prepare("SELECT name FROM t WHERE id = 9"))
		require.True(t, sel.Next())
		assert.Equal(t, "kept", sel.Text(0))
	})
}

func TestQuery_LastInsertID(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		require.NoError(t, q.ExecDirect("CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, v TEXT)"))
		require.NoError(t, q.Prepare("INSERT INTO items (v) VALUES (?)"))

		for want := int64(1); want <= 3; want++ {
			require.NoError(t, q.Reset())
			require.NoError(t, q.BindString(0, "v"))
			require.NoError(t, q.Exec())
			assert.Equal(t, want, q.LastInsertID())
		}
	})
}

func TestQuery_TypedColumns(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		require.NoError(t, q.ExecDirect(`CREATE TABLE typed (
			i INTEGER, l INTEGER, d REAL, s TEXT, flag INTEGER, u INTEGER, n TEXT)`))
		require.NoError(t, q.Prepare("INSERT INTO typed VALUES (?, ?, ?, ?, ?, ?, ?)"))
		require.NoError(t, q.BindInt(0, -7))
		require.NoError(t, q.BindInt64(1, 1<<40))
		require.NoError(t, q.BindDouble(2, 2.5))
		require.NoError(t, q.BindString(3, "42abc"))
		require.NoError(t, q.BindBool(4, true))
		require.NoError(t, q.Bind(5, uint32(4000000000)))
		require.NoError(t, q.Bind(6, nil))
		require.NoError(t, q.Exec())

		sel := newTestQuery(t, db)
		require.NoError(t, sel.Prepare("SELECT i, l, d, s, flag, u, n FROM typed"))
		require.True(t, sel.Next())

		assert.Equal(t, int32(-7), sel.Int(0))
		assert.Equal(t, int64(1<<40), sel.Int64(1))
		assert.Equal(t, 2.5, sel.Float(2))
		assert.Equal(t, "42abc", sel.Text(3))
		assert.Equal(t, int32(42), sel.Int(3))
		assert.True(t, sel.Bool(4))
		assert.Equal(t, uint32(4000000000), sel.Uint(5))
		assert.True(t, sel.IsNull(6))
		assert.Equal(t, "-7", sel.Text(0))
		assert.Equal(t, "2.5", sel.Text(2))
		assert.Equal(t, 0.0, sel.Float(6))
	})
}

func TestQuery_RealColumnAsText(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT 1.0, CAST(7 AS REAL), 1e20"))
		require.True(t, q.Next())
		assert.Equal(t, "1.0", q.Text(0))
		assert.Equal(t, "7.0", q.Text(1))
		assert.Equal(t, "1.0e+20", q.Text(2))
	})
}

func TestQuery_BindValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		assert.ErrorIs(t, q.BindInt(0, 1), ErrNoStatement)
		assert.Equal(t, StatementError, q.LastError().Kind)

		require.NoError(t, q.Prepare("SELECT ?"))
		assert.ErrorIs(t, q.BindInt(-1, 1), ErrInvalidPosition)
		assert.ErrorIs(t, q.Bind(0, struct{}{}), ErrUnsupportedType)
		assert.ErrorIs(t, q.Bind(0, []int{1}), ErrUnsupportedType)

		require.NoError(t, q.Bind(0, 3))
		assert.True(t, q.LastError().OK())
		require.True(t, q.Next())
		assert.Equal(t, int32(3), q.Int(0))
	})
}

func TestQuery_BadSQL(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		// some engines compile at prepare, others on first execution
		err := q.Prepare("SELEC nonsense")
		if err == nil {
			err = q.Exec()
		}
		require.Error(t, err)

		var dbErr *Error
		require.True(t, errors.As(err, &dbErr))
		assert.Equal(t, StatementError, dbErr.Kind)
		assert.NotEmpty(t, dbErr.Message)
		assert.False(t, q.LastError().OK())
		assert.False(t, q.Next())
	})
}

func TestQuery_ExecWithoutStatement(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		assert.ErrorIs(t, q.Exec(), ErrNoStatement)
		assert.False(t, q.Next())
		assert.ErrorIs(t, q.Err(), ErrNoStatement)
	})
}

func TestQuery_ErrAfterLoop(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)
		insertRow(t, db, 1, "a")

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT name FROM t"))
		n := 0
		for q.Next() {
			n++
		}
		assert.Equal(t, 1, n)
		assert.NoError(t, q.Err())
	})
}

func TestQuery_ClosedDatabase(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := New(b, "store")

		q := NewQuery(db)
		defer q.Finalize()
		err := q.Prepare("SELECT 1")
		assert.ErrorIs(t, err, ErrNotOpen)
		assert.Equal(t, ConnectionFailure, q.LastError().Kind)
		assert.ErrorIs(t, q.ExecDirect("SELECT 1"), ErrNotOpen)
		assert.Equal(t, int64(0), q.LastInsertID())
	})
}

func TestQuery_FinalizeIsIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)
		insertRow(t, db, 1, "x")

		q := NewQuery(db)
		require.NoError(t, q.Prepare("SELECT name FROM t"))
		require.True(t, q.Next())

		assert.NoError(t, q.Finalize())
		assert.NoError(t, q.Finalize())
		assert.NoError(t, q.Close())

		assert.False(t, q.Next())
		assert.Equal(t, "", q.Text(0))
		assert.ErrorIs(t, q.BindInt(0, 1), ErrNoStatement)

		// a finalized Query can be prepared again
		require.NoError(t, q.Prepare("SELECT name FROM t"))
		require.True(t, q.Next())
		assert.Equal(t, "x", q.Text(0))
		assert.NoError(t, q.Close())
	})
}

func TestQuery_PrepareReplacesStatement(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT 1"))
		require.True(t, q.Next())
		require.NoError(t, q.Prepare("SELECT 2"))
		assert.Equal(t, "SELECT 2", q.SQL())
		require.True(t, q.Next())
		assert.Equal(t, int32(2), q.Int(0))
	})
}

func TestQuery_Columns(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		db := openTestDB(t, b)
		createTable(t, db)

		q := newTestQuery(t, db)
		require.NoError(t, q.Prepare("SELECT id, name AS label FROM t"))
		assert.Nil(t, q.Columns())

		require.NoError(t, q.Exec())
		assert.Equal(t, []string{"id", "label"}, q.Columns())

		require.NoError(t, q.Reset())
		assert.Nil(t, q.Columns())
	})
}

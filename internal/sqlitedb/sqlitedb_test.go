package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS items (id TEXT PRIMARY KEY, n INTEGER NOT NULL);`

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path, testSchema)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(Memory, testSchema)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO items (id, n) VALUES ('a', 1)")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT n FROM items WHERE id = 'a'").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		db, err := Open(path, testSchema)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, db.Close())
	}
}

func TestOpen_MigrationsRunOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	migrations := []Migration{
		{Version: 1, SQL: "ALTER TABLE items ADD COLUMN note TEXT NOT NULL DEFAULT ''"},
		{Version: 2, SQL: "CREATE INDEX IF NOT EXISTS idx_items_n ON items(n)"},
	}

	db, err := Open(path, testSchema, migrations...)
	require.NoError(t, err)
	v, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	require.NoError(t, db.Close())

	// A second ALTER TABLE ADD COLUMN would fail, so reopening proves the
	// migration is skipped.
	db, err = Open(path, testSchema, migrations...)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("INSERT INTO items (id, n, note) VALUES ('a', 1, 'x')")
	assert.NoError(t, err)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db, err := Open(Memory, testSchema)
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = InTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (id, n) VALUES ('a', 1)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Zero(t, count)
}

func TestInMemory(t *testing.T) {
	assert.True(t, InMemory(":memory:"))
	assert.True(t, InMemory("file:vault?mode=memory&cache=shared"))
	assert.False(t, InMemory("/tmp/vault.db"))
}

package vault

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/roach88/tradefin/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema
// 1 - index on records.consumed_by for audit queries
var migrations = []sqlitedb.Migration{
	{Version: 1, SQL: `CREATE INDEX IF NOT EXISTS idx_records_consumed_by ON records(consumed_by)`},
}

// Vault is a party's SQLite-backed record store.
type Vault struct {
	db *sql.DB
}

// Open creates or opens a vault at path. sqlitedb.Memory gives a private
// in-memory vault.
func Open(path string) (*Vault, error) {
	db, err := sqlitedb.Open(path, schemaSQL, migrations...)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return &Vault{db: db}, nil
}

// Close closes the database.
func (v *Vault) Close() error {
	if v.db == nil {
		return nil
	}
	return v.db.Close()
}

// DB returns the underlying database for tests and diagnostics.
func (v *Vault) DB() *sql.DB {
	return v.db
}

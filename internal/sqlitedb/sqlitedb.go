// Package sqlitedb opens SQLite databases the way every tradefin store
// needs them: WAL journal, a single connection, an embedded schema and
// numbered migrations tracked in PRAGMA user_version.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Memory is the path that opens a private in-memory database.
const Memory = ":memory:"

// Migration upgrades an existing database to Version.
type Migration struct {
	Version int
	SQL     string
}

// Open creates or opens the database at path, applies pragmas, executes
// schema and then every migration newer than the stored user_version.
//
// The connection pool is limited to one connection. SQLite allows a single
// writer, and an in-memory database only lives as long as its connection.
//
// Safe to call repeatedly on the same file.
func Open(path, schema string, migrations ...Migration) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := migrate(db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// InMemory reports whether path names an in-memory database.
func InMemory(path string) bool {
	return path == Memory || strings.Contains(path, "mode=memory")
}

func applyPragmas(db *sql.DB, path string) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	// WAL is meaningless for in-memory databases.
	if !InMemory(path) {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(db *sql.DB, migrations []Migration) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	target := version
	for _, m := range migrations {
		if m.Version <= version {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.Version, err)
		}
		target = max(target, m.Version)
	}

	if target != version {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Version returns the stored schema version.
func Version(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

// InTx runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise.
func InTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

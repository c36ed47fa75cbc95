package db

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	db             *sql.DB
	eventListeners map[EventKind][]EventListener
}

func NewSQLiteDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DB{
		db:             db,
		eventListeners: make(map[EventKind][]EventListener),
	}, nil
}

// Migrate brings the schema up to date. It applies the embedded migration
// files in order, tracking them in schema_migrations, then backfills any
// optional columns a pre-existing database may be missing. Safe to run on
// every startup regardless of prior state.
func (db *DB) Migrate() error {
	// Create migrations tracking table if it doesn't exist
	_, err := db.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		migrations = append(migrations, entry.Name())
	}

	sort.Strings(migrations)

	for _, migration := range migrations {
		version := strings.TrimSuffix(migration, ".sql")
		if version == "" {
			log.Println("Invalid migration file name:", migration)
			continue
		}

		// Check if migration has already been applied
		var exists bool
		if err := db.db.QueryRow(`
		    SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)
		`, version).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check if migration has been applied: %w", err)
		}
		if exists {
			continue
		}

		// Apply migration
		content, err := migrationsFS.ReadFile("migrations/" + migration)
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}

		tx, err := db.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return migrationError(version, err)
		}

		// Mark migration as applied
		if _, err := tx.Exec(`
		    INSERT INTO schema_migrations (version) VALUES (?)
		`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to mark migration as applied: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		log.Printf("Migration %s applied successfully", version)
	}

	return db.evolveSchema()
}

// migrationError wraps a failed migration. A missing FTS5 module means the
// binary was compiled without the sqlite_fts5 build tag, which is worth
// spelling out: the fix is a rebuild, not a schema repair.
func migrationError(version string, err error) error {
	if strings.Contains(err.Error(), "no such module: fts5") {
		return fmt.Errorf("failed to apply migration %s: %w (binary built without FTS5 support; rebuild with -tags sqlite_fts5)", version, err)
	}
	return fmt.Errorf("failed to apply migration %s: %w", version, err)
}

// evolveSchema adds optional bookmark columns that are absent from an
// existing table. The migration ledger alone cannot retrofit tables
// created by builds that predate it, so columns are probed directly.
// Existing row data is never touched.
func (db *DB) evolveSchema() error {
	cols, err := db.tableColumns("bookmarks")
	if err != nil {
		return err
	}

	optional := []struct{ name, ddl string }{
		{"media_urls", "media_urls TEXT"},
		{"urls", "urls TEXT"},
		{"processed", "processed INTEGER NOT NULL DEFAULT 0"},
		{"processed_at", "processed_at TEXT"},
		{"enrichment", "enrichment TEXT"},
	}
	for _, col := range optional {
		if cols[col.name] {
			continue
		}
		if _, err := db.db.Exec("ALTER TABLE bookmarks ADD COLUMN " + col.ddl); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
		log.Printf("Added missing column %s to bookmarks", col.name)
	}
	return nil
}

func (db *DB) tableColumns(table string) (map[string]bool, error) {
	rows, err := db.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func (db *DB) Close() error {
	return db.db.Close()
}

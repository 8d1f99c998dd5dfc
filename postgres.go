package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend is the remote persistence backend. A tenant only uses it
// after linking (the external authorization flow is out of scope here; Link
// records its outcome). One row per tenant holds the document and version.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// IsLinked reports whether the tenant has linked the remote backend.
func (b *PostgresBackend) IsLinked(tenant string) (bool, error) {
	var linked bool
	err := b.pool.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT 1 FROM remote_links WHERE tenant = $1)", tenant,
	).Scan(&linked)
	if err != nil {
		return false, &BackendError{Op: "is_linked", Err: err}
	}
	return linked, nil
}

// Link marks the tenant as linked; repeated calls are no-ops.
func (b *PostgresBackend) Link(tenant string) error {
	_, err := b.pool.Exec(context.Background(),
		"INSERT INTO remote_links (tenant) VALUES ($1) ON CONFLICT (tenant) DO NOTHING", tenant)
	if err != nil {
		return &BackendError{Op: "link", Err: err}
	}
	return nil
}

func (b *PostgresBackend) Load(tenant string) (LedgerDocument, int64, error) {
	var raw []byte
	var version int64
	err := b.pool.QueryRow(context.Background(),
		"SELECT document, version FROM ledgers WHERE tenant = $1", tenant,
	).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		// Linked but never saved: start fresh.
		return LedgerDocument{}.normalized(), 0, nil
	}
	if err != nil {
		return LedgerDocument{}, 0, &BackendError{Op: "load", Err: err}
	}

	var doc LedgerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return LedgerDocument{}, 0, &BackendError{Op: "load", Err: err}
	}
	return doc.normalized(), version, nil
}

func (b *PostgresBackend) Save(tenant string, doc LedgerDocument, version int64) error {
	raw, err := json.Marshal(doc.normalized())
	if err != nil {
		return &BackendError{Op: "save", Err: err}
	}

	_, err = b.pool.Exec(context.Background(), `
		INSERT INTO ledgers (tenant, document, version, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant) DO UPDATE
		SET document = EXCLUDED.document, version = EXCLUDED.version, updated_at = now()
	`, tenant, raw, version)
	if err != nil {
		return &BackendError{Op: "save", Err: err}
	}
	return nil
}

// Migration helpers

// runMigrations applies all pending migrations from the given directory.
func runMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// getMigrationVersion reports the current migration version and dirty flag.
func getMigrationVersion(db *sql.DB, migrationsPath string) (uint, bool, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, false, err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

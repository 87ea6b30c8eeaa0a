// Package store implements the local replica: one SQLite table per entity
// with the shared sync-metadata columns, a key/value metadata table for
// scope ids and sync bookkeeping, and per-entity repositories over
// dbx.DBTX so the same code runs against the database or a transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/migrations"
)

// Store bundles the database handle and default (non-transactional)
// repositories for every entity type.
type Store struct {
	db *sql.DB

	Companies  *CompanyRepo
	Users      *UserRepo
	Clients    *ClientRepo
	SubClients *SubClientRepo
	TaskTypes  *TaskTypeRepo
	Projects   *ProjectRepo
	Tasks      *TaskRepo
	Events     *EventRepo
	Metadata   *MetadataRepo
}

// Open opens (or creates) the replica database at dsn and applies pending
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening replica database: %w", err)
	}

	// SQLite allows one writer; a larger pool only produces SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating replica database: %w", err)
	}

	return New(db), nil
}

// New wraps an already-open database. Used by tests with in-memory SQLite.
func New(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Companies:  NewCompanyRepo(db),
		Users:      NewUserRepo(db),
		Clients:    NewClientRepo(db),
		SubClients: NewSubClientRepo(db),
		TaskTypes:  NewTaskTypeRepo(db),
		Projects:   NewProjectRepo(db),
		Tasks:      NewTaskRepo(db),
		Events:     NewEventRepo(db),
		Metadata:   NewMetadataRepo(db),
	}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// DB exposes the raw handle for tests and for the unit-of-work helper.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *Store) Close() error { return s.db.Close() }

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

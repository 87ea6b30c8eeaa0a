package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoskresensky/fieldsync/internal/dbx"
)

// Well-known metadata keys.
const (
	MetaCompanyID      = "company_id"
	MetaUserID         = "user_id"
	MetaLastFullSync   = "last_full_sync_at"
	MetaLastRefreshAt  = "last_refresh_at"
)

// MetadataRepo is a small key/value store for scope identifiers and sync
// bookkeeping that must survive restarts but is not entity data.
type MetadataRepo struct {
	db dbx.DBTX
}

func NewMetadataRepo(db dbx.DBTX) *MetadataRepo {
	return &MetadataRepo{db: db}
}

// Get returns the value for key, or "" with no error when the key is
// absent. Absence is a normal state (e.g. before the first sync).
func (r *MetadataRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *MetadataRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *MetadataRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// GetTime parses the stored RFC3339 value for key; nil when unset.
func (r *MetadataRepo) GetTime(ctx context.Context, key string) (*time.Time, error) {
	v, err := r.Get(ctx, key)
	if err != nil || v == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp in metadata[%s]: %w", key, err)
	}
	return &t, nil
}

// SetTime stores t under key in RFC3339 form.
func (r *MetadataRepo) SetTime(ctx context.Context, key string, t time.Time) error {
	return r.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}

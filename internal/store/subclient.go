package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
)

type SubClientRepo struct {
	db dbx.DBTX
}

func NewSubClientRepo(db dbx.DBTX) *SubClientRepo {
	return &SubClientRepo{db: db}
}

const subClientColumns = `id, name, email, phone, client_id,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanSubClient(row rowScanner) (*models.SubClient, error) {
	var s models.SubClient
	var lastSynced, deleted sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.ClientID,
		&s.NeedsSync, &lastSynced, &deleted, &s.SyncPriority)
	if err != nil {
		return nil, err
	}
	s.LastSyncedAt = timePtr(lastSynced)
	s.DeletedAt = timePtr(deleted)
	return &s, nil
}

func (r *SubClientRepo) Get(ctx context.Context, id string) (*models.SubClient, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subClientColumns+` FROM subclients WHERE id = ?`, id)
	s, err := scanSubClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subclient %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subclient: %w", err)
	}
	return s, nil
}

func (r *SubClientRepo) Insert(ctx context.Context, s *models.SubClient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subclients (`+subClientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Email, s.Phone, s.ClientID,
		s.NeedsSync, nullTime(s.LastSyncedAt), nullTime(s.DeletedAt), s.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert subclient: %w", err)
	}
	return nil
}

func (r *SubClientRepo) Save(ctx context.Context, s *models.SubClient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subclients SET name=?, email=?, phone=?, client_id=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		s.Name, s.Email, s.Phone, s.ClientID,
		s.NeedsSync, nullTime(s.LastSyncedAt), nullTime(s.DeletedAt), s.SyncPriority,
		s.ID)
	if err != nil {
		return fmt.Errorf("failed to save subclient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subclient %s: %w", s.ID, common.ErrNotFound)
	}
	return nil
}

func (r *SubClientRepo) ListActive(ctx context.Context) ([]*models.SubClient, error) {
	return r.list(ctx, `SELECT `+subClientColumns+` FROM subclients WHERE deleted_at IS NULL`)
}

func (r *SubClientRepo) ListByClient(ctx context.Context, clientID string) ([]*models.SubClient, error) {
	return r.list(ctx,
		`SELECT `+subClientColumns+` FROM subclients WHERE deleted_at IS NULL AND client_id = ?`,
		clientID)
}

func (r *SubClientRepo) ListPending(ctx context.Context) ([]*models.SubClient, error) {
	return r.list(ctx,
		`SELECT `+subClientColumns+` FROM subclients WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
}

func (r *SubClientRepo) list(ctx context.Context, query string, args ...any) ([]*models.SubClient, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subclients: %w", err)
	}
	defer rows.Close()

	var result []*models.SubClient
	for rows.Next() {
		s, err := scanSubClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *SubClientRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subclients SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete subclient: %w", err)
	}
	return nil
}

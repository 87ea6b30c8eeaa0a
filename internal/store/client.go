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

type ClientRepo struct {
	db dbx.DBTX
}

func NewClientRepo(db dbx.DBTX) *ClientRepo {
	return &ClientRepo{db: db}
}

const clientColumns = `id, name, email, phone, address, notes, company_id,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	var lastSynced, deleted sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes,
		&c.CompanyID, &c.NeedsSync, &lastSynced, &deleted, &c.SyncPriority)
	if err != nil {
		return nil, err
	}
	c.LastSyncedAt = timePtr(lastSynced)
	c.DeletedAt = timePtr(deleted)
	return &c, nil
}

func (r *ClientRepo) Get(ctx context.Context, id string) (*models.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *ClientRepo) Insert(ctx context.Context, c *models.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes, c.CompanyID,
		c.NeedsSync, nullTime(c.LastSyncedAt), nullTime(c.DeletedAt), c.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *ClientRepo) Save(ctx context.Context, c *models.Client) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET name=?, email=?, phone=?, address=?, notes=?, company_id=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, c.CompanyID,
		c.NeedsSync, nullTime(c.LastSyncedAt), nullTime(c.DeletedAt), c.SyncPriority,
		c.ID)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("client %s: %w", c.ID, common.ErrNotFound)
	}
	return nil
}

func (r *ClientRepo) ListActive(ctx context.Context) ([]*models.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var result []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ClientRepo) ListPending(ctx context.Context) ([]*models.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients
		 WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending clients: %w", err)
	}
	defer rows.Close()

	var result []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ClientRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE clients SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete client: %w", err)
	}
	return nil
}

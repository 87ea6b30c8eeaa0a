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

type UserRepo struct {
	db dbx.DBTX
}

func NewUserRepo(db dbx.DBTX) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, first_name, last_name, email, phone, role, company_id,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastSynced, deleted sql.NullTime
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role,
		&u.CompanyID, &u.NeedsSync, &lastSynced, &deleted, &u.SyncPriority)
	if err != nil {
		return nil, err
	}
	u.LastSyncedAt = timePtr(lastSynced)
	u.DeletedAt = timePtr(deleted)
	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) Insert(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Phone, u.Role, u.CompanyID,
		u.NeedsSync, nullTime(u.LastSyncedAt), nullTime(u.DeletedAt), u.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Save(ctx context.Context, u *models.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET first_name=?, last_name=?, email=?, phone=?, role=?, company_id=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		u.FirstName, u.LastName, u.Email, u.Phone, u.Role, u.CompanyID,
		u.NeedsSync, nullTime(u.LastSyncedAt), nullTime(u.DeletedAt), u.SyncPriority,
		u.ID)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, common.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) ListActive(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *UserRepo) ListPending(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete user: %w", err)
	}
	return nil
}

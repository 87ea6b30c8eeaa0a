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

type CompanyRepo struct {
	db dbx.DBTX
}

func NewCompanyRepo(db dbx.DBTX) *CompanyRepo {
	return &CompanyRepo{db: db}
}

const companyColumns = `id, name, address, phone, email, team_member_ids, image_ids,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanCompany(row rowScanner) (*models.Company, error) {
	var c models.Company
	var team, images string
	var lastSynced, deleted sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &team, &images,
		&c.NeedsSync, &lastSynced, &deleted, &c.SyncPriority)
	if err != nil {
		return nil, err
	}
	c.TeamMemberIDs = models.DecodeIDs(team)
	c.ImageIDs = models.DecodeIDs(images)
	c.LastSyncedAt = timePtr(lastSynced)
	c.DeletedAt = timePtr(deleted)
	return &c, nil
}

func (r *CompanyRepo) Get(ctx context.Context, id string) (*models.Company, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) Insert(ctx context.Context, c *models.Company) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Address, c.Phone, c.Email,
		models.EncodeIDs(c.TeamMemberIDs), models.EncodeIDs(c.ImageIDs),
		c.NeedsSync, nullTime(c.LastSyncedAt), nullTime(c.DeletedAt), c.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

// Save writes the full row. A missing target surfaces as ErrNotFound so a
// vanished update target is never silently swallowed.
func (r *CompanyRepo) Save(ctx context.Context, c *models.Company) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE companies SET name=?, address=?, phone=?, email=?,
			team_member_ids=?, image_ids=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		c.Name, c.Address, c.Phone, c.Email,
		models.EncodeIDs(c.TeamMemberIDs), models.EncodeIDs(c.ImageIDs),
		c.NeedsSync, nullTime(c.LastSyncedAt), nullTime(c.DeletedAt), c.SyncPriority,
		c.ID)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("company %s: %w", c.ID, common.ErrNotFound)
	}
	return nil
}

func (r *CompanyRepo) ListActive(ctx context.Context) ([]*models.Company, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var result []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *CompanyRepo) ListPending(ctx context.Context) ([]*models.Company, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies
		 WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending companies: %w", err)
	}
	defer rows.Close()

	var result []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *CompanyRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE companies SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete company: %w", err)
	}
	return nil
}

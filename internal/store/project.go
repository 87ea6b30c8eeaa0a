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

type ProjectRepo struct {
	db dbx.DBTX
}

func NewProjectRepo(db dbx.DBTX) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `id, name, status, notes, address, start_date, end_date,
	company_id, client_id, team_member_ids, image_ids,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var start, end, lastSynced, deleted sql.NullTime
	var team, images string
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Notes, &p.Address, &start, &end,
		&p.CompanyID, &p.ClientID, &team, &images,
		&p.NeedsSync, &lastSynced, &deleted, &p.SyncPriority)
	if err != nil {
		return nil, err
	}
	p.StartDate = timePtr(start)
	p.EndDate = timePtr(end)
	p.TeamMemberIDs = models.DecodeIDs(team)
	p.ImageIDs = models.DecodeIDs(images)
	p.LastSyncedAt = timePtr(lastSynced)
	p.DeletedAt = timePtr(deleted)
	return &p, nil
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) Insert(ctx context.Context, p *models.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Status, p.Notes, p.Address, nullTime(p.StartDate), nullTime(p.EndDate),
		p.CompanyID, p.ClientID, models.EncodeIDs(p.TeamMemberIDs), models.EncodeIDs(p.ImageIDs),
		p.NeedsSync, nullTime(p.LastSyncedAt), nullTime(p.DeletedAt), p.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Save(ctx context.Context, p *models.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name=?, status=?, notes=?, address=?, start_date=?, end_date=?,
			company_id=?, client_id=?, team_member_ids=?, image_ids=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		p.Name, p.Status, p.Notes, p.Address, nullTime(p.StartDate), nullTime(p.EndDate),
		p.CompanyID, p.ClientID, models.EncodeIDs(p.TeamMemberIDs), models.EncodeIDs(p.ImageIDs),
		p.NeedsSync, nullTime(p.LastSyncedAt), nullTime(p.DeletedAt), p.SyncPriority,
		p.ID)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, common.ErrNotFound)
	}
	return nil
}

func (r *ProjectRepo) ListActive(ctx context.Context) ([]*models.Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE deleted_at IS NULL`)
}

func (r *ProjectRepo) ListPending(ctx context.Context) ([]*models.Project, error) {
	return r.list(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
}

func (r *ProjectRepo) list(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *ProjectRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete project: %w", err)
	}
	return nil
}

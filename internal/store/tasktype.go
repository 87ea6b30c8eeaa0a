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

type TaskTypeRepo struct {
	db dbx.DBTX
}

func NewTaskTypeRepo(db dbx.DBTX) *TaskTypeRepo {
	return &TaskTypeRepo{db: db}
}

const taskTypeColumns = `id, name, color, is_default, company_id,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanTaskType(row rowScanner) (*models.TaskType, error) {
	var tt models.TaskType
	var lastSynced, deleted sql.NullTime
	err := row.Scan(&tt.ID, &tt.Name, &tt.Color, &tt.IsDefault, &tt.CompanyID,
		&tt.NeedsSync, &lastSynced, &deleted, &tt.SyncPriority)
	if err != nil {
		return nil, err
	}
	tt.LastSyncedAt = timePtr(lastSynced)
	tt.DeletedAt = timePtr(deleted)
	return &tt, nil
}

func (r *TaskTypeRepo) Get(ctx context.Context, id string) (*models.TaskType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskTypeColumns+` FROM task_types WHERE id = ?`, id)
	tt, err := scanTaskType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task type %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task type: %w", err)
	}
	return tt, nil
}

func (r *TaskTypeRepo) Insert(ctx context.Context, tt *models.TaskType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_types (`+taskTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tt.ID, tt.Name, tt.Color, tt.IsDefault, tt.CompanyID,
		tt.NeedsSync, nullTime(tt.LastSyncedAt), nullTime(tt.DeletedAt), tt.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert task type: %w", err)
	}
	return nil
}

func (r *TaskTypeRepo) Save(ctx context.Context, tt *models.TaskType) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE task_types SET name=?, color=?, is_default=?, company_id=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		tt.Name, tt.Color, tt.IsDefault, tt.CompanyID,
		tt.NeedsSync, nullTime(tt.LastSyncedAt), nullTime(tt.DeletedAt), tt.SyncPriority,
		tt.ID)
	if err != nil {
		return fmt.Errorf("failed to save task type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task type %s: %w", tt.ID, common.ErrNotFound)
	}
	return nil
}

func (r *TaskTypeRepo) ListActive(ctx context.Context) ([]*models.TaskType, error) {
	return r.list(ctx, `SELECT `+taskTypeColumns+` FROM task_types WHERE deleted_at IS NULL`)
}

func (r *TaskTypeRepo) ListPending(ctx context.Context) ([]*models.TaskType, error) {
	return r.list(ctx,
		`SELECT `+taskTypeColumns+` FROM task_types WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
}

func (r *TaskTypeRepo) list(ctx context.Context, query string, args ...any) ([]*models.TaskType, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list task types: %w", err)
	}
	defer rows.Close()

	var result []*models.TaskType
	for rows.Next() {
		tt, err := scanTaskType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tt)
	}
	return result, rows.Err()
}

func (r *TaskTypeRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_types SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete task type: %w", err)
	}
	return nil
}

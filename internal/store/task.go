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

type TaskRepo struct {
	db dbx.DBTX
}

func NewTaskRepo(db dbx.DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, title, status, notes, due_date,
	project_id, task_type_id, event_id, team_member_ids, image_ids,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var due, lastSynced, deleted sql.NullTime
	var team, images string
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.Notes, &due,
		&t.ProjectID, &t.TaskTypeID, &t.EventID, &team, &images,
		&t.NeedsSync, &lastSynced, &deleted, &t.SyncPriority)
	if err != nil {
		return nil, err
	}
	t.DueDate = timePtr(due)
	t.TeamMemberIDs = models.DecodeIDs(team)
	t.ImageIDs = models.DecodeIDs(images)
	t.LastSyncedAt = timePtr(lastSynced)
	t.DeletedAt = timePtr(deleted)
	return &t, nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepo) Insert(ctx context.Context, t *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Status, t.Notes, nullTime(t.DueDate),
		t.ProjectID, t.TaskTypeID, t.EventID,
		models.EncodeIDs(t.TeamMemberIDs), models.EncodeIDs(t.ImageIDs),
		t.NeedsSync, nullTime(t.LastSyncedAt), nullTime(t.DeletedAt), t.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *TaskRepo) Save(ctx context.Context, t *models.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET title=?, status=?, notes=?, due_date=?,
			project_id=?, task_type_id=?, event_id=?, team_member_ids=?, image_ids=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		t.Title, t.Status, t.Notes, nullTime(t.DueDate),
		t.ProjectID, t.TaskTypeID, t.EventID,
		models.EncodeIDs(t.TeamMemberIDs), models.EncodeIDs(t.ImageIDs),
		t.NeedsSync, nullTime(t.LastSyncedAt), nullTime(t.DeletedAt), t.SyncPriority,
		t.ID)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, common.ErrNotFound)
	}
	return nil
}

func (r *TaskRepo) ListActive(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL`)
}

// ListByProject returns the active tasks of one project; used by the
// deletion cascade.
func (r *TaskRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted_at IS NULL AND project_id = ?`,
		projectID)
}

func (r *TaskRepo) ListPending(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *TaskRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete task: %w", err)
	}
	return nil
}

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

type EventRepo struct {
	db dbx.DBTX
}

func NewEventRepo(db dbx.DBTX) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `id, title, notes, starts_at, ends_at, all_day,
	project_id, task_id, team_member_ids,
	needs_sync, last_synced_at, deleted_at, sync_priority`

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	var lastSynced, deleted sql.NullTime
	var team string
	err := row.Scan(&e.ID, &e.Title, &e.Notes, &e.StartsAt, &e.EndsAt, &e.AllDay,
		&e.ProjectID, &e.TaskID, &team,
		&e.NeedsSync, &lastSynced, &deleted, &e.SyncPriority)
	if err != nil {
		return nil, err
	}
	e.TeamMemberIDs = models.DecodeIDs(team)
	e.LastSyncedAt = timePtr(lastSynced)
	e.DeletedAt = timePtr(deleted)
	return &e, nil
}

func (r *EventRepo) Get(ctx context.Context, id string) (*models.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *EventRepo) Insert(ctx context.Context, e *models.CalendarEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Notes, e.StartsAt, e.EndsAt, e.AllDay,
		e.ProjectID, e.TaskID, models.EncodeIDs(e.TeamMemberIDs),
		e.NeedsSync, nullTime(e.LastSyncedAt), nullTime(e.DeletedAt), e.SyncPriority)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventRepo) Save(ctx context.Context, e *models.CalendarEvent) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET title=?, notes=?, starts_at=?, ends_at=?, all_day=?,
			project_id=?, task_id=?, team_member_ids=?,
			needs_sync=?, last_synced_at=?, deleted_at=?, sync_priority=?
		WHERE id=?`,
		e.Title, e.Notes, e.StartsAt, e.EndsAt, e.AllDay,
		e.ProjectID, e.TaskID, models.EncodeIDs(e.TeamMemberIDs),
		e.NeedsSync, nullTime(e.LastSyncedAt), nullTime(e.DeletedAt), e.SyncPriority,
		e.ID)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", e.ID, common.ErrNotFound)
	}
	return nil
}

func (r *EventRepo) ListActive(ctx context.Context) ([]*models.CalendarEvent, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE deleted_at IS NULL`)
}

// ListByProject returns active events of one project; used by the deletion
// cascade.
func (r *EventRepo) ListByProject(ctx context.Context, projectID string) ([]*models.CalendarEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM events WHERE deleted_at IS NULL AND project_id = ?`,
		projectID)
}

// ListByTask returns active events linked to one task.
func (r *EventRepo) ListByTask(ctx context.Context, taskID string) ([]*models.CalendarEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM events WHERE deleted_at IS NULL AND task_id = ?`,
		taskID)
}

func (r *EventRepo) ListPending(ctx context.Context) ([]*models.CalendarEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM events WHERE needs_sync = 1 ORDER BY sync_priority DESC`)
}

func (r *EventRepo) list(ctx context.Context, query string, args ...any) ([]*models.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var result []*models.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *EventRepo) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete event: %w", err)
	}
	return nil
}

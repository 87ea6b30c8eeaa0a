package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/store"
)

// ReconcileDeletions soft-deletes local records of one entity type that
// the remote no longer returns. keeping holds the ids the remote did
// return; everything else active locally is a deletion candidate.
//
// Candidates are kept (not deleted) when any of these holds:
//   - the record never completed a round-trip (it only exists locally);
//   - the record last synced longer ago than the grace period, meaning it
//     may simply have fallen outside the remote's pull window;
//   - the record is a protected default task type.
//
// Deleting a project cascades to its tasks and events; deleting a task
// cascades to its events.
func (e *Engine) ReconcileDeletions(ctx context.Context, entity models.EntityType, keeping map[string]struct{}) (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.reconcileLocked(ctx, entity, keeping, time.Now())
}

func (e *Engine) reconcileLocked(ctx context.Context, entity models.EntityType, keeping map[string]struct{}, now time.Time) (int, error) {
	var deleted int
	err := e.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := reconcileEntity(ctx, tx, entity, keeping, now, e.grace)
		deleted = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reconciling %s deletions: %w", entity, err)
	}
	return deleted, nil
}

// shouldDelete applies the guards shared by every entity type.
func shouldDelete(m *models.SyncMeta, keeping map[string]struct{}, now time.Time, grace time.Duration) bool {
	if _, ok := keeping[m.ID]; ok {
		return false
	}
	if m.NeverSynced() {
		return false
	}
	if now.Sub(*m.LastSyncedAt) > grace {
		return false
	}
	return true
}

func reconcileEntity(ctx context.Context, tx dbx.DBTX, entity models.EntityType, keeping map[string]struct{}, now time.Time, grace time.Duration) (int, error) {
	switch entity {
	case models.EntityCompany:
		repo := store.NewCompanyRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, c := range list {
			if !shouldDelete(&c.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, c.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	case models.EntityUser:
		repo := store.NewUserRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, u := range list {
			if !shouldDelete(&u.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, u.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	case models.EntityClient:
		repo := store.NewClientRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, c := range list {
			if !shouldDelete(&c.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, c.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	case models.EntitySubClient:
		repo := store.NewSubClientRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, s := range list {
			if !shouldDelete(&s.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, s.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	case models.EntityTaskType:
		repo := store.NewTaskTypeRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, tt := range list {
			// Default types are provisioned with the company and never
			// inferred as deleted.
			if tt.IsDefault {
				continue
			}
			if !shouldDelete(&tt.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, tt.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	case models.EntityProject:
		repo := store.NewProjectRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, p := range list {
			if !shouldDelete(&p.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, p.ID, now); err != nil {
				return n, err
			}
			n++
			if err := cascadeProject(ctx, tx, p.ID, now); err != nil {
				return n, err
			}
		}
		return n, nil

	case models.EntityTask:
		repo := store.NewTaskRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, t := range list {
			if !shouldDelete(&t.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, t.ID, now); err != nil {
				return n, err
			}
			n++
			if err := cascadeTask(ctx, tx, t.ID, now); err != nil {
				return n, err
			}
		}
		return n, nil

	case models.EntityCalendarEvent:
		repo := store.NewEventRepo(tx)
		list, err := repo.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, ev := range list {
			if !shouldDelete(&ev.SyncMeta, keeping, now, grace) {
				continue
			}
			if err := repo.SoftDelete(ctx, ev.ID, now); err != nil {
				return n, err
			}
			n++
		}
		return n, nil

	default:
		return 0, fmt.Errorf("unknown entity type %q", entity)
	}
}

// cascadeProject soft-deletes the tasks and events of a deleted project.
// Children go unconditionally: a task cannot outlive its project.
func cascadeProject(ctx context.Context, tx dbx.DBTX, projectID string, now time.Time) error {
	tasks := store.NewTaskRepo(tx)
	list, err := tasks.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, t := range list {
		if err := tasks.SoftDelete(ctx, t.ID, now); err != nil {
			return err
		}
		if err := cascadeTask(ctx, tx, t.ID, now); err != nil {
			return err
		}
	}

	events := store.NewEventRepo(tx)
	evs, err := events.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if err := events.SoftDelete(ctx, ev.ID, now); err != nil {
			return err
		}
	}
	return nil
}

// cascadeTask soft-deletes the events scheduled for a deleted task.
func cascadeTask(ctx context.Context, tx dbx.DBTX, taskID string, now time.Time) error {
	events := store.NewEventRepo(tx)
	evs, err := events.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if err := events.SoftDelete(ctx, ev.ID, now); err != nil {
			return err
		}
	}
	return nil
}

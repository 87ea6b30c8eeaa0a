package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
	"github.com/avoskresensky/fieldsync/internal/store"
)

// pull fetches every remote record for one entity type, upserts the batch
// inside a single transaction under writeMu, then (for unscoped pulls with
// reconcile set) soft-deletes local records absent from the remote.
//
// The fetch happens outside the lock: remote calls for different entity
// types may overlap, only store write-backs are serialized.
func pull[R any](
	ctx context.Context,
	e *Engine,
	scope remote.Scope,
	reconcile bool,
	entity models.EntityType,
	fetch func(context.Context, remote.Scope) ([]R, error),
	recID func(R) string,
	upsert func(context.Context, dbx.DBTX, R, time.Time) error,
) error {
	records, err := fetch(ctx, scope)
	if err != nil {
		return fmt.Errorf("pulling %ss: %w", entity, err)
	}

	now := time.Now()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	err = e.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range records {
			if err := upsert(ctx, tx, rec, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting %ss: %w", entity, err)
	}
	e.log.Debug(ctx, "entity pull complete", "entity", entity, "records", len(records))

	// Reconciliation needs the complete remote picture for the entity; a
	// changed-since pull does not have one.
	if !reconcile || scope.Since != nil {
		return nil
	}

	keeping := make(map[string]struct{}, len(records))
	for _, rec := range records {
		keeping[recID(rec)] = struct{}{}
	}
	n, err := e.reconcileLocked(ctx, entity, keeping, now)
	if err != nil {
		return err
	}
	if n > 0 {
		e.log.Info(ctx, "reconciled remote deletions", "entity", entity, "count", n)
	}
	return nil
}

func (e *Engine) pullCompanies(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityCompany,
		e.api.Companies.FetchAll,
		func(r remote.CompanyRecord) string { return r.ID },
		e.upsertCompany)
}

func (e *Engine) pullUsers(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityUser,
		e.api.Users.FetchAll,
		func(r remote.UserRecord) string { return r.ID },
		e.upsertUser)
}

func (e *Engine) pullClients(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityClient,
		e.api.Clients.FetchAll,
		func(r remote.ClientRecord) string { return r.ID },
		e.upsertClient)
}

func (e *Engine) pullSubClients(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntitySubClient,
		e.api.SubClients.FetchAll,
		func(r remote.SubClientRecord) string { return r.ID },
		e.upsertSubClient)
}

func (e *Engine) pullTaskTypes(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityTaskType,
		e.api.TaskTypes.FetchAll,
		func(r remote.TaskTypeRecord) string { return r.ID },
		e.upsertTaskType)
}

func (e *Engine) pullProjects(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityProject,
		e.api.Projects.FetchAll,
		func(r remote.ProjectRecord) string { return r.ID },
		e.upsertProject)
}

func (e *Engine) pullTasks(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityTask,
		e.api.Tasks.FetchAll,
		func(r remote.TaskRecord) string { return r.ID },
		e.upsertTask)
}

func (e *Engine) pullEvents(ctx context.Context, scope remote.Scope, reconcile bool) error {
	return pull(ctx, e, scope, reconcile, models.EntityCalendarEvent,
		e.api.Events.FetchAll,
		func(r remote.EventRecord) string { return r.ID },
		e.upsertEvent)
}

// Each upsert follows the same contract: insert unknown records as synced,
// leave the domain fields of dirty records alone (local edits win until
// the pending flush confirms them), otherwise apply the remote copy and
// mark the round-trip. Server-owned id lists are refreshed even on dirty
// records, and a record restored on the remote loses its local soft-delete
// marker.

func (e *Engine) upsertCompany(ctx context.Context, tx dbx.DBTX, rec remote.CompanyRecord, now time.Time) error {
	repo := store.NewCompanyRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		c := companyFromRecord(rec)
		c.MarkSynced(now)
		return repo.Insert(ctx, c)
	}
	if err != nil {
		return err
	}

	e.evictRemoved(ctx, local.ImageIDs, rec.ImageIDs)

	if local.NeedsSync {
		local.TeamMemberIDs = rec.TeamMemberIDs
		local.ImageIDs = rec.ImageIDs
		return repo.Save(ctx, local)
	}

	applyCompanyRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertUser(ctx context.Context, tx dbx.DBTX, rec remote.UserRecord, now time.Time) error {
	repo := store.NewUserRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		u := userFromRecord(rec)
		u.MarkSynced(now)
		return repo.Insert(ctx, u)
	}
	if err != nil {
		return err
	}

	if local.NeedsSync {
		return nil
	}

	applyUserRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertClient(ctx context.Context, tx dbx.DBTX, rec remote.ClientRecord, now time.Time) error {
	repo := store.NewClientRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		c := clientFromRecord(rec)
		c.MarkSynced(now)
		return repo.Insert(ctx, c)
	}
	if err != nil {
		return err
	}

	if local.NeedsSync {
		return nil
	}

	applyClientRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertSubClient(ctx context.Context, tx dbx.DBTX, rec remote.SubClientRecord, now time.Time) error {
	repo := store.NewSubClientRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		s := subClientFromRecord(rec)
		s.MarkSynced(now)
		return repo.Insert(ctx, s)
	}
	if err != nil {
		return err
	}

	if local.NeedsSync {
		return nil
	}

	applySubClientRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertTaskType(ctx context.Context, tx dbx.DBTX, rec remote.TaskTypeRecord, now time.Time) error {
	repo := store.NewTaskTypeRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		tt := taskTypeFromRecord(rec)
		tt.MarkSynced(now)
		return repo.Insert(ctx, tt)
	}
	if err != nil {
		return err
	}

	if local.NeedsSync {
		return nil
	}

	applyTaskTypeRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertProject(ctx context.Context, tx dbx.DBTX, rec remote.ProjectRecord, now time.Time) error {
	repo := store.NewProjectRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		p := projectFromRecord(rec)
		p.MarkSynced(now)
		return repo.Insert(ctx, p)
	}
	if err != nil {
		return err
	}

	e.evictRemoved(ctx, local.ImageIDs, rec.ImageIDs)

	if local.NeedsSync {
		local.TeamMemberIDs = rec.TeamMemberIDs
		local.ImageIDs = rec.ImageIDs
		return repo.Save(ctx, local)
	}

	applyProjectRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertTask(ctx context.Context, tx dbx.DBTX, rec remote.TaskRecord, now time.Time) error {
	repo := store.NewTaskRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		t := taskFromRecord(rec)
		t.MarkSynced(now)
		return repo.Insert(ctx, t)
	}
	if err != nil {
		return err
	}

	e.evictRemoved(ctx, local.ImageIDs, rec.ImageIDs)

	if local.NeedsSync {
		local.TeamMemberIDs = rec.TeamMemberIDs
		local.ImageIDs = rec.ImageIDs
		return repo.Save(ctx, local)
	}

	applyTaskRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

func (e *Engine) upsertEvent(ctx context.Context, tx dbx.DBTX, rec remote.EventRecord, now time.Time) error {
	repo := store.NewEventRepo(tx)
	local, err := repo.Get(ctx, rec.ID)
	if errors.Is(err, common.ErrNotFound) {
		ev := eventFromRecord(rec)
		ev.MarkSynced(now)
		return repo.Insert(ctx, ev)
	}
	if err != nil {
		return err
	}

	if local.NeedsSync {
		local.TeamMemberIDs = rec.TeamMemberIDs
		return repo.Save(ctx, local)
	}

	applyEventRecord(local, rec)
	local.DeletedAt = nil
	local.MarkSynced(now)
	return repo.Save(ctx, local)
}

// evictRemoved drops cached artifacts whose ids disappeared from a
// wholesale-replaced remote list.
func (e *Engine) evictRemoved(ctx context.Context, prev, next []string) {
	removed := models.RemovedIDs(prev, next)
	for _, id := range removed {
		e.cache.Evict(id)
	}
	if len(removed) > 0 {
		e.log.Debug(ctx, "evicted cached artifacts", "count", len(removed))
	}
}

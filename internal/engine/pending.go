package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
	"github.com/avoskresensky/fieldsync/internal/store"
)

// pushSet bundles everything the flush needs for one entity type: the
// pending query, metadata access, record conversion and the remote
// repository. One instance per entity keeps the generic machinery below
// free of switches.
type pushSet[M any, R any] struct {
	entity       models.EntityType
	listPending  func(context.Context) ([]M, error)
	get          func(context.Context, string) (M, error)
	meta         func(M) *models.SyncMeta
	toRecord     func(M) R
	recID        func(R) string
	updateFields func(M) map[string]any
	repo         remote.Repository[R]
	save         func(context.Context, dbx.DBTX, M) error
}

// FlushPending pushes every local record with pending mutations, entity
// types in dependency order so a newly created parent carries its
// server-assigned id before children referencing it are pushed. Within an
// entity type records fan out concurrently (bounded by the batch size) and
// one record's failure never blocks its siblings: the failed record keeps
// its dirty flag for the next flush. Returns the number of mutations
// confirmed.
func (e *Engine) FlushPending(ctx context.Context) (int, error) {
	total := 0
	for _, flush := range []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.companyPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.userPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.clientPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.subClientPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.taskTypePushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.projectPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.taskPushSet()) },
		func(ctx context.Context) (int, error) { return flushEntity(ctx, e, e.eventPushSet()) },
	} {
		n, err := flush(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// flushEntity flushes one entity type's pending records. Remote calls run
// concurrently; write-backs serialize through writeMu inside pushRecord.
// Only local-store failures propagate; remote-call failures are logged and
// the record left dirty.
func flushEntity[M any, R any](ctx context.Context, e *Engine, ps pushSet[M, R]) (int, error) {
	pending, err := ps.listPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending %ss: %w", ps.entity, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var flushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pendingBatchSize)
	for _, m := range pending {
		g.Go(func() error {
			if err := pushRecord(gctx, e, ps, m); err != nil {
				e.log.Warn(gctx, "pending mutation push failed",
					"entity", ps.entity, "id", ps.meta(m).ID, "error", err)
				return nil
			}
			flushed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(flushed.Load()), err
	}
	e.log.Debug(ctx, "pending flush complete",
		"entity", ps.entity, "pending", len(pending), "flushed", flushed.Load())
	return int(flushed.Load()), nil
}

// pushRecord pushes one record's pending state. A nil LastSyncedAt marks
// the record's first appearance on the remote: it gets a create call, and
// the server-assigned id replaces the temporary one everywhere it is
// referenced, inside the same transaction that confirms the sync.
func pushRecord[M any, R any](ctx context.Context, e *Engine, ps pushSet[M, R], m M) error {
	meta := ps.meta(m)
	now := time.Now()

	switch {
	case meta.IsDeleted():
		// A record deleted before its first round-trip never existed
		// upstream; nothing to tell the remote.
		if !meta.NeverSynced() {
			if err := ps.repo.Delete(ctx, meta.ID); err != nil && !remote.IsNotFound(err) {
				return err
			}
		}
		return confirmPush(ctx, e, ps, m, now)

	case meta.NeverSynced():
		created, err := ps.repo.Create(ctx, ps.toRecord(m))
		if err != nil {
			return err
		}
		newID := ps.recID(created)

		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		return e.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			if newID != "" && newID != meta.ID {
				if err := store.RewriteID(ctx, tx, ps.entity, meta.ID, newID); err != nil {
					return err
				}
				meta.ID = newID
			}
			meta.MarkSynced(now)
			return ps.save(ctx, tx, m)
		})

	default:
		if err := ps.repo.Update(ctx, meta.ID, ps.updateFields(m)); err != nil {
			return err
		}
		return confirmPush(ctx, e, ps, m, now)
	}
}

func confirmPush[M any, R any](ctx context.Context, e *Engine, ps pushSet[M, R], m M, now time.Time) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		ps.meta(m).MarkSynced(now)
		return ps.save(ctx, tx, m)
	})
}

// pushOne is the direct, user-awaited single-record push. Unlike the
// flush, every failure propagates: a vanished local record surfaces
// ErrNotFound because the caller is waiting for confirmation.
func pushOne[M any, R any](ctx context.Context, e *Engine, ps pushSet[M, R], id string) error {
	if !e.monitor.IsConnected() {
		return common.ErrNotConnected
	}
	m, err := ps.get(ctx, id)
	if err != nil {
		return err
	}
	return pushRecord(ctx, e, ps, m)
}

// PushCompany pushes one company's pending state immediately.
func (e *Engine) PushCompany(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.companyPushSet(), id)
}

func (e *Engine) PushUser(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.userPushSet(), id)
}

func (e *Engine) PushClient(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.clientPushSet(), id)
}

func (e *Engine) PushSubClient(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.subClientPushSet(), id)
}

func (e *Engine) PushTaskType(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.taskTypePushSet(), id)
}

func (e *Engine) PushProject(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.projectPushSet(), id)
}

func (e *Engine) PushTask(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.taskPushSet(), id)
}

func (e *Engine) PushEvent(ctx context.Context, id string) error {
	return pushOne(ctx, e, e.eventPushSet(), id)
}

func (e *Engine) companyPushSet() pushSet[*models.Company, remote.CompanyRecord] {
	return pushSet[*models.Company, remote.CompanyRecord]{
		entity:       models.EntityCompany,
		listPending:  e.store.Companies.ListPending,
		get:          e.store.Companies.Get,
		meta:         func(c *models.Company) *models.SyncMeta { return &c.SyncMeta },
		toRecord:     companyToRecord,
		recID:        func(r remote.CompanyRecord) string { return r.ID },
		updateFields: companyUpdateFields,
		repo:         e.api.Companies,
		save: func(ctx context.Context, tx dbx.DBTX, c *models.Company) error {
			return store.NewCompanyRepo(tx).Save(ctx, c)
		},
	}
}

func (e *Engine) userPushSet() pushSet[*models.User, remote.UserRecord] {
	return pushSet[*models.User, remote.UserRecord]{
		entity:       models.EntityUser,
		listPending:  e.store.Users.ListPending,
		get:          e.store.Users.Get,
		meta:         func(u *models.User) *models.SyncMeta { return &u.SyncMeta },
		toRecord:     userToRecord,
		recID:        func(r remote.UserRecord) string { return r.ID },
		updateFields: userUpdateFields,
		repo:         e.api.Users,
		save: func(ctx context.Context, tx dbx.DBTX, u *models.User) error {
			return store.NewUserRepo(tx).Save(ctx, u)
		},
	}
}

func (e *Engine) clientPushSet() pushSet[*models.Client, remote.ClientRecord] {
	return pushSet[*models.Client, remote.ClientRecord]{
		entity:       models.EntityClient,
		listPending:  e.store.Clients.ListPending,
		get:          e.store.Clients.Get,
		meta:         func(c *models.Client) *models.SyncMeta { return &c.SyncMeta },
		toRecord:     clientToRecord,
		recID:        func(r remote.ClientRecord) string { return r.ID },
		updateFields: clientUpdateFields,
		repo:         e.api.Clients,
		save: func(ctx context.Context, tx dbx.DBTX, c *models.Client) error {
			return store.NewClientRepo(tx).Save(ctx, c)
		},
	}
}

func (e *Engine) subClientPushSet() pushSet[*models.SubClient, remote.SubClientRecord] {
	return pushSet[*models.SubClient, remote.SubClientRecord]{
		entity:       models.EntitySubClient,
		listPending:  e.store.SubClients.ListPending,
		get:          e.store.SubClients.Get,
		meta:         func(s *models.SubClient) *models.SyncMeta { return &s.SyncMeta },
		toRecord:     subClientToRecord,
		recID:        func(r remote.SubClientRecord) string { return r.ID },
		updateFields: subClientUpdateFields,
		repo:         e.api.SubClients,
		save: func(ctx context.Context, tx dbx.DBTX, s *models.SubClient) error {
			return store.NewSubClientRepo(tx).Save(ctx, s)
		},
	}
}

func (e *Engine) taskTypePushSet() pushSet[*models.TaskType, remote.TaskTypeRecord] {
	return pushSet[*models.TaskType, remote.TaskTypeRecord]{
		entity:       models.EntityTaskType,
		listPending:  e.store.TaskTypes.ListPending,
		get:          e.store.TaskTypes.Get,
		meta:         func(tt *models.TaskType) *models.SyncMeta { return &tt.SyncMeta },
		toRecord:     taskTypeToRecord,
		recID:        func(r remote.TaskTypeRecord) string { return r.ID },
		updateFields: taskTypeUpdateFields,
		repo:         e.api.TaskTypes,
		save: func(ctx context.Context, tx dbx.DBTX, tt *models.TaskType) error {
			return store.NewTaskTypeRepo(tx).Save(ctx, tt)
		},
	}
}

func (e *Engine) projectPushSet() pushSet[*models.Project, remote.ProjectRecord] {
	return pushSet[*models.Project, remote.ProjectRecord]{
		entity:       models.EntityProject,
		listPending:  e.store.Projects.ListPending,
		get:          e.store.Projects.Get,
		meta:         func(p *models.Project) *models.SyncMeta { return &p.SyncMeta },
		toRecord:     projectToRecord,
		recID:        func(r remote.ProjectRecord) string { return r.ID },
		updateFields: projectUpdateFields,
		repo:         e.api.Projects,
		save: func(ctx context.Context, tx dbx.DBTX, p *models.Project) error {
			return store.NewProjectRepo(tx).Save(ctx, p)
		},
	}
}

func (e *Engine) taskPushSet() pushSet[*models.Task, remote.TaskRecord] {
	return pushSet[*models.Task, remote.TaskRecord]{
		entity:       models.EntityTask,
		listPending:  e.store.Tasks.ListPending,
		get:          e.store.Tasks.Get,
		meta:         func(t *models.Task) *models.SyncMeta { return &t.SyncMeta },
		toRecord:     taskToRecord,
		recID:        func(r remote.TaskRecord) string { return r.ID },
		updateFields: taskUpdateFields,
		repo:         e.api.Tasks,
		save: func(ctx context.Context, tx dbx.DBTX, t *models.Task) error {
			return store.NewTaskRepo(tx).Save(ctx, t)
		},
	}
}

func (e *Engine) eventPushSet() pushSet[*models.CalendarEvent, remote.EventRecord] {
	return pushSet[*models.CalendarEvent, remote.EventRecord]{
		entity:       models.EntityCalendarEvent,
		listPending:  e.store.Events.ListPending,
		get:          e.store.Events.Get,
		meta:         func(ev *models.CalendarEvent) *models.SyncMeta { return &ev.SyncMeta },
		toRecord:     eventToRecord,
		recID:        func(r remote.EventRecord) string { return r.ID },
		updateFields: eventUpdateFields,
		repo:         e.api.Events,
		save: func(ctx context.Context, tx dbx.DBTX, ev *models.CalendarEvent) error {
			return store.NewEventRepo(tx).Save(ctx, ev)
		},
	}
}

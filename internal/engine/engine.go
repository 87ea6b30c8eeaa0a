// Package engine implements the offline-first synchronization core: pull
// with upsert and deletion reconciliation, push of pending local
// mutations, relationship linking, and the single-flight orchestration of
// the three sync modes.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avoskresensky/fieldsync/internal/blobcache"
	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/connectivity"
	"github.com/avoskresensky/fieldsync/internal/logging"
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
	"github.com/avoskresensky/fieldsync/internal/store"
)

// Options tune engine policy. Zero values fall back to defaults.
type Options struct {
	// GracePeriod bounds deletion reconciliation: a record last synced
	// longer ago than this is presumed to have fallen outside the pull
	// window and is kept. Default 30 days.
	GracePeriod time.Duration

	// PendingBatchSize bounds concurrent remote calls during a pending
	// flush. Default 10.
	PendingBatchSize int

	// LinkAfterRefresh re-runs the relationship linker after a background
	// refresh. Default off; records first seen during a refresh then stay
	// unlinked until the next full pass.
	LinkAfterRefresh bool

	// OnStatus, when set, receives every published status checkpoint.
	OnStatus func(Status)

	// Cache receives evictions when remote image lists drop entries.
	Cache blobcache.Cache
}

// Engine is the synchronization core. All local-store write-backs are
// serialized through writeMu (the single owner context); remote calls may
// fan out concurrently.
type Engine struct {
	store   *store.Store
	api     *remote.API
	monitor connectivity.Monitor
	cache   blobcache.Cache
	log     logging.Logger

	grace            time.Duration
	pendingBatchSize int
	linkAfterRefresh bool

	syncing atomic.Bool
	writeMu sync.Mutex

	statusMu sync.Mutex
	status   Status
	onStatus func(Status)

	graphMu sync.RWMutex
	graph   *models.Graph
}

func New(st *store.Store, api *remote.API, monitor connectivity.Monitor, log logging.Logger, opts Options) *Engine {
	e := &Engine{
		store:            st,
		api:              api,
		monitor:          monitor,
		log:              log,
		grace:            opts.GracePeriod,
		pendingBatchSize: opts.PendingBatchSize,
		linkAfterRefresh: opts.LinkAfterRefresh,
		onStatus:         opts.OnStatus,
		cache:            opts.Cache,
		graph:            models.NewGraph(),
	}
	if e.grace <= 0 {
		e.grace = 30 * 24 * time.Hour
	}
	if e.pendingBatchSize <= 0 {
		e.pendingBatchSize = 10
	}
	if e.cache == nil {
		e.cache = blobcache.Null{}
	}
	return e
}

// Graph returns the object graph built by the last linker run. It is
// derived state: between an upsert phase and the next linker run it may
// lag the store.
func (e *Engine) Graph() *models.Graph {
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return e.graph
}

// scope resolves the pull scope from local metadata. A missing company or
// user id means the replica was never bootstrapped and no scoped pull can
// be built.
func (e *Engine) scope(ctx context.Context) (remote.Scope, error) {
	companyID, err := e.store.Metadata.Get(ctx, store.MetaCompanyID)
	if err != nil {
		return remote.Scope{}, err
	}
	userID, err := e.store.Metadata.Get(ctx, store.MetaUserID)
	if err != nil {
		return remote.Scope{}, err
	}
	if companyID == "" || userID == "" {
		return remote.Scope{}, common.ErrMissingScope
	}
	return remote.Scope{CompanyID: companyID, UserID: userID}, nil
}

// run is the single-flight wrapper every sync mode goes through.
// Connectivity and the syncing flag are both checked at entry; the flag is
// always reset on the way out.
func (e *Engine) run(ctx context.Context, mode string, fn func(ctx context.Context) error) error {
	if !e.monitor.IsConnected() {
		return common.ErrNotConnected
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return common.ErrAlreadySyncing
	}
	defer e.syncing.Store(false)

	e.log.Info(ctx, "sync pass starting", "mode", mode)
	e.publish(Status{InProgress: true, Stage: "starting " + mode + " sync"})

	if err := fn(ctx); err != nil {
		e.log.Error(ctx, "sync pass failed", "mode", mode, "error", err)
		e.publish(Status{Stage: mode + " sync failed", HasError: true, LastError: err.Error()})
		return err
	}

	e.log.Info(ctx, "sync pass complete", "mode", mode)
	e.publish(Status{Stage: mode + " sync complete", Progress: 1})
	return nil
}

// pullStep is one entity type's pull within an orchestrated pass.
type pullStep struct {
	entity models.EntityType
	fn     func(ctx context.Context, scope remote.Scope, reconcile bool) error
}

// steps returns the full dependency-ordered pull sequence: parents before
// children, so linking and cascades always find parents locally.
func (e *Engine) steps() []pullStep {
	return []pullStep{
		{models.EntityCompany, e.pullCompanies},
		{models.EntityUser, e.pullUsers},
		{models.EntityClient, e.pullClients},
		{models.EntitySubClient, e.pullSubClients},
		{models.EntityTaskType, e.pullTaskTypes},
		{models.EntityProject, e.pullProjects},
		{models.EntityTask, e.pullTasks},
		{models.EntityCalendarEvent, e.pullEvents},
	}
}

func (e *Engine) runSteps(ctx context.Context, scope remote.Scope, steps []pullStep, reconcile bool) error {
	total := len(steps)
	for i, step := range steps {
		e.publish(Status{
			InProgress: true,
			Stage:      fmt.Sprintf("syncing %ss", step.entity),
			Progress:   float64(i) / float64(total),
		})
		if err := step.fn(ctx, scope, reconcile); err != nil {
			// Abort the remainder; earlier entity types stay committed.
			return err
		}
	}
	return nil
}

// FullSync pushes pending local mutations, pulls every entity type in
// dependency order with deletion reconciliation, then rebuilds the object
// graph.
func (e *Engine) FullSync(ctx context.Context) error {
	return e.run(ctx, "full", func(ctx context.Context) error {
		scope, err := e.scope(ctx)
		if err != nil {
			return err
		}

		if n, err := e.FlushPending(ctx); err != nil {
			return err
		} else if n > 0 {
			e.log.Info(ctx, "pushed pending mutations", "count", n)
		}

		if err := e.runSteps(ctx, scope, e.steps(), true); err != nil {
			return err
		}

		if _, err := e.LinkAll(ctx); err != nil {
			return err
		}

		return e.store.Metadata.SetTime(ctx, store.MetaLastFullSync, time.Now())
	})
}

// LaunchSync awaits only the critical-path entities so application launch
// is not blocked on the long tail; the remainder runs best-effort in the
// background with failures swallowed.
func (e *Engine) LaunchSync(ctx context.Context) error {
	return e.run(ctx, "launch", func(ctx context.Context) error {
		scope, err := e.scope(ctx)
		if err != nil {
			return err
		}

		if _, err := e.FlushPending(ctx); err != nil {
			return err
		}

		critical := []pullStep{
			{models.EntityCompany, e.pullCompanies},
			{models.EntityUser, e.pullUsers},
			{models.EntityProject, e.pullProjects},
			{models.EntityCalendarEvent, e.pullEvents},
		}
		if err := e.runSteps(ctx, scope, critical, true); err != nil {
			return err
		}
		if _, err := e.LinkAll(ctx); err != nil {
			return err
		}

		// Non-critical tail: dispatched, not awaited. Write-backs stay
		// serialized through writeMu, so overlap with later passes is safe.
		go e.launchTail(context.WithoutCancel(ctx), scope)

		return nil
	})
}

func (e *Engine) launchTail(ctx context.Context, scope remote.Scope) {
	tail := []pullStep{
		{models.EntityClient, e.pullClients},
		{models.EntitySubClient, e.pullSubClients},
		{models.EntityTaskType, e.pullTaskTypes},
		{models.EntityTask, e.pullTasks},
	}
	for _, step := range tail {
		if err := step.fn(ctx, scope, true); err != nil {
			e.log.Warn(ctx, "best-effort launch sync failed", "entity", step.entity, "error", err)
			return
		}
	}
	if _, err := e.LinkAll(ctx); err != nil {
		e.log.Warn(ctx, "relinking after launch tail failed", "error", err)
	}
}

// BackgroundRefresh pulls only entities likely to have changed since the
// last successful pass, scoped by a changed-since filter. It never runs
// deletion reconciliation (the pull is scope-limited) and by default does
// not relink.
func (e *Engine) BackgroundRefresh(ctx context.Context) error {
	return e.run(ctx, "refresh", func(ctx context.Context) error {
		scope, err := e.scope(ctx)
		if err != nil {
			return err
		}

		since, err := e.lastSyncMark(ctx)
		if err != nil {
			return err
		}
		scope.Since = since

		if _, err := e.FlushPending(ctx); err != nil {
			return err
		}

		steps := []pullStep{
			{models.EntityProject, e.pullProjects},
			{models.EntityTask, e.pullTasks},
			{models.EntityCalendarEvent, e.pullEvents},
		}
		if err := e.runSteps(ctx, scope, steps, false); err != nil {
			return err
		}

		if e.linkAfterRefresh {
			if _, err := e.LinkAll(ctx); err != nil {
				return err
			}
		}

		return e.store.Metadata.SetTime(ctx, store.MetaLastRefreshAt, time.Now())
	})
}

// lastSyncMark returns the more recent of the full-sync and refresh marks,
// or nil when neither exists (first refresh then pulls everything).
func (e *Engine) lastSyncMark(ctx context.Context) (*time.Time, error) {
	full, err := e.store.Metadata.GetTime(ctx, store.MetaLastFullSync)
	if err != nil {
		return nil, err
	}
	refresh, err := e.store.Metadata.GetTime(ctx, store.MetaLastRefreshAt)
	if err != nil {
		return nil, err
	}
	switch {
	case full == nil:
		return refresh, nil
	case refresh == nil:
		return full, nil
	case refresh.After(*full):
		return refresh, nil
	default:
		return full, nil
	}
}

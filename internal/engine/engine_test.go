package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/connectivity"
	"github.com/avoskresensky/fieldsync/internal/logging"
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
	"github.com/avoskresensky/fieldsync/internal/store"
)

// fakeRepo implements remote.Repository with overridable behavior per
// operation. Unset operations succeed with zero values.
type fakeRepo[R any] struct {
	fetchAllFn func(ctx context.Context, scope remote.Scope) ([]R, error)
	fetchOneFn func(ctx context.Context, id string) (R, error)
	createFn   func(ctx context.Context, rec R) (R, error)
	updateFn   func(ctx context.Context, id string, fields map[string]any) error
	deleteFn   func(ctx context.Context, id string) error
}

func (f *fakeRepo[R]) FetchAll(ctx context.Context, scope remote.Scope) ([]R, error) {
	if f.fetchAllFn == nil {
		return nil, nil
	}
	return f.fetchAllFn(ctx, scope)
}

func (f *fakeRepo[R]) FetchOne(ctx context.Context, id string) (R, error) {
	if f.fetchOneFn == nil {
		var zero R
		return zero, &remote.StatusError{Code: 404}
	}
	return f.fetchOneFn(ctx, id)
}

func (f *fakeRepo[R]) Create(ctx context.Context, rec R) (R, error) {
	if f.createFn == nil {
		return rec, nil
	}
	return f.createFn(ctx, rec)
}

func (f *fakeRepo[R]) Update(ctx context.Context, id string, fields map[string]any) error {
	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(ctx, id, fields)
}

func (f *fakeRepo[R]) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

type fakePinger struct{}

func (fakePinger) Ping(context.Context) error { return nil }

// fakeAPI holds the typed fakes so tests can override individual
// operations, plus the assembled remote.API handed to the engine.
type fakeAPI struct {
	companies  *fakeRepo[remote.CompanyRecord]
	users      *fakeRepo[remote.UserRecord]
	clients    *fakeRepo[remote.ClientRecord]
	subclients *fakeRepo[remote.SubClientRecord]
	taskTypes  *fakeRepo[remote.TaskTypeRecord]
	projects   *fakeRepo[remote.ProjectRecord]
	tasks      *fakeRepo[remote.TaskRecord]
	events     *fakeRepo[remote.EventRecord]

	api *remote.API
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		companies:  &fakeRepo[remote.CompanyRecord]{},
		users:      &fakeRepo[remote.UserRecord]{},
		clients:    &fakeRepo[remote.ClientRecord]{},
		subclients: &fakeRepo[remote.SubClientRecord]{},
		taskTypes:  &fakeRepo[remote.TaskTypeRecord]{},
		projects:   &fakeRepo[remote.ProjectRecord]{},
		tasks:      &fakeRepo[remote.TaskRecord]{},
		events:     &fakeRepo[remote.EventRecord]{},
	}
	f.api = &remote.API{
		Companies:  f.companies,
		Users:      f.users,
		Clients:    f.clients,
		SubClients: f.subclients,
		TaskTypes:  f.taskTypes,
		Projects:   f.projects,
		Tasks:      f.tasks,
		Events:     f.events,
		Pinger:     fakePinger{},
	}
	return f
}

// fakeCache records evictions.
type fakeCache struct {
	mu      sync.Mutex
	evicted []string
}

func (c *fakeCache) Get(string) ([]byte, bool) { return nil, false }
func (c *fakeCache) Set(string, []byte) error  { return nil }
func (c *fakeCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = append(c.evicted, key)
}

func (c *fakeCache) evictedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.evicted...)
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestEngine(t *testing.T, f *fakeAPI, opts Options) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, f.api, connectivity.Static(true), discardLogger(), opts), st
}

func setScope(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Metadata.Set(ctx, store.MetaCompanyID, "c1"))
	require.NoError(t, st.Metadata.Set(ctx, store.MetaUserID, "u1"))
}

func TestFullSync_RequiresScope(t *testing.T) {
	eng, _ := newTestEngine(t, newFakeAPI(), Options{})
	err := eng.FullSync(context.Background())
	assert.ErrorIs(t, err, common.ErrMissingScope)
}

func TestFullSync_RequiresConnectivity(t *testing.T) {
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	eng := New(st, newFakeAPI().api, connectivity.Static(false), discardLogger(), Options{})
	assert.ErrorIs(t, eng.FullSync(context.Background()), common.ErrNotConnected)
}

func TestFullSync_SecondCallerRejectedWhileRunning(t *testing.T) {
	f := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	f.companies.fetchAllFn = func(context.Context, remote.Scope) ([]remote.CompanyRecord, error) {
		startedOnce.Do(func() { close(started) })
		<-release
		return nil, nil
	}

	eng, st := newTestEngine(t, f, Options{})
	setScope(t, st)

	first := make(chan error, 1)
	go func() { first <- eng.FullSync(context.Background()) }()

	<-started
	assert.ErrorIs(t, eng.FullSync(context.Background()), common.ErrAlreadySyncing)

	close(release)
	require.NoError(t, <-first)

	// The flag resets once the pass finishes.
	require.NoError(t, eng.FullSync(context.Background()))
}

func TestFullSync_SetsSyncMarkAndStatus(t *testing.T) {
	var last Status
	eng, st := newTestEngine(t, newFakeAPI(), Options{OnStatus: func(s Status) { last = s }})
	setScope(t, st)

	require.NoError(t, eng.FullSync(context.Background()))

	mark, err := st.Metadata.GetTime(context.Background(), store.MetaLastFullSync)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.WithinDuration(t, time.Now(), *mark, 5*time.Second)

	assert.False(t, last.InProgress)
	assert.False(t, last.HasError)
	assert.Equal(t, float64(1), last.Progress)
}

func TestFullSync_AbortsOnEntityFailureKeepingEarlierCommits(t *testing.T) {
	f := newFakeAPI()
	f.companies.fetchAllFn = func(context.Context, remote.Scope) ([]remote.CompanyRecord, error) {
		return []remote.CompanyRecord{{ID: "c1", Name: "Acme Field Services"}}, nil
	}
	boom := errors.New("backend exploded")
	f.clients.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ClientRecord, error) {
		return nil, boom
	}

	eng, st := newTestEngine(t, f, Options{})
	setScope(t, st)

	err := eng.FullSync(context.Background())
	assert.ErrorIs(t, err, boom)

	// Companies synced before the failure stay committed.
	c, err := st.Companies.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Field Services", c.Name)

	assert.True(t, eng.Status().HasError)

	mark, err := st.Metadata.GetTime(context.Background(), store.MetaLastFullSync)
	require.NoError(t, err)
	assert.Nil(t, mark, "failed pass must not advance the sync mark")
}

func TestBackgroundRefresh_ScopesByLastSyncMark(t *testing.T) {
	f := newFakeAPI()
	var gotSince *time.Time
	f.projects.fetchAllFn = func(_ context.Context, scope remote.Scope) ([]remote.ProjectRecord, error) {
		gotSince = scope.Since
		return nil, nil
	}

	eng, st := newTestEngine(t, f, Options{})
	setScope(t, st)

	mark := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, st.Metadata.SetTime(context.Background(), store.MetaLastFullSync, mark))

	require.NoError(t, eng.BackgroundRefresh(context.Background()))

	require.NotNil(t, gotSince)
	assert.True(t, gotSince.Equal(mark))

	refreshMark, err := st.Metadata.GetTime(context.Background(), store.MetaLastRefreshAt)
	require.NoError(t, err)
	require.NotNil(t, refreshMark)
}

func TestBackgroundRefresh_NeverReconciles(t *testing.T) {
	f := newFakeAPI()
	// Remote returns nothing; a reconciling pull would wipe the project.
	eng, st := newTestEngine(t, f, Options{})
	setScope(t, st)

	synced := time.Now().Add(-time.Hour)
	p := &models.Project{Name: "keep me", Status: models.ProjectActive, CompanyID: "c1"}
	p.ID = "p1"
	p.LastSyncedAt = &synced
	require.NoError(t, st.Projects.Insert(context.Background(), p))

	require.NoError(t, eng.BackgroundRefresh(context.Background()))

	got, err := st.Projects.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())
}

func TestLaunchSync_AwaitsCriticalPathAndBackfillsRest(t *testing.T) {
	f := newFakeAPI()
	f.projects.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ProjectRecord, error) {
		return []remote.ProjectRecord{{ID: "p1", Name: "Critical", Status: "active", CompanyID: "c1"}}, nil
	}
	tailDone := make(chan struct{})
	f.tasks.fetchAllFn = func(context.Context, remote.Scope) ([]remote.TaskRecord, error) {
		defer close(tailDone)
		return []remote.TaskRecord{{ID: "t1", Title: "Tail", Status: "open", ProjectID: "p1"}}, nil
	}

	eng, st := newTestEngine(t, f, Options{})
	setScope(t, st)

	require.NoError(t, eng.LaunchSync(context.Background()))

	// The awaited part is already visible when LaunchSync returns.
	_, err := st.Projects.Get(context.Background(), "p1")
	require.NoError(t, err)

	select {
	case <-tailDone:
	case <-time.After(5 * time.Second):
		t.Fatal("background tail never ran")
	}
	require.Eventually(t, func() bool {
		_, err := st.Tasks.Get(context.Background(), "t1")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

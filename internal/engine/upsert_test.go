package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
)

func testScope() remote.Scope {
	return remote.Scope{CompanyID: "c1", UserID: "u1"}
}

func TestPullInsertsUnknownRecordsAsSynced(t *testing.T) {
	f := newFakeAPI()
	f.projects.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ProjectRecord, error) {
		return []remote.ProjectRecord{
			{ID: "p1", Name: "Warehouse refit", Status: "active", CompanyID: "c1", TeamMemberIDs: []string{"u1"}},
		}, nil
	}
	eng, st := newTestEngine(t, f, Options{})

	require.NoError(t, eng.pullProjects(context.Background(), testScope(), false))

	p, err := st.Projects.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse refit", p.Name)
	assert.Equal(t, models.ProjectActive, p.Status)
	assert.False(t, p.NeedsSync)
	require.NotNil(t, p.LastSyncedAt)
}

func TestPullTwiceLeavesSameState(t *testing.T) {
	rec := remote.ProjectRecord{ID: "p1", Name: "Warehouse refit", Status: "active", CompanyID: "c1"}
	f := newFakeAPI()
	f.projects.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ProjectRecord, error) {
		return []remote.ProjectRecord{rec}, nil
	}
	eng, st := newTestEngine(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, eng.pullProjects(ctx, testScope(), false))
	require.NoError(t, eng.pullProjects(ctx, testScope(), false))

	all, err := st.Projects.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "repeated upsert must not duplicate")
	assert.Equal(t, "Warehouse refit", all[0].Name)
	assert.False(t, all[0].NeedsSync)
}

func TestPullDoesNotClobberDirtyLocalFields(t *testing.T) {
	f := newFakeAPI()
	f.projects.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ProjectRecord, error) {
		return []remote.ProjectRecord{
			{ID: "p1", Name: "remote rename", Status: "completed", CompanyID: "c1", TeamMemberIDs: []string{"u7"}},
		}, nil
	}
	eng, st := newTestEngine(t, f, Options{})
	ctx := context.Background()

	synced := time.Now().Add(-time.Hour)
	local := &models.Project{Name: "local edit", Status: models.ProjectActive, CompanyID: "c1"}
	local.ID = "p1"
	local.NeedsSync = true
	local.LastSyncedAt = &synced
	require.NoError(t, st.Projects.Insert(ctx, local))

	require.NoError(t, eng.pullProjects(ctx, testScope(), false))

	got, err := st.Projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "local edit", got.Name, "domain fields of a dirty record stay local")
	assert.Equal(t, models.ProjectActive, got.Status)
	assert.True(t, got.NeedsSync, "dirty flag survives the pull")
	assert.Equal(t, []string{"u7"}, got.TeamMemberIDs, "server-owned lists are refreshed regardless")
}

func TestPullRestoresRemotelyActiveRecord(t *testing.T) {
	f := newFakeAPI()
	f.clients.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ClientRecord, error) {
		return []remote.ClientRecord{{ID: "cl1", Name: "Nordbygg AB", CompanyID: "c1"}}, nil
	}
	eng, st := newTestEngine(t, f, Options{})
	ctx := context.Background()

	synced := time.Now().Add(-48 * time.Hour)
	deleted := time.Now().Add(-time.Hour)
	c := &models.Client{Name: "Nordbygg AB", CompanyID: "c1"}
	c.ID = "cl1"
	c.LastSyncedAt = &synced
	c.DeletedAt = &deleted
	require.NoError(t, st.Clients.Insert(ctx, c))

	require.NoError(t, eng.pullClients(ctx, testScope(), false))

	got, err := st.Clients.Get(ctx, "cl1")
	require.NoError(t, err)
	assert.False(t, got.IsDeleted(), "a record the remote still returns is active")
}

func TestPullEvictsDroppedImages(t *testing.T) {
	f := newFakeAPI()
	f.projects.fetchAllFn = func(context.Context, remote.Scope) ([]remote.ProjectRecord, error) {
		return []remote.ProjectRecord{
			{ID: "p1", Name: "Yard", Status: "active", CompanyID: "c1", ImageIDs: []string{"img1", "img3"}},
		}, nil
	}
	cache := &fakeCache{}
	eng, st := newTestEngine(t, f, Options{Cache: cache})
	ctx := context.Background()

	synced := time.Now().Add(-time.Hour)
	p := &models.Project{Name: "Yard", Status: models.ProjectActive, CompanyID: "c1",
		ImageIDs: []string{"img1", "img2", "img3"}}
	p.ID = "p1"
	p.LastSyncedAt = &synced
	require.NoError(t, st.Projects.Insert(ctx, p))

	require.NoError(t, eng.pullProjects(ctx, testScope(), false))

	assert.Equal(t, []string{"img2"}, cache.evictedKeys())

	got, err := st.Projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"img1", "img3"}, got.ImageIDs)
}

func TestPullWithReconcileDropsVanishedRecords(t *testing.T) {
	f := newFakeAPI()
	f.tasks.fetchAllFn = func(context.Context, remote.Scope) ([]remote.TaskRecord, error) {
		return []remote.TaskRecord{{ID: "t1", Title: "kept", Status: "open", ProjectID: "p1"}}, nil
	}
	eng, st := newTestEngine(t, f, Options{})
	ctx := context.Background()

	synced := time.Now().Add(-time.Hour)
	for _, id := range []string{"t1", "t2"} {
		tk := &models.Task{Title: id, Status: models.TaskOpen, ProjectID: "p1"}
		tk.ID = id
		tk.LastSyncedAt = &synced
		require.NoError(t, st.Tasks.Insert(ctx, tk))
	}

	require.NoError(t, eng.pullTasks(ctx, testScope(), true))

	kept, err := st.Tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, kept.IsDeleted())

	gone, err := st.Tasks.Get(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, gone.IsDeleted())
}

func TestScopedPullSkipsReconciliation(t *testing.T) {
	f := newFakeAPI()
	f.tasks.fetchAllFn = func(context.Context, remote.Scope) ([]remote.TaskRecord, error) {
		return nil, nil
	}
	eng, st := newTestEngine(t, f, Options{})
	ctx := context.Background()

	synced := time.Now().Add(-time.Hour)
	tk := &models.Task{Title: "survives", Status: models.TaskOpen, ProjectID: "p1"}
	tk.ID = "t1"
	tk.LastSyncedAt = &synced
	require.NoError(t, st.Tasks.Insert(ctx, tk))

	since := time.Now().Add(-10 * time.Minute)
	scope := testScope()
	scope.Since = &since

	// reconcile requested, but a changed-since pull has no full picture
	require.NoError(t, eng.pullTasks(ctx, scope, true))

	got, err := st.Tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())
}

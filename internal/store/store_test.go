package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMetadataRepo_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	v, err := st.Metadata.Get(ctx, MetaCompanyID)
	require.NoError(t, err)
	assert.Equal(t, "", v, "absent key reads as empty, not error")

	require.NoError(t, st.Metadata.Set(ctx, MetaCompanyID, "c1"))
	require.NoError(t, st.Metadata.Set(ctx, MetaCompanyID, "c2"))
	v, err = st.Metadata.Get(ctx, MetaCompanyID)
	require.NoError(t, err)
	assert.Equal(t, "c2", v, "set must upsert")

	mark, err := st.Metadata.GetTime(ctx, MetaLastFullSync)
	require.NoError(t, err)
	assert.Nil(t, mark)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, st.Metadata.SetTime(ctx, MetaLastFullSync, now))
	mark, err = st.Metadata.GetTime(ctx, MetaLastFullSync)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.True(t, mark.Equal(now))

	require.NoError(t, st.Metadata.Delete(ctx, MetaCompanyID))
	v, err = st.Metadata.Get(ctx, MetaCompanyID)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestProjectRepo_CRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Project{
		Name:          "Roof renovation",
		Status:        models.ProjectActive,
		Notes:         "north side first",
		CompanyID:     "c1",
		ClientID:      "cl1",
		StartDate:     &start,
		TeamMemberIDs: []string{"u1", "u2"},
		ImageIDs:      []string{"img1"},
	}
	p.ID = "p1"

	require.NoError(t, st.Projects.Insert(ctx, p))

	got, err := st.Projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Roof renovation", got.Name)
	assert.Equal(t, []string{"u1", "u2"}, got.TeamMemberIDs)
	assert.Equal(t, []string{"img1"}, got.ImageIDs)
	require.NotNil(t, got.StartDate)
	assert.True(t, got.StartDate.Equal(start))
	assert.Nil(t, got.EndDate)
	assert.True(t, got.NeverSynced())

	got.Name = "Roof renovation phase 2"
	got.MarkDirty()
	require.NoError(t, st.Projects.Save(ctx, got))

	again, err := st.Projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Roof renovation phase 2", again.Name)
	assert.True(t, again.NeedsSync)

	_, err = st.Projects.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	missing := &models.Project{}
	missing.ID = "nope"
	assert.ErrorIs(t, st.Projects.Save(ctx, missing), common.ErrNotFound)
}

func TestProjectRepo_ListActiveSkipsSoftDeleted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		p := &models.Project{Name: id, Status: models.ProjectPlanned, CompanyID: "c1"}
		p.ID = id
		require.NoError(t, st.Projects.Insert(ctx, p))
	}
	require.NoError(t, st.Projects.SoftDelete(ctx, "p2", time.Now()))

	active, err := st.Projects.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].ID)
}

func TestListPending_OrdersByPriority(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mk := func(id string, priority int, dirty bool) {
		tk := &models.Task{Title: id, Status: models.TaskOpen, ProjectID: "p1"}
		tk.ID = id
		tk.NeedsSync = dirty
		tk.SyncPriority = priority
		require.NoError(t, st.Tasks.Insert(ctx, tk))
	}
	mk("low", 1, true)
	mk("high", 9, true)
	mk("clean", 5, false)

	pending, err := st.Tasks.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "high", pending[0].ID)
	assert.Equal(t, "low", pending[1].ID)
}

func TestRewriteID_UpdatesDependentReferences(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "local draft", Status: models.ProjectPlanned, CompanyID: "c1"}
	p.ID = "tmp-1"
	p.NeedsSync = true
	require.NoError(t, st.Projects.Insert(ctx, p))

	tk := &models.Task{Title: "measure", Status: models.TaskOpen, ProjectID: "tmp-1"}
	tk.ID = "t1"
	require.NoError(t, st.Tasks.Insert(ctx, tk))

	ev := &models.CalendarEvent{Title: "site visit", ProjectID: "tmp-1"}
	ev.ID = "e1"
	require.NoError(t, st.Events.Insert(ctx, ev))

	err := st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return RewriteID(ctx, tx, models.EntityProject, "tmp-1", "srv-99")
	})
	require.NoError(t, err)

	_, err = st.Projects.Get(ctx, "tmp-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	moved, err := st.Projects.Get(ctx, "srv-99")
	require.NoError(t, err)
	assert.Equal(t, "local draft", moved.Name)

	tk2, err := st.Tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "srv-99", tk2.ProjectID)

	ev2, err := st.Events.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "srv-99", ev2.ProjectID)
}

func TestEventRepo_ListByTask(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mk := func(id, taskID string) {
		ev := &models.CalendarEvent{Title: id, ProjectID: "p1", TaskID: taskID}
		ev.ID = id
		require.NoError(t, st.Events.Insert(ctx, ev))
	}
	mk("e1", "t1")
	mk("e2", "t1")
	mk("e3", "t2")
	require.NoError(t, st.Events.SoftDelete(ctx, "e2", time.Now()))

	evs, err := st.Events.ListByTask(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "e1", evs[0].ID)
}

func TestSubClientRepo_ListByClient(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s := &models.SubClient{Name: "Site office", ClientID: "cl1"}
	s.ID = "s1"
	require.NoError(t, st.SubClients.Insert(ctx, s))

	list, err := st.SubClients.ListByClient(ctx, "cl1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Site office", list[0].Name)

	none, err := st.SubClients.ListByClient(ctx, "cl2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

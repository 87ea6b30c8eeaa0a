package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskresensky/fieldsync/internal/models"
)

func TestLinkAll_ResolvesBothDirections(t *testing.T) {
	eng, st := newTestEngine(t, newFakeAPI(), Options{})
	ctx := context.Background()

	company := &models.Company{Name: "Acme", TeamMemberIDs: []string{"u1"}}
	company.ID = "c1"
	require.NoError(t, st.Companies.Insert(ctx, company))

	user := &models.User{FirstName: "Jo", LastName: "Berg", CompanyID: "c1"}
	user.ID = "u1"
	require.NoError(t, st.Users.Insert(ctx, user))

	client := &models.Client{Name: "Nordbygg", CompanyID: "c1"}
	client.ID = "cl1"
	require.NoError(t, st.Clients.Insert(ctx, client))

	sub := &models.SubClient{Name: "Depot", ClientID: "cl1"}
	sub.ID = "s1"
	require.NoError(t, st.SubClients.Insert(ctx, sub))

	tt := &models.TaskType{Name: "Inspection", CompanyID: "c1"}
	tt.ID = "tt1"
	require.NoError(t, st.TaskTypes.Insert(ctx, tt))

	project := &models.Project{Name: "Depot refit", Status: models.ProjectActive,
		CompanyID: "c1", ClientID: "cl1", TeamMemberIDs: []string{"u1"}}
	project.ID = "p1"
	require.NoError(t, st.Projects.Insert(ctx, project))

	task := &models.Task{Title: "roof check", Status: models.TaskOpen,
		ProjectID: "p1", TaskTypeID: "tt1", EventID: "e1"}
	task.ID = "t1"
	require.NoError(t, st.Tasks.Insert(ctx, task))

	event := &models.CalendarEvent{Title: "roof check slot", StartsAt: time.Now(),
		EndsAt: time.Now().Add(time.Hour), ProjectID: "p1", TaskID: "t1"}
	event.ID = "e1"
	require.NoError(t, st.Events.Insert(ctx, event))

	edges, err := eng.LinkAll(ctx)
	require.NoError(t, err)
	assert.Greater(t, edges, 0)

	g := eng.Graph()

	u := g.Users["u1"]
	require.NotNil(t, u)
	require.NotNil(t, u.Company)
	assert.Equal(t, "Acme", u.Company.Name)

	c := g.Companies["c1"]
	require.Len(t, c.Team, 1)
	assert.Same(t, u, c.Team[0])

	cl := g.Clients["cl1"]
	require.Len(t, cl.SubClients, 1)
	require.Len(t, cl.Projects, 1)
	assert.Same(t, cl, g.SubClients["s1"].Client)

	p := g.Projects["p1"]
	assert.Same(t, cl, p.Client)
	require.Len(t, p.Team, 1)
	require.Len(t, p.Tasks, 1)

	tk := g.Tasks["t1"]
	assert.Same(t, p, tk.Project)
	assert.Same(t, g.TaskTypes["tt1"], tk.Type)
	assert.Same(t, g.Events["e1"], tk.Event)

	ev := g.Events["e1"]
	assert.Same(t, p, ev.Project)
	assert.Same(t, tk, ev.Task)
}

func TestLinkAll_ToleratesDanglingReferences(t *testing.T) {
	eng, st := newTestEngine(t, newFakeAPI(), Options{})
	ctx := context.Background()

	// Child arrived before its parent mid-sync.
	task := &models.Task{Title: "orphan", Status: models.TaskOpen,
		ProjectID: "p-not-here", TaskTypeID: "tt-not-here"}
	task.ID = "t1"
	require.NoError(t, st.Tasks.Insert(ctx, task))

	_, err := eng.LinkAll(ctx)
	require.NoError(t, err)

	tk := eng.Graph().Tasks["t1"]
	require.NotNil(t, tk)
	assert.Nil(t, tk.Project)
	assert.Nil(t, tk.Type)
}

func TestLinkAll_SkipsSoftDeletedRecords(t *testing.T) {
	eng, st := newTestEngine(t, newFakeAPI(), Options{})
	ctx := context.Background()

	project := &models.Project{Name: "gone", Status: models.ProjectActive, CompanyID: "c1"}
	project.ID = "p1"
	require.NoError(t, st.Projects.Insert(ctx, project))
	require.NoError(t, st.Projects.SoftDelete(ctx, "p1", time.Now()))

	_, err := eng.LinkAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, eng.Graph().Projects, "p1")
}

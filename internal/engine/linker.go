package engine

import (
	"context"
	"fmt"

	"github.com/avoskresensky/fieldsync/internal/models"
)

// LinkAll rebuilds the in-memory object graph from the persisted id
// fields: every active record is loaded, then pointer fields and derived
// collections are resolved in both directions (task to project, project to
// its task list, and so on). Dangling references resolve to nil and are
// skipped in collections; they are expected mid-sync when a child arrives
// before its parent. Returns the number of edges resolved.
func (e *Engine) LinkAll(ctx context.Context) (int, error) {
	g, edges, err := e.buildGraph(ctx)
	if err != nil {
		return 0, fmt.Errorf("linking relationships: %w", err)
	}

	e.graphMu.Lock()
	e.graph = g
	e.graphMu.Unlock()

	e.log.Debug(ctx, "relationship graph rebuilt", "edges", edges)
	return edges, nil
}

func (e *Engine) buildGraph(ctx context.Context) (*models.Graph, int, error) {
	g := models.NewGraph()

	companies, err := e.store.Companies.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, c := range companies {
		g.Companies[c.ID] = c
	}
	users, err := e.store.Users.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		g.Users[u.ID] = u
	}
	clients, err := e.store.Clients.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, c := range clients {
		g.Clients[c.ID] = c
	}
	subclients, err := e.store.SubClients.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range subclients {
		g.SubClients[s.ID] = s
	}
	taskTypes, err := e.store.TaskTypes.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, tt := range taskTypes {
		g.TaskTypes[tt.ID] = tt
	}
	projects, err := e.store.Projects.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range projects {
		g.Projects[p.ID] = p
	}
	tasks, err := e.store.Tasks.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, t := range tasks {
		g.Tasks[t.ID] = t
	}
	events, err := e.store.Events.ListActive(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, ev := range events {
		g.Events[ev.ID] = ev
	}

	edges := 0

	for _, u := range users {
		if c, ok := g.Companies[u.CompanyID]; ok {
			u.Company = c
			edges++
		}
	}
	for _, c := range companies {
		for _, id := range c.TeamMemberIDs {
			if u, ok := g.Users[id]; ok {
				c.Team = append(c.Team, u)
				edges++
			}
		}
	}
	for _, s := range subclients {
		if c, ok := g.Clients[s.ClientID]; ok {
			s.Client = c
			c.SubClients = append(c.SubClients, s)
			edges++
		}
	}
	for _, p := range projects {
		if c, ok := g.Clients[p.ClientID]; ok {
			p.Client = c
			c.Projects = append(c.Projects, p)
			edges++
		}
		for _, id := range p.TeamMemberIDs {
			if u, ok := g.Users[id]; ok {
				p.Team = append(p.Team, u)
				edges++
			}
		}
	}
	for _, t := range tasks {
		if p, ok := g.Projects[t.ProjectID]; ok {
			t.Project = p
			p.Tasks = append(p.Tasks, t)
			edges++
		}
		if tt, ok := g.TaskTypes[t.TaskTypeID]; ok {
			t.Type = tt
			edges++
		}
		if ev, ok := g.Events[t.EventID]; ok {
			t.Event = ev
			edges++
		}
		for _, id := range t.TeamMemberIDs {
			if u, ok := g.Users[id]; ok {
				t.Team = append(t.Team, u)
				edges++
			}
		}
	}
	for _, ev := range events {
		if p, ok := g.Projects[ev.ProjectID]; ok {
			ev.Project = p
			edges++
		}
		if t, ok := g.Tasks[ev.TaskID]; ok {
			ev.Task = t
			edges++
		}
		for _, id := range ev.TeamMemberIDs {
			if u, ok := g.Users[id]; ok {
				ev.Team = append(ev.Team, u)
				edges++
			}
		}
	}

	return g, edges, nil
}

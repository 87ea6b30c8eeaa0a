package engine

import (
	"github.com/avoskresensky/fieldsync/internal/models"
	"github.com/avoskresensky/fieldsync/internal/remote"
)

// Conversions between transfer records and local models. The apply*
// functions copy every domain field wholesale: the remote list is the
// authority for list-valued fields, and per-field merging is deliberately
// not attempted (the NeedsSync guard is the only conflict rule).

func applyCompanyRecord(c *models.Company, rec remote.CompanyRecord) {
	c.Name = rec.Name
	c.Address = rec.Address
	c.Phone = rec.Phone
	c.Email = rec.Email
	c.TeamMemberIDs = rec.TeamMemberIDs
	c.ImageIDs = rec.ImageIDs
}

func companyFromRecord(rec remote.CompanyRecord) *models.Company {
	c := &models.Company{}
	c.ID = rec.ID
	applyCompanyRecord(c, rec)
	return c
}

func companyToRecord(c *models.Company) remote.CompanyRecord {
	return remote.CompanyRecord{
		ID:            c.ID,
		Name:          c.Name,
		Address:       c.Address,
		Phone:         c.Phone,
		Email:         c.Email,
		TeamMemberIDs: c.TeamMemberIDs,
		ImageIDs:      c.ImageIDs,
	}
}

func companyUpdateFields(c *models.Company) map[string]any {
	return map[string]any{
		"name":            c.Name,
		"address":         c.Address,
		"phone":           c.Phone,
		"email":           c.Email,
		"team_member_ids": c.TeamMemberIDs,
	}
}

func applyUserRecord(u *models.User, rec remote.UserRecord) {
	u.FirstName = rec.FirstName
	u.LastName = rec.LastName
	u.Email = rec.Email
	u.Phone = rec.Phone
	u.Role = models.UserRole(rec.Role)
	u.CompanyID = rec.CompanyID
}

func userFromRecord(rec remote.UserRecord) *models.User {
	u := &models.User{}
	u.ID = rec.ID
	applyUserRecord(u, rec)
	return u
}

func userToRecord(u *models.User) remote.UserRecord {
	return remote.UserRecord{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
	}
}

func userUpdateFields(u *models.User) map[string]any {
	return map[string]any{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"phone":      u.Phone,
	}
}

func applyClientRecord(c *models.Client, rec remote.ClientRecord) {
	c.Name = rec.Name
	c.Email = rec.Email
	c.Phone = rec.Phone
	c.Address = rec.Address
	c.Notes = rec.Notes
	c.CompanyID = rec.CompanyID
}

func clientFromRecord(rec remote.ClientRecord) *models.Client {
	c := &models.Client{}
	c.ID = rec.ID
	applyClientRecord(c, rec)
	return c
}

func clientToRecord(c *models.Client) remote.ClientRecord {
	return remote.ClientRecord{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CompanyID: c.CompanyID,
	}
}

func clientUpdateFields(c *models.Client) map[string]any {
	return map[string]any{
		"name":    c.Name,
		"email":   c.Email,
		"phone":   c.Phone,
		"address": c.Address,
		"notes":   c.Notes,
	}
}

func applySubClientRecord(s *models.SubClient, rec remote.SubClientRecord) {
	s.Name = rec.Name
	s.Email = rec.Email
	s.Phone = rec.Phone
	s.ClientID = rec.ClientID
}

func subClientFromRecord(rec remote.SubClientRecord) *models.SubClient {
	s := &models.SubClient{}
	s.ID = rec.ID
	applySubClientRecord(s, rec)
	return s
}

func subClientToRecord(s *models.SubClient) remote.SubClientRecord {
	return remote.SubClientRecord{
		ID:       s.ID,
		Name:     s.Name,
		Email:    s.Email,
		Phone:    s.Phone,
		ClientID: s.ClientID,
	}
}

func subClientUpdateFields(s *models.SubClient) map[string]any {
	return map[string]any{
		"name":  s.Name,
		"email": s.Email,
		"phone": s.Phone,
	}
}

func applyTaskTypeRecord(tt *models.TaskType, rec remote.TaskTypeRecord) {
	tt.Name = rec.Name
	tt.Color = rec.Color
	tt.IsDefault = rec.IsDefault
	tt.CompanyID = rec.CompanyID
}

func taskTypeFromRecord(rec remote.TaskTypeRecord) *models.TaskType {
	tt := &models.TaskType{}
	tt.ID = rec.ID
	applyTaskTypeRecord(tt, rec)
	return tt
}

func taskTypeToRecord(tt *models.TaskType) remote.TaskTypeRecord {
	return remote.TaskTypeRecord{
		ID:        tt.ID,
		Name:      tt.Name,
		Color:     tt.Color,
		IsDefault: tt.IsDefault,
		CompanyID: tt.CompanyID,
	}
}

func taskTypeUpdateFields(tt *models.TaskType) map[string]any {
	return map[string]any{
		"name":  tt.Name,
		"color": tt.Color,
	}
}

func applyProjectRecord(p *models.Project, rec remote.ProjectRecord) {
	p.Name = rec.Name
	p.Status = models.ProjectStatus(rec.Status)
	p.Notes = rec.Notes
	p.Address = rec.Address
	p.StartDate = rec.StartDate
	p.EndDate = rec.EndDate
	p.CompanyID = rec.CompanyID
	p.ClientID = rec.ClientID
	p.TeamMemberIDs = rec.TeamMemberIDs
	p.ImageIDs = rec.ImageIDs
}

func projectFromRecord(rec remote.ProjectRecord) *models.Project {
	p := &models.Project{}
	p.ID = rec.ID
	applyProjectRecord(p, rec)
	return p
}

func projectToRecord(p *models.Project) remote.ProjectRecord {
	return remote.ProjectRecord{
		ID:            p.ID,
		Name:          p.Name,
		Status:        string(p.Status),
		Notes:         p.Notes,
		Address:       p.Address,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		CompanyID:     p.CompanyID,
		ClientID:      p.ClientID,
		TeamMemberIDs: p.TeamMemberIDs,
		ImageIDs:      p.ImageIDs,
	}
}

func projectUpdateFields(p *models.Project) map[string]any {
	return map[string]any{
		"name":            p.Name,
		"status":          string(p.Status),
		"notes":           p.Notes,
		"address":         p.Address,
		"client_id":       p.ClientID,
		"team_member_ids": p.TeamMemberIDs,
	}
}

func applyTaskRecord(t *models.Task, rec remote.TaskRecord) {
	t.Title = rec.Title
	t.Status = models.TaskStatus(rec.Status)
	t.Notes = rec.Notes
	t.DueDate = rec.DueDate
	t.ProjectID = rec.ProjectID
	t.TaskTypeID = rec.TaskTypeID
	t.EventID = rec.EventID
	t.TeamMemberIDs = rec.TeamMemberIDs
	t.ImageIDs = rec.ImageIDs
}

func taskFromRecord(rec remote.TaskRecord) *models.Task {
	t := &models.Task{}
	t.ID = rec.ID
	applyTaskRecord(t, rec)
	return t
}

func taskToRecord(t *models.Task) remote.TaskRecord {
	return remote.TaskRecord{
		ID:            t.ID,
		Title:         t.Title,
		Status:        string(t.Status),
		Notes:         t.Notes,
		DueDate:       t.DueDate,
		ProjectID:     t.ProjectID,
		TaskTypeID:    t.TaskTypeID,
		EventID:       t.EventID,
		TeamMemberIDs: t.TeamMemberIDs,
		ImageIDs:      t.ImageIDs,
	}
}

func taskUpdateFields(t *models.Task) map[string]any {
	return map[string]any{
		"title":           t.Title,
		"status":          string(t.Status),
		"notes":           t.Notes,
		"team_member_ids": t.TeamMemberIDs,
	}
}

func applyEventRecord(e *models.CalendarEvent, rec remote.EventRecord) {
	e.Title = rec.Title
	e.Notes = rec.Notes
	e.StartsAt = rec.StartsAt
	e.EndsAt = rec.EndsAt
	e.AllDay = rec.AllDay
	e.ProjectID = rec.ProjectID
	e.TaskID = rec.TaskID
	e.TeamMemberIDs = rec.TeamMemberIDs
}

func eventFromRecord(rec remote.EventRecord) *models.CalendarEvent {
	ev := &models.CalendarEvent{}
	ev.ID = rec.ID
	applyEventRecord(ev, rec)
	return ev
}

func eventToRecord(ev *models.CalendarEvent) remote.EventRecord {
	return remote.EventRecord{
		ID:            ev.ID,
		Title:         ev.Title,
		Notes:         ev.Notes,
		StartsAt:      ev.StartsAt,
		EndsAt:        ev.EndsAt,
		AllDay:        ev.AllDay,
		ProjectID:     ev.ProjectID,
		TaskID:        ev.TaskID,
		TeamMemberIDs: ev.TeamMemberIDs,
	}
}

func eventUpdateFields(ev *models.CalendarEvent) map[string]any {
	return map[string]any{
		"title":           ev.Title,
		"notes":           ev.Notes,
		"starts_at":       ev.StartsAt,
		"ends_at":         ev.EndsAt,
		"all_day":         ev.AllDay,
		"team_member_ids": ev.TeamMemberIDs,
	}
}

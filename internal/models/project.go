package models

import "time"

// ProjectStatus is the remote-defined lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

// Project is a job carried out for a client by a company team.
type Project struct {
	SyncMeta

	Name      string
	Status    ProjectStatus
	Notes     string
	Address   string
	StartDate *time.Time
	EndDate   *time.Time

	CompanyID string
	// ClientID is optional; internal projects have no client.
	ClientID string

	TeamMemberIDs []string
	ImageIDs      []string

	// Derived state rebuilt by the relationship linker.
	Client *Client
	Team   []*User
	Tasks  []*Task
}

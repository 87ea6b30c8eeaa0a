package models

import "time"

// CalendarEvent is a scheduled slot for a project and optionally a task.
type CalendarEvent struct {
	SyncMeta

	Title    string
	Notes    string
	StartsAt time.Time
	EndsAt   time.Time
	AllDay   bool

	ProjectID string
	// TaskID is optional; standalone project events have none.
	TaskID string

	TeamMemberIDs []string

	// Derived state rebuilt by the relationship linker.
	Project *Project
	Task    *Task
	Team    []*User
}

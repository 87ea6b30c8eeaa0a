package models

import "time"

// TaskStatus is the remote-defined lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is a unit of work inside a project.
type Task struct {
	SyncMeta

	Title   string
	Status  TaskStatus
	Notes   string
	DueDate *time.Time

	ProjectID  string
	TaskTypeID string
	// EventID links the one calendar event scheduled for this task.
	EventID string

	TeamMemberIDs []string
	ImageIDs      []string

	// Derived state rebuilt by the relationship linker.
	Project *Project
	Type    *TaskType
	Event   *CalendarEvent
	Team    []*User
}

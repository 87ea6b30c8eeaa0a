package remote

import "time"

// Transfer records are the wire representation of each entity as returned
// by the remote API. They intentionally carry no sync metadata besides the
// identifier and server timestamps; NeedsSync/LastSyncedAt are local state.

type CompanyRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email"`
	TeamMemberIDs []string `json:"team_member_ids"`
	ImageIDs      []string `json:"image_ids"`
}

type UserRecord struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
}

type ClientRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	CompanyID string `json:"company_id"`
}

type SubClientRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	ClientID string `json:"client_id"`
}

type TaskTypeRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
	CompanyID string `json:"company_id"`
}

type ProjectRecord struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes"`
	Address       string     `json:"address"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	CompanyID     string     `json:"company_id"`
	ClientID      string     `json:"client_id"`
	TeamMemberIDs []string   `json:"team_member_ids"`
	ImageIDs      []string   `json:"image_ids"`
}

type TaskRecord struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes"`
	DueDate       *time.Time `json:"due_date"`
	ProjectID     string     `json:"project_id"`
	TaskTypeID    string     `json:"task_type_id"`
	EventID       string     `json:"event_id"`
	TeamMemberIDs []string   `json:"team_member_ids"`
	ImageIDs      []string   `json:"image_ids"`
}

type EventRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Notes         string    `json:"notes"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	AllDay        bool      `json:"all_day"`
	ProjectID     string    `json:"project_id"`
	TaskID        string    `json:"task_id"`
	TeamMemberIDs []string  `json:"team_member_ids"`
}

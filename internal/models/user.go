package models

// UserRole classifies what a user may do in the field app. The engine only
// carries it as a domain field; authorization is out of scope.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleWorker  UserRole = "worker"
)

// User is a member of a company team.
type User struct {
	SyncMeta

	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      UserRole

	CompanyID string

	// Company is derived state rebuilt by the relationship linker.
	Company *Company
}

// FullName joins first and last name for display and log labels.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

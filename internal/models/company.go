package models

// Company is the top-level tenant every other entity hangs off.
type Company struct {
	SyncMeta

	Name    string
	Address string
	Phone   string
	Email   string

	// TeamMemberIDs is the persisted id-list form of the company team.
	// Replaced wholesale on every pull.
	TeamMemberIDs []string

	// ImageIDs lists remotely hosted images (logo etc.) whose cached
	// copies are evicted when they disappear from the remote list.
	ImageIDs []string

	// Team is derived state rebuilt by the relationship linker. It may be
	// empty between the upsert and linking phases of a sync pass.
	Team []*User
}

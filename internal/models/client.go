package models

// Client is a customer of the company; projects are optionally carried out
// for a client.
type Client struct {
	SyncMeta

	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string

	CompanyID string

	// SubClients and Projects are derived state rebuilt by the
	// relationship linker.
	SubClients []*SubClient
	Projects   []*Project
}

// SubClient is a contact person or site belonging to a client.
type SubClient struct {
	SyncMeta

	Name  string
	Email string
	Phone string

	ClientID string

	// Client is derived state rebuilt by the relationship linker.
	Client *Client
}

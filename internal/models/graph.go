package models

// Graph is the in-memory object graph rebuilt by the relationship linker
// after a full sync pass. It is derived from the persisted id fields and is
// never authoritative: the scalar identifier columns in the local store
// remain the durable representation.
type Graph struct {
	Companies  map[string]*Company
	Users      map[string]*User
	Clients    map[string]*Client
	SubClients map[string]*SubClient
	TaskTypes  map[string]*TaskType
	Projects   map[string]*Project
	Tasks      map[string]*Task
	Events     map[string]*CalendarEvent
}

// NewGraph returns an empty graph with all lookup maps allocated.
func NewGraph() *Graph {
	return &Graph{
		Companies:  make(map[string]*Company),
		Users:      make(map[string]*User),
		Clients:    make(map[string]*Client),
		SubClients: make(map[string]*SubClient),
		TaskTypes:  make(map[string]*TaskType),
		Projects:   make(map[string]*Project),
		Tasks:      make(map[string]*Task),
		Events:     make(map[string]*CalendarEvent),
	}
}

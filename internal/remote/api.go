// Package remote defines the per-entity repository interfaces the sync
// engine pulls from and pushes to, plus an HTTP implementation for
// REST-like backends. The engine depends only on the interfaces, so any
// backend that can produce the transfer records can sit behind it.
package remote

import (
	"context"
	"time"
)

// Scope limits which remote records a pull considers. Zero-value fields are
// omitted from the request; a Since value turns the pull into a
// changed-since fetch. Scope-limited pulls must not drive whole-table
// deletion reconciliation.
type Scope struct {
	CompanyID string
	UserID    string
	ProjectID string
	Since     *time.Time
}

// Repository is the remote API surface for one entity type.
//
// Create is not idempotent: a failed create must only be retried by the
// pending-mutation flush, which tracks known-failed records locally
// (at-most-once semantics, documented limitation). Fetches may be retried
// freely.
type Repository[R any] interface {
	FetchAll(ctx context.Context, scope Scope) ([]R, error)
	FetchOne(ctx context.Context, id string) (R, error)
	// Create returns the stored record with the server-assigned id.
	Create(ctx context.Context, rec R) (R, error)
	// Update sends only the mutated facets of a record.
	Update(ctx context.Context, id string, fields map[string]any) error
	// Delete asks the remote for a soft delete.
	Delete(ctx context.Context, id string) error
}

// API bundles one repository per entity type plus a reachability probe.
type API struct {
	Companies  Repository[CompanyRecord]
	Users      Repository[UserRecord]
	Clients    Repository[ClientRecord]
	SubClients Repository[SubClientRecord]
	TaskTypes  Repository[TaskTypeRecord]
	Projects   Repository[ProjectRecord]
	Tasks      Repository[TaskRecord]
	Events     Repository[EventRecord]

	Pinger Pinger
}

// Pinger probes backend reachability; used by the connectivity monitor.
type Pinger interface {
	Ping(ctx context.Context) error
}

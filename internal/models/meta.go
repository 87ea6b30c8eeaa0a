// Package models defines the synchronized field-operations entities and the
// sync metadata envelope they share.
package models

import (
	"strings"
	"time"

	"github.com/avoskresensky/fieldsync/internal/common"
	"github.com/google/uuid"
)

// EntityType names a synchronized entity kind. It is used for scoping
// remote calls, reconciliation and log labels.
type EntityType string

const (
	EntityCompany       EntityType = "company"
	EntityUser          EntityType = "user"
	EntityClient        EntityType = "client"
	EntitySubClient     EntityType = "subclient"
	EntityTaskType      EntityType = "tasktype"
	EntityProject       EntityType = "project"
	EntityTask          EntityType = "task"
	EntityCalendarEvent EntityType = "event"
)

// SyncMeta is the metadata envelope every synchronized entity embeds.
//
// The flags implement the engine's optimistic concurrency rules:
// NeedsSync acts as a per-record advisory lock telling the pull path not to
// overwrite local edits, and a nil LastSyncedAt shields a record that has
// never round-tripped from being inferred as remotely deleted.
type SyncMeta struct {
	// ID is the stable identifier shared with the remote once synced.
	// Locally created records carry a temporary id until the first
	// successful create.
	ID string

	// NeedsSync is true while the local copy has mutations not yet
	// confirmed on the remote.
	NeedsSync bool

	// LastSyncedAt is the last confirmed round-trip time; nil means the
	// record has never successfully synced.
	LastSyncedAt *time.Time

	// DeletedAt is the soft-delete marker; nil means active.
	DeletedAt *time.Time

	// SyncPriority orders the pending-mutation flush (higher first). It is
	// never consulted by pull reconciliation.
	SyncPriority int
}

// NewLocalID returns a temporary identifier for a record created locally
// before its first create round-trip.
func NewLocalID() string {
	return common.TempIDPrefix + uuid.NewString()
}

// HasTempID reports whether the record still carries a locally assigned id.
func (m *SyncMeta) HasTempID() bool {
	return strings.HasPrefix(m.ID, common.TempIDPrefix)
}

// NeverSynced reports whether the record has never completed a round-trip
// to the remote.
func (m *SyncMeta) NeverSynced() bool {
	return m.LastSyncedAt == nil
}

// IsDeleted reports whether the record is soft-deleted.
func (m *SyncMeta) IsDeleted() bool {
	return m.DeletedAt != nil
}

// MarkDirty flags the record for the next pending-mutation flush.
func (m *SyncMeta) MarkDirty() {
	m.NeedsSync = true
}

// MarkSynced records a confirmed round-trip at t and clears the dirty flag.
func (m *SyncMeta) MarkSynced(t time.Time) {
	m.NeedsSync = false
	m.LastSyncedAt = &t
}

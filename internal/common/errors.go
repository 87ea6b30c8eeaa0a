// Package common defines shared constants and sentinel errors used across
// the fieldsync engine layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync entry-point errors. Both are terminal for the calling attempt;
	// the caller decides whether to retry on a later trigger.
	ErrNotConnected   = errors.New("network not reachable")
	ErrAlreadySyncing = errors.New("sync already in progress")

	// ErrMissingScope means no company or user identifier could be resolved
	// from local metadata, so a scoped pull cannot be built.
	ErrMissingScope = errors.New("missing scope identifier")
)

package dealersync

import (
	"errors"
	"fmt"

	"github.com/motorlot/dealersync/internal/remote"
)

// Common errors returned by the DealerSync engine.
var (
	// ErrNotFound is returned when an entity row is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrUnknownEntityType is returned for an entity type outside the registry.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrOffline is returned when a network operation is attempted with no remote configured.
	ErrOffline = errors.New("operation unavailable in offline mode")
)

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ApplyError wraps a failure to replay one queued mutation against the
// remote backend. The item stays queued; the pass continues.
// Extractable via errors.As(). Supports Unwrap().
type ApplyError struct {
	ItemID     string
	EntityType EntityType
	Operation  Operation
	Err        error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("sync: apply %s %s (item %s): %v", e.Operation, e.EntityType, e.ItemID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// FetchError wraps a snapshot fetch failure. The whole pass aborts and the
// checkpoint is left unchanged.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("sync: fetch snapshot: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MergeError wraps a local merge transaction failure. The transaction is
// rolled back and the checkpoint is left unchanged.
type MergeError struct {
	Entity EntityType
	Err    error
}

func (e *MergeError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("sync: merge %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("sync: merge: %v", e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// RPCError is returned when the remote backend rejects a procedure call.
// Extractable via errors.As(). Supports Unwrap().
type RPCError = remote.RPCError

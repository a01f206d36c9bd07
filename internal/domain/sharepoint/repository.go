package sharepoint

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit and MaxListLimit bound ListByStatus
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// PendingItemRepository is the store of detected folders. InsertIfAbsent, MarkImported and
// MarkIgnored are each atomic at the database level.
type PendingItemRepository interface {
	// InsertIfAbsent inserts the item unless its folder name is already known.
	// It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, item *PendingItem) (bool, error)

	// ListByStatus returns items newest first. An empty status matches all items.
	ListByStatus(ctx context.Context, status PendingStatus, limit int) ([]PendingItemView, error)

	FindByID(ctx context.Context, id uuid.UUID) (*PendingItemView, error)

	// FindByIDForUpdate loads the item and locks its row for the rest of the transaction,
	// so a racing import waits and then observes the resolved status.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PendingItem, error)

	FindByFolderName(ctx context.Context, folderName string) (*PendingItem, error)

	// MarkImported flips a pending item to imported. It fails with NotFound for an unknown id
	// and Conflict when the item is no longer pending.
	MarkImported(ctx context.Context, id, operationID uuid.UUID, actor Actor, at time.Time) (*PendingItem, error)

	// MarkIgnored flips a pending item to ignored with the same preconditions as MarkImported.
	MarkIgnored(ctx context.Context, id uuid.UUID, actor Actor, at time.Time) (*PendingItem, error)
}

// ScanLease serializes scans across processes.
type ScanLease interface {
	// Acquire takes the lease for holder unless another holder has an unexpired one.
	Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	// Release gives the lease up if holder still owns it.
	Release(ctx context.Context, holder string) error
}

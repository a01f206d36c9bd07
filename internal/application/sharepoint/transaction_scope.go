package sharepoint

import (
	"context"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
)

// TransactionScope runs a unit of work in one database transaction. Returning an error
// from fn rolls every repository write back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories bound to the current transaction.
type TransactionalRepositories interface {
	PendingItems() sharepoint.PendingItemRepository
	Operations() operation.Repository
}

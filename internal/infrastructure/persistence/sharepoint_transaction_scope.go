package persistence

import (
	"context"

	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// If fn returns an error the transaction is rolled back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos spapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories binds every repository to the same transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// PendingItems returns the pending item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PendingItems() sharepoint.PendingItemRepository {
	return NewGormPendingItemRepository(r.tx)
}

// Operations returns the operation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Operations() operation.Repository {
	return NewGormOperationRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ spapp.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ spapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)

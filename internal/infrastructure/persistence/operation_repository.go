package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOperationRepository implements operation.Repository using GORM
type GormOperationRepository struct {
	db *gorm.DB
}

// NewGormOperationRepository creates a new GormOperationRepository
func NewGormOperationRepository(db *gorm.DB) *GormOperationRepository {
	return &GormOperationRepository{db: db}
}

// Create inserts the operation, then its documents, then its invoices.
// Inside an outer transaction the nested Transaction becomes a savepoint.
func (r *GormOperationRepository) Create(ctx context.Context, op *operation.Operation) error {
	model, docs, invoices := models.OperationModelFromDomain(op)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
		if len(docs) > 0 {
			if err := tx.Create(&docs).Error; err != nil {
				return fmt.Errorf("insert operation documents: %w", err)
			}
		}
		if len(invoices) > 0 {
			if err := tx.Create(&invoices).Error; err != nil {
				return fmt.Errorf("insert invoices: %w", err)
			}
		}
		return nil
	})
}

// FindByID loads an operation with documents ordered by position
func (r *GormOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*operation.Operation, error) {
	var model models.OperationModel
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_number ASC") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// nextOperationNumberSQL bumps the per-year counter and returns the new value. The first
// call of a year seeds the counter from operations already numbered under that prefix. The
// upsert keeps the counter row locked until the surrounding transaction ends, so concurrent
// imports draw distinct numbers, and a rolled back import gives its number back.
const nextOperationNumberSQL = `
INSERT INTO operation_number_sequences (prefix, last_value, updated_at)
VALUES (?, COALESCE((
    SELECT MAX(CAST(SUBSTR(operation_number, %d) AS BIGINT))
    FROM operations
    WHERE operation_number LIKE ?
), 0) + 1, ?)
ON CONFLICT (prefix) DO UPDATE
SET last_value = operation_number_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// GenerateOperationNumber draws the next operation number for the year of at.
// Format: OP-YYYY-NNNNN (e.g., OP-2026-00001); the sequence widens past 99999.
// Call it inside the transaction that creates the operation.
func (r *GormOperationRepository) GenerateOperationNumber(ctx context.Context, at time.Time) (string, error) {
	prefix := fmt.Sprintf("OP-%d-", at.Year())
	query := fmt.Sprintf(nextOperationNumberSQL, len(prefix)+1)

	var next int64
	err := r.db.WithContext(ctx).
		Raw(query, prefix, prefix+"%", time.Now().UTC()).
		Scan(&next).Error
	if err != nil {
		return "", fmt.Errorf("draw operation number for %s: %w", prefix, err)
	}
	if next < 1 {
		return "", fmt.Errorf("draw operation number for %s: counter returned %d", prefix, next)
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// Ensure GormOperationRepository implements operation.Repository
var _ operation.Repository = (*GormOperationRepository)(nil)

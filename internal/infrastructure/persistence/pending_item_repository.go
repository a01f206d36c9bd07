package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPendingItemRepository implements PendingItemRepository using GORM
type GormPendingItemRepository struct {
	db *gorm.DB
}

// NewGormPendingItemRepository creates a new GormPendingItemRepository
func NewGormPendingItemRepository(db *gorm.DB) *GormPendingItemRepository {
	return &GormPendingItemRepository{db: db}
}

// InsertIfAbsent relies on the unique index on folder_name, so two concurrent scans can
// never both insert the same folder.
func (r *GormPendingItemRepository) InsertIfAbsent(ctx context.Context, item *sharepoint.PendingItem) (bool, error) {
	model := models.PendingItemModelFromDomain(item)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "folder_name"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// viewQuery selects pending items joined with the number of the operation they produced.
func (r *GormPendingItemRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("sharepoint_pending_items AS p").
		Select("p.*, o.operation_number AS imported_operation_number").
		Joins("LEFT JOIN operations o ON o.id = p.operation_id")
}

// ListByStatus returns items newest first. An empty status matches every item.
func (r *GormPendingItemRepository) ListByStatus(ctx context.Context, status sharepoint.PendingStatus, limit int) ([]sharepoint.PendingItemView, error) {
	query := r.viewQuery(ctx)
	if status != "" {
		query = query.Where("p.status = ?", status)
	}
	if limit <= 0 {
		limit = sharepoint.DefaultListLimit
	}

	var rows []models.PendingItemRow
	if err := query.Order("p.detected_at DESC").Order("p.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	views := make([]sharepoint.PendingItemView, 0, len(rows))
	for i := range rows {
		view, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// FindByID finds a pending item by ID
func (r *GormPendingItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*sharepoint.PendingItemView, error) {
	var rows []models.PendingItemRow
	if err := r.viewQuery(ctx).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	return rows[0].ToDomain()
}

// FindByIDForUpdate loads the row with SELECT ... FOR UPDATE. Call it inside a transaction.
func (r *GormPendingItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sharepoint.PendingItem, error) {
	var model models.PendingItemModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByFolderName finds a pending item by its folder name
func (r *GormPendingItemRepository) FindByFolderName(ctx context.Context, folderName string) (*sharepoint.PendingItem, error) {
	var model models.PendingItemModel
	if err := r.db.WithContext(ctx).Where("folder_name = ?", folderName).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// MarkImported flips a pending row to imported in one conditional UPDATE.
func (r *GormPendingItemRepository) MarkImported(ctx context.Context, id, operationID uuid.UUID, actor sharepoint.Actor, at time.Time) (*sharepoint.PendingItem, error) {
	return r.resolve(ctx, id, map[string]any{
		"status":           sharepoint.StatusImported,
		"operation_id":     operationID,
		"imported_at":      at,
		"imported_by":      actor.ID,
		"imported_by_name": actor.Name,
		"updated_at":       at,
	})
}

// MarkIgnored flips a pending row to ignored in one conditional UPDATE.
func (r *GormPendingItemRepository) MarkIgnored(ctx context.Context, id uuid.UUID, actor sharepoint.Actor, at time.Time) (*sharepoint.PendingItem, error) {
	return r.resolve(ctx, id, map[string]any{
		"status":     sharepoint.StatusIgnored,
		"ignored_at": at,
		"ignored_by": actor.ID,
		"updated_at": at,
	})
}

// resolve applies updates only while the row is still pending. When no row matched it
// tells an unknown id (NotFound) from an already resolved one (Conflict).
func (r *GormPendingItemRepository) resolve(ctx context.Context, id uuid.UUID, updates map[string]any) (*sharepoint.PendingItem, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PendingItemModel{}).
		Where("id = ? AND status = ?", id, sharepoint.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	var model models.PendingItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	item, err := model.ToDomain()
	if err != nil {
		return nil, err
	}

	if result.RowsAffected == 0 {
		if err := item.EnsurePending(); err != nil {
			return nil, err
		}
		return nil, shared.ErrConflict
	}
	return item, nil
}

// Ensure GormPendingItemRepository implements PendingItemRepository
var _ sharepoint.PendingItemRepository = (*GormPendingItemRepository)(nil)

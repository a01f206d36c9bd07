package persistence

import (
	"context"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormScanRunRepository stores the scan audit trail
type GormScanRunRepository struct {
	db *gorm.DB
}

// NewGormScanRunRepository creates a new GormScanRunRepository
func NewGormScanRunRepository(db *gorm.DB) *GormScanRunRepository {
	return &GormScanRunRepository{db: db}
}

func (r *GormScanRunRepository) Save(ctx context.Context, run *sharepoint.ScanRun) error {
	return r.db.WithContext(ctx).Create(models.ScanRunModelFromDomain(run)).Error
}

// ListRecent returns the latest runs first
func (r *GormScanRunRepository) ListRecent(ctx context.Context, limit int) ([]sharepoint.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.ScanRunModel
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	runs := make([]sharepoint.ScanRun, len(rows))
	for i := range rows {
		runs[i] = rows[i].ToDomain()
	}
	return runs, nil
}

var _ sharepoint.ScanRunRepository = (*GormScanRunRepository)(nil)

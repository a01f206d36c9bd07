package persistence

import (
	"context"
	"time"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScanLeaseName is the row name of the scan lease
const ScanLeaseName = "sharepoint-scan"

// GormScanLease is a single-row lease table. A holder owns the lease until expires_at;
// an expired row can be taken over by anyone.
type GormScanLease struct {
	db   *gorm.DB
	name string
	now  func() time.Time
}

// NewGormScanLease creates a lease on the sharepoint-scan row
func NewGormScanLease(db *gorm.DB) *GormScanLease {
	return &GormScanLease{
		db:   db,
		name: ScanLeaseName,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Acquire takes over an expired row, or inserts the row when none exists.
func (l *GormScanLease) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	now := l.now()
	db := l.db.WithContext(ctx)

	takeover := db.Model(&models.ScanLeaseModel{}).
		Where("name = ? AND expires_at < ?", l.name, now).
		Updates(map[string]any{
			"holder":      holder,
			"acquired_at": now,
			"expires_at":  now.Add(ttl),
		})
	if takeover.Error != nil {
		return false, takeover.Error
	}
	if takeover.RowsAffected == 1 {
		return true, nil
	}

	insert := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&models.ScanLeaseModel{
		Name:       l.name,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	})
	if insert.Error != nil {
		return false, insert.Error
	}
	return insert.RowsAffected == 1, nil
}

// Release drops the lease if holder still owns it
func (l *GormScanLease) Release(ctx context.Context, holder string) error {
	return l.db.WithContext(ctx).
		Where("name = ? AND holder = ?", l.name, holder).
		Delete(&models.ScanLeaseModel{}).Error
}

var _ sharepoint.ScanLease = (*GormScanLease)(nil)

package models

import (
	"time"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/google/uuid"
)

// PendingItemModel is the persistence model for a detected remote folder.
// folder_name carries the unique index that makes InsertIfAbsent atomic.
type PendingItemModel struct {
	BaseModel
	FolderName     string                   `gorm:"type:varchar(512);not null;uniqueIndex:uq_sharepoint_pending_items_folder_name"`
	Files          string                   `gorm:"type:text;not null"`
	DetectedAt     time.Time                `gorm:"not null;index"`
	Status         sharepoint.PendingStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	OperationID    *uuid.UUID               `gorm:"type:uuid"`
	ImportedAt     *time.Time
	ImportedBy     *uuid.UUID `gorm:"type:uuid"`
	ImportedByName string     `gorm:"type:varchar(255);not null;default:''"`
	IgnoredAt      *time.Time
	IgnoredBy      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PendingItemModel) TableName() string {
	return "sharepoint_pending_items"
}

// ToDomain converts the persistence model to a domain PendingItem.
func (m *PendingItemModel) ToDomain() (*sharepoint.PendingItem, error) {
	item := &sharepoint.PendingItem{
		BaseEntity:     m.BaseModel.entity(),
		FolderName:     m.FolderName,
		DetectedAt:     m.DetectedAt,
		Status:         m.Status,
		OperationID:    m.OperationID,
		ImportedAt:     m.ImportedAt,
		ImportedBy:     m.ImportedBy,
		ImportedByName: m.ImportedByName,
		IgnoredAt:      m.IgnoredAt,
		IgnoredBy:      m.IgnoredBy,
	}
	if err := item.SetFilesFromJSON(m.Files); err != nil {
		return nil, err
	}
	return item, nil
}

// PendingItemModelFromDomain creates a persistence model from a domain PendingItem.
func PendingItemModelFromDomain(p *sharepoint.PendingItem) *PendingItemModel {
	m := &PendingItemModel{
		FolderName:     p.FolderName,
		Files:          p.FilesJSON(),
		DetectedAt:     p.DetectedAt,
		Status:         p.Status,
		OperationID:    p.OperationID,
		ImportedAt:     p.ImportedAt,
		ImportedBy:     p.ImportedBy,
		ImportedByName: p.ImportedByName,
		IgnoredAt:      p.IgnoredAt,
		IgnoredBy:      p.IgnoredBy,
	}
	m.BaseModel = baseModelOf(p.BaseEntity)
	return m
}

// PendingItemRow is a pending item joined with its operation number.
type PendingItemRow struct {
	PendingItemModel
	ImportedOperationNumber *string
}

// ToDomain converts the joined row to a view.
func (r *PendingItemRow) ToDomain() (*sharepoint.PendingItemView, error) {
	item, err := r.PendingItemModel.ToDomain()
	if err != nil {
		return nil, err
	}
	view := &sharepoint.PendingItemView{PendingItem: item}
	if r.ImportedOperationNumber != nil {
		view.ImportedOperationNumber = *r.ImportedOperationNumber
	}
	return view, nil
}

// ScanRunModel is the audit record of one scan pass.
type ScanRunModel struct {
	BaseModel
	Trigger    sharepoint.ScanTrigger   `gorm:"type:varchar(20);not null"`
	Holder     string                   `gorm:"type:varchar(255);not null"`
	StartedAt  time.Time                `gorm:"not null;index"`
	FinishedAt time.Time                `gorm:"not null"`
	Found      int                      `gorm:"not null;default:0"`
	NewCount   int                      `gorm:"column:new_count;not null;default:0"`
	Status     sharepoint.ScanRunStatus `gorm:"type:varchar(20);not null"`
	Error      string                   `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (ScanRunModel) TableName() string {
	return "sharepoint_scan_runs"
}

// ToDomain converts the persistence model to a domain ScanRun.
func (m *ScanRunModel) ToDomain() sharepoint.ScanRun {
	return sharepoint.ScanRun{
		BaseEntity: m.BaseModel.entity(),
		Trigger:    m.Trigger,
		Holder:     m.Holder,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Found:      m.Found,
		New:        m.NewCount,
		Status:     m.Status,
		Error:      m.Error,
	}
}

// ScanRunModelFromDomain creates a persistence model from a domain ScanRun.
func ScanRunModelFromDomain(r *sharepoint.ScanRun) *ScanRunModel {
	m := &ScanRunModel{
		Trigger:    r.Trigger,
		Holder:     r.Holder,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Found:      r.Found,
		NewCount:   r.New,
		Status:     r.Status,
		Error:      r.Error,
	}
	m.BaseModel = baseModelOf(r.BaseEntity)
	return m
}

// ScanLeaseModel is the single-row lease serializing scans.
type ScanLeaseModel struct {
	Name       string    `gorm:"type:varchar(64);primaryKey"`
	Holder     string    `gorm:"type:varchar(255);not null"`
	AcquiredAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ScanLeaseModel) TableName() string {
	return "sharepoint_scan_leases"
}

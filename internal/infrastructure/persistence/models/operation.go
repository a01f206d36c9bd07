package models

import (
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/google/uuid"
)

// OperationModel is the persistence model for the Operation aggregate root.
type OperationModel struct {
	BaseModel
	OperationNumber string                   `gorm:"type:varchar(50);not null;uniqueIndex:uq_operations_number"`
	Title           string                   `gorm:"type:varchar(512);not null"`
	SourceFolder    string                   `gorm:"type:varchar(512);not null;index"`
	OrderDocumentID *uuid.UUID               `gorm:"type:uuid"`
	CreatedBy       uuid.UUID                `gorm:"type:uuid;not null"`
	Documents       []OperationDocumentModel `gorm:"foreignKey:OperationID;references:ID"`
	Invoices        []InvoiceModel           `gorm:"foreignKey:OperationID;references:ID"`
}

// TableName returns the table name for GORM
func (OperationModel) TableName() string {
	return "operations"
}

// OperationDocumentModel is a file attached to an operation.
type OperationDocumentModel struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	OperationID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Category    operation.DocumentKind `gorm:"type:varchar(20);not null"`
	FileName    string                 `gorm:"type:varchar(512);not null"`
	DownloadURL string                 `gorm:"type:text;not null;default:''"`
	Position    int                    `gorm:"not null;default:0"`
	Linked      bool                   `gorm:"not null;default:false"`
	CreatedAt   time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OperationDocumentModel) TableName() string {
	return "operation_documents"
}

// InvoiceModel is a draft invoice created from an imported invoice file.
type InvoiceModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	OperationID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	DocumentID    uuid.UUID               `gorm:"type:uuid;not null"`
	InvoiceNumber string                  `gorm:"type:varchar(64);not null;uniqueIndex:uq_invoices_number"`
	Status        operation.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	CreatedAt     time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// OperationSequenceModel is the per-year operation number counter, keyed by "OP-YYYY-".
type OperationSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(16);primaryKey"`
	LastValue int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OperationSequenceModel) TableName() string {
	return "operation_number_sequences"
}

// ToDomain converts the persistence model to a domain Operation.
func (m *OperationModel) ToDomain() *operation.Operation {
	op := &operation.Operation{
		BaseEntity:      m.BaseModel.entity(),
		OperationNumber: m.OperationNumber,
		Title:           m.Title,
		SourceFolder:    m.SourceFolder,
		OrderDocumentID: m.OrderDocumentID,
		CreatedBy:       m.CreatedBy,
	}
	for _, d := range m.Documents {
		op.Documents = append(op.Documents, operation.Document{
			ID:          d.ID,
			OperationID: d.OperationID,
			Kind:        d.Category,
			FileName:    d.FileName,
			DownloadURL: d.DownloadURL,
			Position:    d.Position,
			Linked:      d.Linked,
			CreatedAt:   d.CreatedAt,
		})
	}
	for _, inv := range m.Invoices {
		op.Invoices = append(op.Invoices, operation.Invoice{
			ID:            inv.ID,
			OperationID:   inv.OperationID,
			DocumentID:    inv.DocumentID,
			InvoiceNumber: inv.InvoiceNumber,
			Status:        inv.Status,
			CreatedAt:     inv.CreatedAt,
		})
	}
	return op
}

// OperationModelFromDomain creates a persistence model from a domain Operation.
// Documents and invoices are returned separately so they can be inserted explicitly.
func OperationModelFromDomain(op *operation.Operation) (*OperationModel, []OperationDocumentModel, []InvoiceModel) {
	m := &OperationModel{
		OperationNumber: op.OperationNumber,
		Title:           op.Title,
		SourceFolder:    op.SourceFolder,
		OrderDocumentID: op.OrderDocumentID,
		CreatedBy:       op.CreatedBy,
	}
	m.BaseModel = baseModelOf(op.BaseEntity)

	docs := make([]OperationDocumentModel, 0, len(op.Documents))
	for _, d := range op.Documents {
		docs = append(docs, OperationDocumentModel{
			ID:          d.ID,
			OperationID: op.ID,
			Category:    d.Kind,
			FileName:    d.FileName,
			DownloadURL: d.DownloadURL,
			Position:    d.Position,
			Linked:      d.Linked,
			CreatedAt:   d.CreatedAt,
		})
	}
	invoices := make([]InvoiceModel, 0, len(op.Invoices))
	for _, inv := range op.Invoices {
		invoices = append(invoices, InvoiceModel{
			ID:            inv.ID,
			OperationID:   op.ID,
			DocumentID:    inv.DocumentID,
			InvoiceNumber: inv.InvoiceNumber,
			Status:        inv.Status,
			CreatedAt:     inv.CreatedAt,
		})
	}
	return m, docs, invoices
}

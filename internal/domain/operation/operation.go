// Package operation holds the minimal write model of the Operation aggregate that an import
// creates. Operation CRUD lives elsewhere in the ERP.
package operation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentKind tells how a document hangs off an operation
type DocumentKind string

const (
	DocumentOrder   DocumentKind = "order"
	DocumentInvoice DocumentKind = "invoice"
	DocumentOther   DocumentKind = "other"
)

// IsLinked reports whether documents of this kind are linked to a structured record.
func (k DocumentKind) IsLinked() bool {
	return k == DocumentOrder || k == DocumentInvoice
}

// Document is a file attached to an operation
type Document struct {
	ID          uuid.UUID
	OperationID uuid.UUID
	Kind        DocumentKind
	FileName    string
	DownloadURL string
	Position    int
	Linked      bool
	CreatedAt   time.Time
}

// InvoiceStatus of an invoice created from an imported file
type InvoiceStatus string

const InvoiceStatusDraft InvoiceStatus = "draft"

// Invoice is a draft invoice record pointing at its source document
type Invoice struct {
	ID            uuid.UUID
	OperationID   uuid.UUID
	DocumentID    uuid.UUID
	InvoiceNumber string
	Status        InvoiceStatus
	CreatedAt     time.Time
}

// Operation is the aggregate an imported folder turns into
type Operation struct {
	shared.BaseEntity
	OperationNumber string
	Title           string
	SourceFolder    string
	OrderDocumentID *uuid.UUID
	CreatedBy       uuid.UUID
	Documents       []Document
	Invoices        []Invoice
}

// NewOperation creates an operation shell for a source folder. It has no documents yet.
func NewOperation(number, sourceFolder string, createdBy uuid.UUID) (*Operation, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Operation number cannot be empty")
	}
	if strings.TrimSpace(sourceFolder) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source folder cannot be empty")
	}
	return &Operation{
		BaseEntity:      shared.NewBaseEntity(),
		OperationNumber: number,
		Title:           sourceFolder,
		SourceFolder:    sourceFolder,
		CreatedBy:       createdBy,
	}, nil
}

// AttachDocument adds a document. The first order document becomes the operation's primary
// order document, and every invoice document gets a draft invoice.
func (o *Operation) AttachDocument(kind DocumentKind, fileName, downloadURL string) Document {
	doc := Document{
		ID:          uuid.New(),
		OperationID: o.ID,
		Kind:        kind,
		FileName:    fileName,
		DownloadURL: downloadURL,
		Position:    len(o.Documents),
		Linked:      kind.IsLinked(),
		CreatedAt:   o.CreatedAt,
	}
	o.Documents = append(o.Documents, doc)

	switch kind {
	case DocumentOrder:
		if o.OrderDocumentID == nil {
			id := doc.ID
			o.OrderDocumentID = &id
		}
	case DocumentInvoice:
		o.Invoices = append(o.Invoices, Invoice{
			ID:            uuid.New(),
			OperationID:   o.ID,
			DocumentID:    doc.ID,
			InvoiceNumber: fmt.Sprintf("%s-INV-%02d", o.OperationNumber, len(o.Invoices)+1),
			Status:        InvoiceStatusDraft,
			CreatedAt:     o.CreatedAt,
		})
	}
	return doc
}

// DocumentsOf returns the documents of one kind in attachment order.
func (o *Operation) DocumentsOf(kind DocumentKind) []Document {
	var out []Document
	for _, d := range o.Documents {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Repository is the write port for operations
type Repository interface {
	// Create persists the operation with its documents and invoices.
	Create(ctx context.Context, op *Operation) error
	FindByID(ctx context.Context, id uuid.UUID) (*Operation, error)
	// GenerateOperationNumber draws the next number for the year of at. The number stays
	// reserved until the caller's transaction ends.
	// Format: OP-YYYY-NNNNN
	GenerateOperationNumber(ctx context.Context, at time.Time) (string, error)
}

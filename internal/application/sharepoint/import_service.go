package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// categoryOrder is the order documents are attached in. Within a category the snapshot
// order is kept.
var categoryOrder = []struct {
	category sharepoint.FileCategory
	kind     operation.DocumentKind
}{
	{sharepoint.CategoryOrder, operation.DocumentOrder},
	{sharepoint.CategoryInvoice, operation.DocumentInvoice},
	{sharepoint.CategoryOther, operation.DocumentOther},
}

// ImportService turns a pending item into an Operation.
type ImportService struct {
	txScope TransactionScope
	metrics Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewImportService creates a new ImportService
func NewImportService(txScope TransactionScope, logger *zap.Logger, timeout time.Duration) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		txScope: txScope,
		metrics: noopMetrics{},
		logger:  logger,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the metrics sink
func (s *ImportService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// ImportItem creates one Operation from the item's snapshot and marks the item imported,
// all in one transaction. Order files become linked order documents, invoice files become
// linked documents with a draft invoice each, and other files are kept as unlinked
// documents. On any failure the item stays pending.
func (s *ImportService) ImportItem(ctx context.Context, id uuid.UUID, actor sharepoint.Actor) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sharepoint_import", "import")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPendingItemID, id.String())

	if actor.ID == uuid.Nil {
		err := shared.NewDomainError(shared.CodeInvalidInput, "Actor is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var op *operation.Operation
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.PendingItems().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := item.EnsurePending(); err != nil {
			return err
		}
		telemetry.SetAttributes(span,
			telemetry.SpanAttrFolderName, item.FolderName,
			telemetry.SpanAttrFileCount, len(item.Files),
		)

		now := s.now()
		op, err = s.createOperation(ctx, repos.Operations(), item, actor, now)
		if err != nil {
			return err
		}

		_, err = repos.PendingItems().MarkImported(ctx, id, op.ID, actor, now)
		return err
	})
	err = asImportError(err)

	var documents map[string]int
	if err == nil {
		documents = documentCounts(op)
	}
	s.metrics.RecordImport(ctx, outcomeOf(err), documents)

	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Import failed", zap.String("pending_item_id", id.String()), zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOperationID, op.ID.String(),
		telemetry.SpanAttrOperationNumber, op.OperationNumber,
	)
	telemetry.SetOK(span)
	s.logger.Info("Pending item imported",
		zap.String("pending_item_id", id.String()),
		zap.String("operation_id", op.ID.String()),
		zap.String("operation_number", op.OperationNumber),
		zap.String("actor_id", actor.ID.String()),
	)
	return &ImportResult{OperationID: op.ID}, nil
}

func (s *ImportService) createOperation(
	ctx context.Context,
	repo operation.Repository,
	item *sharepoint.PendingItem,
	actor sharepoint.Actor,
	now time.Time,
) (*operation.Operation, error) {
	number, err := repo.GenerateOperationNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate operation number: %w", err)
	}

	op, err := operation.NewOperation(number, item.FolderName, actor.ID)
	if err != nil {
		return nil, err
	}
	op.CreatedAt = now
	op.UpdatedAt = now

	byCategory := item.FilesByCategory()
	for _, c := range categoryOrder {
		for _, f := range byCategory[c.category] {
			op.AttachDocument(c.kind, f.Name, f.DownloadURL)
		}
	}

	if err := repo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("create operation: %w", err)
	}
	return op, nil
}

// asImportError keeps domain errors (NotFound, Conflict, InvalidInput) as they are and
// reports anything else as a downstream failure.
func asImportError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.WrapDomainError(shared.CodeDownstreamFailure, "Failed to create operation records", err)
}

func documentCounts(op *operation.Operation) map[string]int {
	counts := make(map[string]int, 3)
	for _, d := range op.Documents {
		counts[string(d.Kind)]++
	}
	return counts
}

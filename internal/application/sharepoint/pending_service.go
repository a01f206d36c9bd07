package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OperationReader loads the operation an item was imported into
type OperationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*operation.Operation, error)
}

// PendingItemService serves the review queue: listing, detail and ignore.
type PendingItemService struct {
	pendingRepo sharepoint.PendingItemRepository
	runs        sharepoint.ScanRunRepository
	operations  OperationReader
	linker      sharepoint.DownloadLinker
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewPendingItemService creates a new PendingItemService
func NewPendingItemService(
	pendingRepo sharepoint.PendingItemRepository,
	runs sharepoint.ScanRunRepository,
	logger *zap.Logger,
) *PendingItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingItemService{
		pendingRepo: pendingRepo,
		runs:        runs,
		metrics:     noopMetrics{},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the metrics sink
func (s *PendingItemService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetDownloadLinker makes responses carry freshly minted download links instead of the
// stored references.
func (s *PendingItemService) SetDownloadLinker(l sharepoint.DownloadLinker) {
	s.linker = l
}

// SetOperations enables the document list on the detail of imported items.
func (s *PendingItemService) SetOperations(ops OperationReader) {
	s.operations = ops
}

// ClampLimit applies the list default and upper bound
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return sharepoint.DefaultListLimit
	case limit > sharepoint.MaxListLimit:
		return sharepoint.MaxListLimit
	default:
		return limit
	}
}

// ListPending returns items newest first, optionally filtered by status.
func (s *PendingItemService) ListPending(ctx context.Context, query ListPendingQuery) ([]PendingItemResponse, error) {
	status, err := sharepoint.ParsePendingStatus(query.Status)
	if err != nil {
		return nil, err
	}

	views, err := s.pendingRepo.ListByStatus(ctx, status, ClampLimit(query.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]PendingItemResponse, len(views))
	for i := range views {
		out[i] = s.respond(ctx, &views[i])
	}
	return out, nil
}

// GetPendingItem returns one item by id. An imported item also lists the documents of
// its operation.
func (s *PendingItemService) GetPendingItem(ctx context.Context, id uuid.UUID) (*PendingItemResponse, error) {
	view, err := s.pendingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.respond(ctx, view)
	if resp.Documents, err = s.documents(ctx, view); err != nil {
		return nil, err
	}
	return &resp, nil
}

// respond converts a view, swapping stored download references for minted links.
func (s *PendingItemService) respond(ctx context.Context, v *sharepoint.PendingItemView) PendingItemResponse {
	resp := ToPendingItemResponse(v)
	if s.linker == nil || len(v.Files) == 0 {
		return resp
	}

	files := make([]sharepoint.ClassifiedFile, len(v.Files))
	changed := false
	for i, f := range v.Files {
		link := s.link(ctx, f.DownloadURL)
		changed = changed || link != f.DownloadURL
		f.DownloadURL = link
		files[i] = f
	}
	if !changed {
		return resp
	}
	// presigned query strings are full of '&', keep them readable
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(files); err != nil {
		s.logger.Warn("Failed to encode linked files", zap.String("pending_item_id", v.ID.String()), zap.Error(err))
		return resp
	}
	resp.Files = strings.TrimSuffix(buf.String(), "\n")
	return resp
}

// link falls back to the stored reference when no link can be minted.
func (s *PendingItemService) link(ctx context.Context, ref string) string {
	if s.linker == nil || ref == "" {
		return ref
	}
	link, err := s.linker.LinkFor(ctx, ref)
	if err != nil {
		s.logger.Warn("Download link unavailable", zap.String("ref", ref), zap.Error(err))
		return ref
	}
	return link
}

func (s *PendingItemService) documents(ctx context.Context, v *sharepoint.PendingItemView) ([]OperationDocumentResponse, error) {
	if s.operations == nil || v.OperationID == nil {
		return nil, nil
	}
	op, err := s.operations.FindByID(ctx, *v.OperationID)
	if errors.Is(err, shared.ErrNotFound) {
		// removed on the ERP side after the import
		s.logger.Warn("Imported operation not found",
			zap.String("pending_item_id", v.ID.String()),
			zap.String("operation_id", v.OperationID.String()))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]OperationDocumentResponse, 0, len(op.Documents))
	for _, c := range categoryOrder {
		for _, d := range op.DocumentsOf(c.kind) {
			out = append(out, OperationDocumentResponse{
				ID:          d.ID,
				Type:        string(d.Kind),
				FileName:    d.FileName,
				DownloadURL: s.link(ctx, d.DownloadURL),
				Linked:      d.Linked,
			})
		}
	}
	return out, nil
}

// IgnoreItem moves a pending item to ignored. It creates no other records, and an ignored
// item is never offered again.
func (s *PendingItemService) IgnoreItem(ctx context.Context, id uuid.UUID, actor sharepoint.Actor) (*sharepoint.PendingItem, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sharepoint_pending", "ignore")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPendingItemID, id.String())

	if actor.ID == uuid.Nil {
		err := shared.NewDomainError(shared.CodeInvalidInput, "Actor is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	item, err := s.pendingRepo.MarkIgnored(ctx, id, actor, s.now())
	s.metrics.RecordIgnore(ctx, outcomeOf(err))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Pending item ignored",
		zap.String("pending_item_id", id.String()),
		zap.String("folder", item.FolderName),
		zap.String("actor_id", actor.ID.String()),
	)
	return item, nil
}

// ListScanRuns returns the most recent scan audit records
func (s *PendingItemService) ListScanRuns(ctx context.Context, limit int) ([]ScanRunResponse, error) {
	if s.runs == nil {
		return []ScanRunResponse{}, nil
	}
	runs, err := s.runs.ListRecent(ctx, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]ScanRunResponse, len(runs))
	for i := range runs {
		out[i] = ToScanRunResponse(&runs[i])
	}
	return out, nil
}

package sharepoint

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, ClampLimit(0))
	assert.Equal(t, 100, ClampLimit(-5))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, 500, ClampLimit(500))
	assert.Equal(t, 500, ClampLimit(10_000))
}

func TestPendingItemService_ListPending(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())

	opID := uuid.New()
	importedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	imported := newTestPendingItem(t, sharepoint.ClassifiedFile{Name: "PO.pdf", DownloadURL: "u", Type: sharepoint.CategoryOrder})
	imported.Status = sharepoint.StatusImported
	imported.OperationID = &opID
	imported.ImportedAt = &importedAt
	imported.ImportedByName = "Dana Reviewer"

	repo.On("ListByStatus", mock.Anything, sharepoint.StatusImported, 100).Return([]sharepoint.PendingItemView{
		{PendingItem: imported, ImportedOperationNumber: "OP-2026-00001"},
	}, nil)

	items, err := svc.ListPending(context.Background(), ListPendingQuery{Status: "imported"})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, imported.ID, items[0].ID)
	assert.Equal(t, "imported", items[0].Status)
	assert.Equal(t, `[{"name":"PO.pdf","downloadUrl":"u","type":"order"}]`, items[0].Files)
	assert.Equal(t, &opID, items[0].OperationID)
	require.NotNil(t, items[0].ImportedByName)
	assert.Equal(t, "Dana Reviewer", *items[0].ImportedByName)
	require.NotNil(t, items[0].ImportedOperationNumber)
	assert.Equal(t, "OP-2026-00001", *items[0].ImportedOperationNumber)
}

func TestPendingItemService_ListPending_PendingHasNullResolution(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	item := newTestPendingItem(t)
	repo.On("ListByStatus", mock.Anything, sharepoint.PendingStatus(""), 500).
		Return([]sharepoint.PendingItemView{{PendingItem: item}}, nil)

	items, err := svc.ListPending(context.Background(), ListPendingQuery{Limit: 9000})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].OperationID)
	assert.Nil(t, items[0].ImportedAt)
	assert.Nil(t, items[0].ImportedByName)
	assert.Nil(t, items[0].ImportedOperationNumber)
}

func TestPendingItemService_ListPending_InvalidStatus(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())

	_, err := svc.ListPending(context.Background(), ListPendingQuery{Status: "archived"})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	repo.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPendingItemService_GetPendingItem(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	item := newTestPendingItem(t)
	missing := uuid.New()
	repo.On("FindByID", mock.Anything, item.ID).Return(&sharepoint.PendingItemView{PendingItem: item}, nil)
	repo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)

	got, err := svc.GetPendingItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Operation A", got.FolderName)

	_, err = svc.GetPendingItem(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// schemeLinker signs s3:// references and leaves everything else alone
type schemeLinker struct {
	err error
}

func (l schemeLinker) LinkFor(_ context.Context, ref string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		return "https://signed.example/" + rest + "?X-Amz-Expires=900&X-Amz-Signature=abc", nil
	}
	return ref, nil
}

func TestPendingItemService_ListPending_MintsDownloadLinks(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	svc.SetDownloadLinker(schemeLinker{})

	item := newTestPendingItem(t,
		sharepoint.ClassifiedFile{Name: "PO.pdf", DownloadURL: "s3://docs/Operation A/PO.pdf", Type: sharepoint.CategoryOrder},
		sharepoint.ClassifiedFile{Name: "INV.pdf", DownloadURL: "https://web/inv", Type: sharepoint.CategoryInvoice},
	)
	stored := item.FilesJSON()
	repo.On("ListByStatus", mock.Anything, sharepoint.PendingStatus(""), 100).
		Return([]sharepoint.PendingItemView{{PendingItem: item}}, nil)

	items, err := svc.ListPending(context.Background(), ListPendingQuery{})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t,
		`[{"name":"PO.pdf","downloadUrl":"https://signed.example/docs/Operation A/PO.pdf?X-Amz-Expires=900&X-Amz-Signature=abc","type":"order"},`+
			`{"name":"INV.pdf","downloadUrl":"https://web/inv","type":"invoice"}]`,
		items[0].Files)
	assert.Equal(t, stored, item.FilesJSON(), "stored snapshot is left untouched")
	assert.Contains(t, stored, "s3://docs/Operation A/PO.pdf")
}

func TestPendingItemService_ListPending_LinkFailureKeepsStoredReference(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	svc.SetDownloadLinker(schemeLinker{err: errors.New("no credentials")})

	item := newTestPendingItem(t,
		sharepoint.ClassifiedFile{Name: "PO.pdf", DownloadURL: "s3://docs/A/PO.pdf", Type: sharepoint.CategoryOrder})
	repo.On("ListByStatus", mock.Anything, sharepoint.PendingStatus(""), 100).
		Return([]sharepoint.PendingItemView{{PendingItem: item}}, nil)

	items, err := svc.ListPending(context.Background(), ListPendingQuery{})

	require.NoError(t, err)
	assert.Equal(t, item.FilesJSON(), items[0].Files)
}

func TestPendingItemService_GetPendingItem_ImportedListsDocuments(t *testing.T) {
	repo := new(MockPendingItemRepository)
	ops := new(MockOperationRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	svc.SetOperations(ops)
	svc.SetDownloadLinker(schemeLinker{})

	op, err := operation.NewOperation("OP-2026-00004", "Operation A", testActor.ID)
	require.NoError(t, err)
	op.AttachDocument(operation.DocumentOther, "notes.txt", "s3://docs/A/notes.txt")
	op.AttachDocument(operation.DocumentInvoice, "INV.pdf", "s3://docs/A/INV.pdf")
	op.AttachDocument(operation.DocumentOrder, "PO.pdf", "https://web/po")

	item := newTestPendingItem(t)
	require.NoError(t, item.MarkImported(op.ID, testActor, time.Now().UTC()))
	repo.On("FindByID", mock.Anything, item.ID).
		Return(&sharepoint.PendingItemView{PendingItem: item, ImportedOperationNumber: op.OperationNumber}, nil)
	ops.On("FindByID", mock.Anything, op.ID).Return(op, nil)

	got, err := svc.GetPendingItem(context.Background(), item.ID)

	require.NoError(t, err)
	require.Len(t, got.Documents, 3)
	assert.Equal(t, []string{"order", "invoice", "other"},
		[]string{got.Documents[0].Type, got.Documents[1].Type, got.Documents[2].Type})
	assert.Equal(t, "https://web/po", got.Documents[0].DownloadURL)
	assert.Equal(t, "https://signed.example/docs/A/INV.pdf?X-Amz-Expires=900&X-Amz-Signature=abc", got.Documents[1].DownloadURL)
	assert.True(t, got.Documents[1].Linked)
	assert.False(t, got.Documents[2].Linked)
}

func TestPendingItemService_GetPendingItem_Documents(t *testing.T) {
	t.Run("pending item skips the operation lookup", func(t *testing.T) {
		repo := new(MockPendingItemRepository)
		ops := new(MockOperationRepository)
		svc := NewPendingItemService(repo, nil, zap.NewNop())
		svc.SetOperations(ops)
		item := newTestPendingItem(t)
		repo.On("FindByID", mock.Anything, item.ID).Return(&sharepoint.PendingItemView{PendingItem: item}, nil)

		got, err := svc.GetPendingItem(context.Background(), item.ID)

		require.NoError(t, err)
		assert.Empty(t, got.Documents)
		ops.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing operation still returns the item", func(t *testing.T) {
		repo := new(MockPendingItemRepository)
		ops := new(MockOperationRepository)
		svc := NewPendingItemService(repo, nil, zap.NewNop())
		svc.SetOperations(ops)
		item := newTestPendingItem(t)
		opID := uuid.New()
		require.NoError(t, item.MarkImported(opID, testActor, time.Now().UTC()))
		repo.On("FindByID", mock.Anything, item.ID).Return(&sharepoint.PendingItemView{PendingItem: item}, nil)
		ops.On("FindByID", mock.Anything, opID).Return(nil, shared.ErrNotFound)

		got, err := svc.GetPendingItem(context.Background(), item.ID)

		require.NoError(t, err)
		assert.Empty(t, got.Documents)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		repo := new(MockPendingItemRepository)
		ops := new(MockOperationRepository)
		svc := NewPendingItemService(repo, nil, zap.NewNop())
		svc.SetOperations(ops)
		item := newTestPendingItem(t)
		opID := uuid.New()
		require.NoError(t, item.MarkImported(opID, testActor, time.Now().UTC()))
		repo.On("FindByID", mock.Anything, item.ID).Return(&sharepoint.PendingItemView{PendingItem: item}, nil)
		ops.On("FindByID", mock.Anything, opID).Return(nil, errors.New("connection reset"))

		_, err := svc.GetPendingItem(context.Background(), item.ID)

		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestPendingItemService_IgnoreItem(t *testing.T) {
	repo := new(MockPendingItemRepository)
	metrics := &recordingMetrics{}
	svc := NewPendingItemService(repo, nil, zap.NewNop())
	svc.SetMetrics(metrics)

	item := newTestPendingItem(t)
	require.NoError(t, item.MarkIgnored(testActor, time.Now().UTC()))
	repo.On("MarkIgnored", mock.Anything, item.ID, testActor, mock.AnythingOfType("time.Time")).Return(item, nil)

	got, err := svc.IgnoreItem(context.Background(), item.ID, testActor)

	require.NoError(t, err)
	assert.Equal(t, sharepoint.StatusIgnored, got.Status)
	assert.Equal(t, []string{OutcomeSuccess}, metrics.ignores)
}

func TestPendingItemService_IgnoreItem_Errors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		outcome string
	}{
		{"unknown id", shared.ErrNotFound, OutcomeNotFound},
		{"already resolved", shared.NewDomainError(shared.CodeConflict, "Folder was already resolved (imported)"), OutcomeConflict},
		{"store failure", errors.New("connection reset"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPendingItemRepository)
			metrics := &recordingMetrics{}
			svc := NewPendingItemService(repo, nil, zap.NewNop())
			svc.SetMetrics(metrics)
			id := uuid.New()
			repo.On("MarkIgnored", mock.Anything, id, testActor, mock.Anything).Return(nil, tt.repoErr)

			_, err := svc.IgnoreItem(context.Background(), id, testActor)

			assert.ErrorIs(t, err, tt.repoErr)
			assert.Equal(t, []string{tt.outcome}, metrics.ignores)
		})
	}
}

func TestPendingItemService_IgnoreItem_RequiresActor(t *testing.T) {
	repo := new(MockPendingItemRepository)
	svc := NewPendingItemService(repo, nil, zap.NewNop())

	_, err := svc.IgnoreItem(context.Background(), uuid.New(), sharepoint.Actor{Name: "anonymous"})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	repo.AssertNotCalled(t, "MarkIgnored", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPendingItemService_ListScanRuns(t *testing.T) {
	runs := new(MockScanRunRepository)
	svc := NewPendingItemService(new(MockPendingItemRepository), runs, zap.NewNop())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := sharepoint.NewScanRun(sharepoint.TriggerScheduled, "host/1", start)
	run.Succeed(4, 1, start.Add(1500*time.Millisecond))
	runs.On("ListRecent", mock.Anything, 20).Return([]sharepoint.ScanRun{*run}, nil)

	got, err := svc.ListScanRuns(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "scheduled", got[0].Trigger)
	assert.Equal(t, int64(1500), got[0].DurationMs)
	assert.Equal(t, 4, got[0].Found)
	assert.Equal(t, 1, got[0].New)

	empty, err := NewPendingItemService(new(MockPendingItemRepository), nil, nil).ListScanRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

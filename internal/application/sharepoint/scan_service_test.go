package sharepoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scanFixture struct {
	source  *MockFolderSource
	pending *MockPendingItemRepository
	lease   *MockScanLease
	runs    *MockScanRunRepository
	scope   *mockTxScope
	metrics *recordingMetrics
	service *ScanService
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	f := &scanFixture{
		source:  new(MockFolderSource),
		pending: new(MockPendingItemRepository),
		lease:   new(MockScanLease),
		runs:    new(MockScanRunRepository),
		metrics: &recordingMetrics{},
	}
	f.scope = &mockTxScope{pending: f.pending}
	f.service = NewScanService(f.source, nil, f.scope, f.lease, f.runs, zap.NewNop(), ScanConfig{
		RootPath: "Operations (Sales orders)",
		Timeout:  time.Second,
		LeaseTTL: time.Minute,
	})
	f.service.SetMetrics(f.metrics)
	return f
}

func (f *scanFixture) leaseFree() {
	f.lease.On("Acquire", mock.Anything, mock.AnythingOfType("string"), time.Minute).Return(true, nil).Once()
	f.lease.On("Release", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
}

func sampleFolders() []sharepoint.RemoteFolder {
	return []sharepoint.RemoteFolder{
		{Name: "Operation A", Files: []sharepoint.RemoteFile{
			{Name: "PO_1001.pdf", DownloadURL: "https://files/a/po"},
			{Name: "INV_1001.pdf", DownloadURL: "https://files/a/inv"},
		}},
		{Name: "Operation B", Files: []sharepoint.RemoteFile{
			{Name: "random.pdf", DownloadURL: "https://files/b/r"},
		}},
		{Name: "Operation C"},
	}
}

func TestScanService_Scan_RecordsNewFolders(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, "Operations (Sales orders)").Return(sampleFolders(), nil)

	var inserted []*sharepoint.PendingItem
	capture := func(args mock.Arguments) { inserted = append(inserted, args.Get(1).(*sharepoint.PendingItem)) }
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.FolderName != "Operation B"
	})).Run(capture).Return(true, nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.FolderName == "Operation B"
	})).Run(capture).Return(false, nil)
	f.runs.On("Save", mock.Anything, mock.MatchedBy(func(r *sharepoint.ScanRun) bool {
		return r.Status == sharepoint.ScanRunSucceeded && r.Found == 3 && r.New == 2
	})).Return(nil).Once()

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	require.NoError(t, err)
	assert.Equal(t, &ScanResult{Found: 3, New: 2}, result)
	assert.Equal(t, 1, f.scope.calls, "all inserts share one transaction")

	require.Len(t, inserted, 3)
	assert.Equal(t, "Operation A", inserted[0].FolderName)
	assert.Equal(t, sharepoint.StatusPending, inserted[0].Status)
	assert.Equal(t, []sharepoint.ClassifiedFile{
		{Name: "PO_1001.pdf", DownloadURL: "https://files/a/po", Type: sharepoint.CategoryOrder},
		{Name: "INV_1001.pdf", DownloadURL: "https://files/a/inv", Type: sharepoint.CategoryInvoice},
	}, inserted[0].Files)
	assert.Equal(t, sharepoint.CategoryOther, inserted[1].Files[0].Type)
	assert.Equal(t, "[]", inserted[2].FilesJSON())

	assert.Equal(t, []string{OutcomeSuccess}, f.metrics.scans)
	f.lease.AssertExpectations(t)
	f.runs.AssertExpectations(t)
}

func TestScanService_Scan_LeaseHeld(t *testing.T) {
	f := newScanFixture(t)
	f.lease.On("Acquire", mock.Anything, mock.Anything, time.Minute).Return(false, nil)

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrScanInProgress)
	f.source.AssertNotCalled(t, "ListFolders", mock.Anything, mock.Anything)
	f.lease.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	f.runs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, []string{OutcomeBusy}, f.metrics.scans)
}

func TestScanService_Scan_LeaseStoreError(t *testing.T) {
	f := newScanFixture(t)
	f.lease.On("Acquire", mock.Anything, mock.Anything, time.Minute).Return(false, errors.New("db down"))

	_, err := f.service.Scan(context.Background(), sharepoint.TriggerScheduled)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire scan lease")
	f.source.AssertNotCalled(t, "ListFolders", mock.Anything, mock.Anything)
}

func TestScanService_Scan_SourceFailureWritesNothing(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return(nil, errors.New("401 unauthorized"))
	f.runs.On("Save", mock.Anything, mock.MatchedBy(func(r *sharepoint.ScanRun) bool {
		return r.Status == sharepoint.ScanRunFailed && r.Error != ""
	})).Return(nil).Once()

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Equal(t, 0, f.scope.calls)
	f.pending.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
	f.lease.AssertExpectations(t)
	assert.Equal(t, []string{OutcomeSourceUnavailable}, f.metrics.scans)
}

func TestScanService_Scan_EmptyRootIsSourceUnavailable(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return([]sharepoint.RemoteFolder{}, nil)
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	assert.ErrorIs(t, err, shared.ErrSourceUnavailable)
	assert.ErrorIs(t, err, sharepoint.ErrEmptyRoot)
	f.pending.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
}

func TestScanService_Scan_SourceTimeout(t *testing.T) {
	f := newScanFixture(t)
	f.service.cfg.Timeout = 20 * time.Millisecond
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, context.DeadlineExceeded)
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	assert.ErrorIs(t, err, shared.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScanService_Scan_StoreFailureReportsNoNewItems(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return(sampleFolders(), nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.FolderName == "Operation A"
	})).Return(true, nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.FolderName == "Operation B"
	})).Return(false, errors.New("disk full"))
	f.runs.On("Save", mock.Anything, mock.MatchedBy(func(r *sharepoint.ScanRun) bool {
		return r.Status == sharepoint.ScanRunFailed && r.New == 0 && r.Found == 3
	})).Return(nil).Once()

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `insert pending item "Operation B"`)
	assert.Equal(t, 0, f.metrics.created)
	f.lease.AssertExpectations(t)
	f.runs.AssertExpectations(t)
}

func TestScanService_Scan_DeduplicatesListedNames(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return([]sharepoint.RemoteFolder{
		{Name: "Operation A", Files: []sharepoint.RemoteFile{{Name: "PO.pdf"}}},
		{Name: "Operation A", Files: []sharepoint.RemoteFile{{Name: "other.pdf"}}},
		{Name: "  "},
	}, nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.FolderName == "Operation A" && i.Files[0].Name == "PO.pdf"
	})).Return(true, nil).Once()
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	require.NoError(t, err)
	assert.Equal(t, &ScanResult{Found: 1, New: 1}, result)
	f.pending.AssertExpectations(t)
}

func TestScanService_Scan_AuditFailureDoesNotFailScan(t *testing.T) {
	f := newScanFixture(t)
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return(sampleFolders(), nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, nil)
	f.runs.On("Save", mock.Anything, mock.Anything).Return(errors.New("audit table missing"))

	result, err := f.service.Scan(context.Background(), sharepoint.TriggerManual)

	require.NoError(t, err)
	assert.Equal(t, &ScanResult{Found: 3, New: 0}, result)
}

func TestScanService_Scan_UsesConfiguredPatterns(t *testing.T) {
	f := newScanFixture(t)
	classifier, err := sharepoint.NewClassifier(sharepoint.ClassifierOptions{OrderPatterns: []string{"pedido*"}})
	require.NoError(t, err)
	f.service.classifier = classifier
	f.leaseFree()
	f.source.On("ListFolders", mock.Anything, mock.Anything).Return([]sharepoint.RemoteFolder{
		{Name: "Operation D", Files: []sharepoint.RemoteFile{{Name: "Pedido-77.pdf"}}},
	}, nil)
	f.pending.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(i *sharepoint.PendingItem) bool {
		return i.Files[0].Type == sharepoint.CategoryOrder
	})).Return(true, nil).Once()
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err = f.service.Scan(context.Background(), sharepoint.TriggerManual)
	require.NoError(t, err)
	f.pending.AssertExpectations(t)
}

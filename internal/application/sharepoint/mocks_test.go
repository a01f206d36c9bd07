package sharepoint

import (
	"context"
	"sync"
	"time"

	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockFolderSource is a mock implementation of sharepoint.FolderSource
type MockFolderSource struct {
	mock.Mock
}

func (m *MockFolderSource) ListFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	args := m.Called(ctx, rootPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.RemoteFolder), args.Error(1)
}

// MockPendingItemRepository is a mock implementation of sharepoint.PendingItemRepository
type MockPendingItemRepository struct {
	mock.Mock
}

func (m *MockPendingItemRepository) InsertIfAbsent(ctx context.Context, item *sharepoint.PendingItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingItemRepository) ListByStatus(ctx context.Context, status sharepoint.PendingStatus, limit int) ([]sharepoint.PendingItemView, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.PendingItemView), args.Error(1)
}

func (m *MockPendingItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*sharepoint.PendingItemView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.PendingItemView), args.Error(1)
}

func (m *MockPendingItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sharepoint.PendingItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.PendingItem), args.Error(1)
}

func (m *MockPendingItemRepository) FindByFolderName(ctx context.Context, folderName string) (*sharepoint.PendingItem, error) {
	args := m.Called(ctx, folderName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.PendingItem), args.Error(1)
}

func (m *MockPendingItemRepository) MarkImported(ctx context.Context, id, operationID uuid.UUID, actor sharepoint.Actor, at time.Time) (*sharepoint.PendingItem, error) {
	args := m.Called(ctx, id, operationID, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.PendingItem), args.Error(1)
}

func (m *MockPendingItemRepository) MarkIgnored(ctx context.Context, id uuid.UUID, actor sharepoint.Actor, at time.Time) (*sharepoint.PendingItem, error) {
	args := m.Called(ctx, id, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharepoint.PendingItem), args.Error(1)
}

// MockOperationRepository is a mock implementation of operation.Repository
type MockOperationRepository struct {
	mock.Mock
}

func (m *MockOperationRepository) Create(ctx context.Context, op *operation.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*operation.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operation.Operation), args.Error(1)
}

func (m *MockOperationRepository) GenerateOperationNumber(ctx context.Context, at time.Time) (string, error) {
	args := m.Called(ctx, at)
	return args.String(0), args.Error(1)
}

// MockScanLease is a mock implementation of sharepoint.ScanLease
type MockScanLease struct {
	mock.Mock
}

func (m *MockScanLease) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockScanLease) Release(ctx context.Context, holder string) error {
	args := m.Called(ctx, holder)
	return args.Error(0)
}

// MockScanRunRepository is a mock implementation of sharepoint.ScanRunRepository
type MockScanRunRepository struct {
	mock.Mock
}

func (m *MockScanRunRepository) Save(ctx context.Context, run *sharepoint.ScanRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockScanRunRepository) ListRecent(ctx context.Context, limit int) ([]sharepoint.ScanRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sharepoint.ScanRun), args.Error(1)
}

// mockTxScope runs fn directly against the mocks and returns its error unchanged.
type mockTxScope struct {
	pending    *MockPendingItemRepository
	operations *MockOperationRepository
	calls      int
}

func (s *mockTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	return fn(s)
}

func (s *mockTxScope) PendingItems() sharepoint.PendingItemRepository { return s.pending }
func (s *mockTxScope) Operations() operation.Repository               { return s.operations }

// recordingMetrics keeps the outcomes it was given
type recordingMetrics struct {
	mu       sync.Mutex
	scans    []string
	imports  []string
	ignores  []string
	found    int
	created  int
	docCount map[string]int
}

func (r *recordingMetrics) RecordScan(_ context.Context, _, outcome string, found, created int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, outcome)
	r.found += found
	r.created += created
}

func (r *recordingMetrics) RecordImport(_ context.Context, outcome string, documents map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports = append(r.imports, outcome)
	if r.docCount == nil {
		r.docCount = map[string]int{}
	}
	for k, v := range documents {
		r.docCount[k] += v
	}
}

func (r *recordingMetrics) RecordIgnore(_ context.Context, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignores = append(r.ignores, outcome)
}

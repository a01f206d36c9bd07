package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/domain/operation"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/migration"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPostgres starts a disposable PostgreSQL and applies the embedded migrations.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("spsync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_ConcurrentImportsCreateOneOperation(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db)
	repo := NewGormPendingItemRepository(db)

	item, err := sharepoint.NewPendingItem("Operation A", []sharepoint.ClassifiedFile{
		{Name: "PO_1.pdf", DownloadURL: "u1", Type: sharepoint.CategoryOrder},
		{Name: "INV_1.pdf", DownloadURL: "u2", Type: sharepoint.CategoryInvoice},
	}, time.Now().UTC())
	require.NoError(t, err)
	_, err = repo.InsertIfAbsent(ctx, item)
	require.NoError(t, err)

	imports := spapp.NewImportService(scope, zap.NewNop(), 10*time.Second)

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = imports.ImportItem(ctx, item.ID, reviewer)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, shared.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var ops int64
	require.NoError(t, db.Model(&models.OperationModel{}).Count(&ops).Error)
	assert.Equal(t, int64(1), ops)
}

func TestPostgres_ConcurrentImportsOfDifferentItemsAllSucceed(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewGormPendingItemRepository(db)

	// an operation numbered before the counter existed
	seed, err := operation.NewOperation("OP-"+time.Now().UTC().Format("2006")+"-00005", "Legacy", uuid.New())
	require.NoError(t, err)
	require.NoError(t, NewGormOperationRepository(db).Create(ctx, seed))

	const workers = 6
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		item, err := sharepoint.NewPendingItem(fmt.Sprintf("Operation %d", i), []sharepoint.ClassifiedFile{
			{Name: "INV_1.pdf", DownloadURL: "u", Type: sharepoint.CategoryInvoice},
		}, time.Now().UTC())
		require.NoError(t, err)
		_, err = repo.InsertIfAbsent(ctx, item)
		require.NoError(t, err)
		ids[i] = item.ID
	}

	imports := spapp.NewImportService(NewGormTransactionScope(db), zap.NewNop(), 10*time.Second)

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = imports.ImportItem(ctx, ids[i], reviewer)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "import %d", i)
	}

	var numbers []string
	require.NoError(t, db.Model(&models.OperationModel{}).
		Where("source_folder <> ?", "Legacy").
		Order("operation_number").
		Pluck("operation_number", &numbers).Error)
	require.Len(t, numbers, workers)
	year := time.Now().UTC().Format("2006")
	for i, n := range numbers {
		assert.Equal(t, fmt.Sprintf("OP-%s-%05d", year, 6+i), n)
	}
}

func TestPostgres_ScanIsIdempotentAcrossInstances(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	source := &staticSource{folders: []sharepoint.RemoteFolder{{Name: "Operation A"}, {Name: "Operation B"}}}

	newScanner := func() *spapp.ScanService {
		return spapp.NewScanService(source, nil, NewGormTransactionScope(db), NewGormScanLease(db),
			NewGormScanRunRepository(db), zap.NewNop(), spapp.ScanConfig{
				RootPath: "root", Timeout: 5 * time.Second, LeaseTTL: time.Minute,
			})
	}

	first, err := newScanner().Scan(ctx, sharepoint.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, first.New)

	second, err := newScanner().Scan(ctx, sharepoint.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, &spapp.ScanResult{Found: 2, New: 0}, second)
}

func TestPostgres_StatusOperationConstraint(t *testing.T) {
	db := setupPostgres(t)

	item, err := sharepoint.NewPendingItem("Operation A", nil, time.Now().UTC())
	require.NoError(t, err)
	model := models.PendingItemModelFromDomain(item)
	model.Status = sharepoint.StatusImported

	err = db.Create(model).Error
	assert.Error(t, err, "imported rows must reference an operation")
}

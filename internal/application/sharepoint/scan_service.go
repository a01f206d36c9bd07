package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const leaseReleaseTimeout = 5 * time.Second

// ScanConfig bounds a scan pass
type ScanConfig struct {
	RootPath string
	Timeout  time.Duration
	LeaseTTL time.Duration
}

// ScanService reconciles the remote folder listing into the pending item store.
type ScanService struct {
	source     sharepoint.FolderSource
	classifier *sharepoint.Classifier
	txScope    TransactionScope
	lease      sharepoint.ScanLease
	runs       sharepoint.ScanRunRepository
	metrics    Metrics
	logger     *zap.Logger
	cfg        ScanConfig
	hostname   string
	now        func() time.Time
}

// NewScanService creates a new ScanService. runs may be nil to skip the audit trail.
func NewScanService(
	source sharepoint.FolderSource,
	classifier *sharepoint.Classifier,
	txScope TransactionScope,
	lease sharepoint.ScanLease,
	runs sharepoint.ScanRunRepository,
	logger *zap.Logger,
	cfg ScanConfig,
) *ScanService {
	if classifier == nil {
		classifier = &sharepoint.Classifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	return &ScanService{
		source:     source,
		classifier: classifier,
		txScope:    txScope,
		lease:      lease,
		runs:       runs,
		metrics:    noopMetrics{},
		logger:     logger,
		cfg:        cfg,
		hostname:   hostname,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the metrics sink
func (s *ScanService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Scan lists the remote root, records every folder not seen before as pending, and
// reports how many folders were listed and how many were new. Only one scan runs at a time
// across all processes sharing the lease.
func (s *ScanService) Scan(ctx context.Context, trigger sharepoint.ScanTrigger) (*ScanResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sharepoint_scan", "scan")
	defer span.End()

	start := s.now()
	holder := fmt.Sprintf("%s/%s", s.hostname, uuid.NewString())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrScanTrigger, string(trigger),
		telemetry.SpanAttrScanHolder, holder,
		telemetry.SpanAttrRootPath, s.cfg.RootPath,
	)

	acquired, err := s.lease.Acquire(ctx, holder, s.cfg.LeaseTTL)
	if err != nil {
		err = fmt.Errorf("acquire scan lease: %w", err)
		telemetry.RecordError(span, err)
		s.metrics.RecordScan(ctx, string(trigger), OutcomeError, 0, 0, s.now().Sub(start))
		return nil, err
	}
	if !acquired {
		s.logger.Info("Scan skipped, lease held elsewhere", zap.String("trigger", string(trigger)))
		telemetry.RecordError(span, shared.ErrScanInProgress)
		s.metrics.RecordScan(ctx, string(trigger), OutcomeBusy, 0, 0, s.now().Sub(start))
		return nil, shared.ErrScanInProgress
	}
	defer s.releaseLease(ctx, holder)

	run := sharepoint.NewScanRun(trigger, holder, start)
	found, created, err := s.reconcile(ctx, start)
	finished := s.now()
	if err != nil {
		run.Fail(err, found, finished)
	} else {
		run.Succeed(found, created, finished)
	}
	s.saveRun(ctx, run)
	s.metrics.RecordScan(ctx, string(trigger), outcomeOf(err), found, created, run.Duration())

	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Scan failed",
			zap.String("trigger", string(trigger)),
			zap.Int("found", found),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFoldersFound, found,
		telemetry.SpanAttrFoldersNew, created,
	)
	telemetry.SetOK(span)
	s.logger.Info("Scan completed",
		zap.String("trigger", string(trigger)),
		zap.Int("found", found),
		zap.Int("new", created),
		zap.Duration("duration", run.Duration()),
	)
	return &ScanResult{Found: found, New: created}, nil
}

// reconcile does the listing and the inserts. Nothing is written unless the listing
// succeeded in full, and the inserts commit or roll back together.
func (s *ScanService) reconcile(ctx context.Context, detectedAt time.Time) (found, created int, err error) {
	folders, err := s.list(ctx)
	if err != nil {
		return 0, 0, err
	}

	items := s.snapshot(folders, detectedAt)
	found = len(items)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		created = 0
		for _, item := range items {
			inserted, err := repos.PendingItems().InsertIfAbsent(ctx, item)
			if err != nil {
				return fmt.Errorf("insert pending item %q: %w", item.FolderName, err)
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return found, 0, fmt.Errorf("record scanned folders: %w", err)
	}
	return found, created, nil
}

func (s *ScanService) list(ctx context.Context) ([]sharepoint.RemoteFolder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sharepoint_scan", "list")
	defer span.End()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	folders, err := s.source.ListFolders(ctx, s.cfg.RootPath)
	if err == nil {
		folders, err = sharepoint.RequireFolders(s.cfg.RootPath, folders)
	}
	if err != nil {
		if !errors.Is(err, shared.ErrSourceUnavailable) {
			err = sharepoint.NewSourceUnavailableError(s.cfg.RootPath, err)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrFoldersFound, len(folders))
	return folders, nil
}

// snapshot classifies every file and builds one pending item per distinct folder name.
// The first listing of a duplicated name wins.
func (s *ScanService) snapshot(folders []sharepoint.RemoteFolder, detectedAt time.Time) []*sharepoint.PendingItem {
	seen := make(map[string]struct{}, len(folders))
	items := make([]*sharepoint.PendingItem, 0, len(folders))

	for _, folder := range folders {
		if _, dup := seen[folder.Name]; dup {
			continue
		}

		files := make([]sharepoint.ClassifiedFile, 0, len(folder.Files))
		for _, f := range folder.Files {
			files = append(files, sharepoint.ClassifiedFile{
				Name:        f.Name,
				DownloadURL: f.DownloadURL,
				Type:        s.classifier.Classify(f.Name),
			})
		}

		item, err := sharepoint.NewPendingItem(folder.Name, files, detectedAt)
		if err != nil {
			s.logger.Warn("Skipping folder", zap.String("folder", folder.Name), zap.Error(err))
			continue
		}
		seen[folder.Name] = struct{}{}
		items = append(items, item)
	}
	return items
}

func (s *ScanService) releaseLease(ctx context.Context, holder string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
	defer cancel()
	if err := s.lease.Release(ctx, holder); err != nil {
		s.logger.Warn("Failed to release scan lease, it will expire on its own",
			zap.String("holder", holder),
			zap.Error(err),
		)
	}
}

// saveRun writes the audit record. A failure here does not fail the scan.
func (s *ScanService) saveRun(ctx context.Context, run *sharepoint.ScanRun) {
	if s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
	defer cancel()
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Warn("Failed to record scan run", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

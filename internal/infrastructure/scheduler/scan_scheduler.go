package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"go.uber.org/zap"
)

// Scanner runs one scan of the document library
type Scanner interface {
	Scan(ctx context.Context, trigger sharepoint.ScanTrigger) (*spapp.ScanResult, error)
}

// ScanSchedulerConfig holds configuration for the periodic scan
type ScanSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between two scans
	Interval time.Duration

	// RunOnStart triggers a scan as soon as the scheduler starts
	RunOnStart bool
}

// DefaultScanSchedulerConfig returns default configuration
func DefaultScanSchedulerConfig() ScanSchedulerConfig {
	return ScanSchedulerConfig{
		Enabled:    false,
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// ScanScheduler triggers scans on a fixed interval. Scans started elsewhere (the HTTP
// endpoint or another instance) hold the lease, and the tick is skipped.
type ScanScheduler struct {
	scanner   Scanner
	logger    *zap.Logger
	config    ScanSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScanScheduler creates a new scan scheduler
func NewScanScheduler(scanner Scanner, logger *zap.Logger, config ScanSchedulerConfig) *ScanScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanScheduler{
		scanner: scanner,
		logger:  logger,
		config:  config,
	}
}

// Start starts the scan loop
func (s *ScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Scan scheduler is disabled")
		return nil
	}
	if s.config.Interval <= 0 {
		s.mu.Unlock()
		return ErrInvalidConfig
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Scan scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running scan up to ctx's deadline
func (s *ScanScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scan scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scan scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *ScanScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *ScanScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.execute(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Scan loop stopping")
			return
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

// execute runs one scheduled scan. Failures are logged; the next tick tries again.
func (s *ScanScheduler) execute(ctx context.Context) {
	result, err := s.scanner.Scan(ctx, sharepoint.TriggerScheduled)
	switch {
	case err == nil:
		s.logger.Info("Scheduled scan completed",
			zap.Int("found", result.Found),
			zap.Int("new", result.New),
		)
	case errors.Is(err, shared.ErrScanInProgress):
		s.logger.Debug("Scheduled scan skipped, another scan holds the lease")
	case ctx.Err() != nil:
		s.logger.Debug("Scheduled scan cancelled", zap.Error(err))
	default:
		s.logger.Error("Scheduled scan failed", zap.Error(err))
	}
}

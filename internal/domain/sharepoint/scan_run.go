package sharepoint

import (
	"context"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
)

// ScanTrigger records what started a scan
type ScanTrigger string

const (
	TriggerManual    ScanTrigger = "manual"
	TriggerScheduled ScanTrigger = "scheduled"
)

// ScanRunStatus is the outcome of a scan pass
type ScanRunStatus string

const (
	ScanRunSucceeded ScanRunStatus = "succeeded"
	ScanRunFailed    ScanRunStatus = "failed"
)

// ScanRun is the audit record of one reconciliation pass
type ScanRun struct {
	shared.BaseEntity
	Trigger    ScanTrigger
	Holder     string
	StartedAt  time.Time
	FinishedAt time.Time
	Found      int
	New        int
	Status     ScanRunStatus
	Error      string
}

// NewScanRun starts a run record
func NewScanRun(trigger ScanTrigger, holder string, startedAt time.Time) *ScanRun {
	return &ScanRun{
		BaseEntity: shared.NewBaseEntityAt(startedAt),
		Trigger:    trigger,
		Holder:     holder,
		StartedAt:  startedAt,
	}
}

// Succeed closes the run with its counts
func (r *ScanRun) Succeed(found, created int, at time.Time) {
	r.Found = found
	r.New = created
	r.Status = ScanRunSucceeded
	r.FinishedAt = at
}

// Fail closes the run with the error that ended it
func (r *ScanRun) Fail(err error, found int, at time.Time) {
	r.Found = found
	r.Status = ScanRunFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = at
}

// Duration of the run
func (r *ScanRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ScanRunRepository persists scan audit records
type ScanRunRepository interface {
	Save(ctx context.Context, run *ScanRun) error
	ListRecent(ctx context.Context, limit int) ([]ScanRun, error)
}

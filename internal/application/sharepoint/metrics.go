package sharepoint

import (
	"context"
	"errors"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
)

// Metrics receives one call per scan, import and ignore attempt.
// telemetry.SyncMetrics is the production implementation.
type Metrics interface {
	RecordScan(ctx context.Context, trigger, outcome string, found, created int, d time.Duration)
	RecordImport(ctx context.Context, outcome string, documents map[string]int)
	RecordIgnore(ctx context.Context, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordScan(context.Context, string, string, int, int, time.Duration) {}
func (noopMetrics) RecordImport(context.Context, string, map[string]int)              {}
func (noopMetrics) RecordIgnore(context.Context, string)                              {}

// Outcome labels
const (
	OutcomeSuccess           = "success"
	OutcomeConflict          = "conflict"
	OutcomeNotFound          = "not_found"
	OutcomeBusy              = "busy"
	OutcomeSourceUnavailable = "source_unavailable"
	OutcomeDownstreamFailure = "downstream_failure"
	OutcomeError             = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, shared.ErrScanInProgress):
		return OutcomeBusy
	case errors.Is(err, shared.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, shared.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, shared.ErrSourceUnavailable):
		return OutcomeSourceUnavailable
	case errors.Is(err, shared.ErrDownstreamFailure):
		return OutcomeDownstreamFailure
	default:
		return OutcomeError
	}
}

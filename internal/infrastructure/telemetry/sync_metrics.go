package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Metric attribute keys
var (
	AttrOutcome  = attribute.Key("outcome")
	AttrTrigger  = attribute.Key("trigger")
	AttrCategory = attribute.Key("category")
)

// ScanDurationBuckets covers a remote listing, which can take tens of seconds.
var ScanDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// SyncMetrics records the reconciliation and import counters.
type SyncMetrics struct {
	scansTotal     metric.Int64Counter
	scanDuration   metric.Float64Histogram
	foldersFound   metric.Int64Counter
	foldersNew     metric.Int64Counter
	importsTotal   metric.Int64Counter
	documentsTotal metric.Int64Counter
	ignoresTotal   metric.Int64Counter
}

// instruments creates instruments on one meter and keeps the first failure.
type instruments struct {
	meter metric.Meter
	err   error
}

func (b *instruments) counter(name, description, unit string) metric.Int64Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.err = fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return c
}

func (b *instruments) histogram(name, description, unit string, bounds []float64) metric.Float64Histogram {
	if b.err != nil {
		return nil
	}
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	if err != nil {
		b.err = fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return h
}

// NewSyncMetrics registers the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	b := &instruments{meter: meter}
	m := &SyncMetrics{
		scansTotal: b.counter("sharepoint_scans_total", "Scan passes by outcome", "{scans}"),
		scanDuration: b.histogram("sharepoint_scan_duration_seconds", "Wall time of a scan pass", "s",
			ScanDurationBuckets),
		foldersFound:   b.counter("sharepoint_folders_found_total", "Folders listed by scans", "{folders}"),
		foldersNew:     b.counter("sharepoint_folders_new_total", "Folders first recorded by scans", "{folders}"),
		importsTotal:   b.counter("sharepoint_imports_total", "Import attempts by outcome", "{imports}"),
		documentsTotal: b.counter("sharepoint_imported_documents_total", "Documents attached by imports", "{documents}"),
		ignoresTotal:   b.counter("sharepoint_ignores_total", "Ignore attempts by outcome", "{ignores}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordScan records one scan pass.
func (m *SyncMetrics) RecordScan(ctx context.Context, trigger, outcome string, found, created int, d time.Duration) {
	attrs := metric.WithAttributes(AttrTrigger.String(trigger), AttrOutcome.String(outcome))
	m.scansTotal.Add(ctx, 1, attrs)
	m.scanDuration.Record(ctx, d.Seconds(), attrs)
	if found > 0 {
		m.foldersFound.Add(ctx, int64(found))
	}
	if created > 0 {
		m.foldersNew.Add(ctx, int64(created))
	}
}

// RecordImport records one import attempt and, on success, the documents it attached.
func (m *SyncMetrics) RecordImport(ctx context.Context, outcome string, documents map[string]int) {
	m.importsTotal.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
	for category, n := range documents {
		if n > 0 {
			m.documentsTotal.Add(ctx, int64(n), metric.WithAttributes(AttrCategory.String(category)))
		}
	}
}

// RecordIgnore records one ignore attempt.
func (m *SyncMetrics) RecordIgnore(ctx context.Context, outcome string) {
	m.ignoresTotal.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics counts load, filter and aggregate activity. A nil
// *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	reports      metric.Int64Counter
	filteredRows metric.Int64Histogram
	reloads      metric.Int64Counter
	loadDuration metric.Float64Histogram
}

func NewPipelineMetrics() (*PipelineMetrics, error) {
	return newPipelineMetrics(otel.Meter(instrumentationName))
}

func newPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	reports, err := meter.Int64Counter(
		"sales.reports.total",
		metric.WithDescription("Reports computed from a filter request"),
	)
	if err != nil {
		return nil, err
	}

	filteredRows, err := meter.Int64Histogram(
		"sales.reports.rows",
		metric.WithDescription("Rows in the filtered view per report"),
	)
	if err != nil {
		return nil, err
	}

	reloads, err := meter.Int64Counter(
		"sales.dataset.reloads",
		metric.WithDescription("Datasets published by a load"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram(
		"sales.dataset.load_duration",
		metric.WithDescription("Time spent loading the dataset"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		reports:      reports,
		filteredRows: filteredRows,
		reloads:      reloads,
		loadDuration: loadDuration,
	}, nil
}

func (m *PipelineMetrics) RecordReport(ctx context.Context, rows int) {
	if m == nil {
		return
	}
	empty := attribute.Bool("empty", rows == 0)
	m.reports.Add(ctx, 1, metric.WithAttributes(empty))
	m.filteredRows.Record(ctx, int64(rows))
}

// RecordLoad times every load attempt. Only a load that published a new
// dataset counts as a reload; cache hits are recorded as "unchanged".
func (m *PipelineMetrics) RecordLoad(ctx context.Context, d time.Duration, published bool, err error) {
	if m == nil {
		return
	}
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "error"
	case published:
		outcome = "published"
		m.reloads.Add(ctx, 1)
	}
	m.loadDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

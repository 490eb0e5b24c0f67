package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Analytics holds the process-wide dataset and runs the filter/aggregate
// pipeline against it. The dataset pointer is swapped whole on reload, so
// readers always see a complete dataset without locking.
type Analytics struct {
	dataset atomic.Pointer[models.Dataset]
	loader  *Loader
	metrics *observability.PipelineMetrics
	logger  *slog.Logger

	mu      sync.RWMutex
	csvPath string
	reloads atomic.Int64
}

type Option func(*Analytics)

func WithLoader(loader *Loader) Option {
	return func(a *Analytics) {
		if loader != nil {
			a.loader = loader
		}
	}
}

func WithMetrics(metrics *observability.PipelineMetrics) Option {
	return func(a *Analytics) {
		a.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.loader == nil {
		a.loader = NewLoader(WithLoaderLogger(a.logger))
	}
	a.dataset.Store(models.NewDataset(nil))
	return a
}

// SetData replaces the dataset with orders held in memory.
func (a *Analytics) SetData(orders []models.Order) {
	a.dataset.Store(models.NewDataset(orders))
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.mu.Lock()
	a.csvPath = filename
	a.mu.Unlock()

	_, err := a.load(ctx, filename)
	return err
}

// Reload re-reads the current source file if it changed and reports whether
// a new dataset was published. On error the previous dataset stays active.
func (a *Analytics) Reload(ctx context.Context) (bool, error) {
	a.mu.RLock()
	path := a.csvPath
	a.mu.RUnlock()

	if path == "" {
		return false, fmt.Errorf("no dataset source configured")
	}
	return a.load(ctx, path)
}

func (a *Analytics) load(ctx context.Context, filename string) (bool, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load", attribute.String("dataset.path", filename))

	start := time.Now()
	ds, err := a.loader.Load(ctx, filename)
	duration := time.Since(start)
	observability.FinishSpan(span, err)
	if err != nil {
		a.metrics.RecordLoad(ctx, duration, false, err)
		return false, err
	}

	previous := a.dataset.Swap(ds)
	published := previous != ds
	a.metrics.RecordLoad(ctx, duration, published, nil)
	if !published {
		return false, nil
	}
	a.reloads.Add(1)

	a.logger.Info("dataset loaded",
		"path", filename,
		"records", ds.Len(),
		"skipped", ds.Skipped,
		"duration", duration,
	)
	return true, nil
}

// Dataset returns the current dataset. It is never nil.
func (a *Analytics) Dataset() *models.Dataset {
	return a.dataset.Load()
}

// Defaults returns the criteria that select the whole dataset.
func (a *Analytics) Defaults() models.FilterCriteria {
	return a.Dataset().DefaultCriteria()
}

func (a *Analytics) Report(ctx context.Context, c models.FilterCriteria) models.Report {
	ctx, span := observability.StartSpan(ctx, "report.summarize")
	defer span.End()

	report := Summarize(a.Dataset(), c)

	span.SetAttributes(
		attribute.Int("report.rows", len(report.Rows)),
		attribute.Int("report.total_rows", report.TotalRows),
	)
	a.metrics.RecordReport(ctx, len(report.Rows))
	return report
}

// Export writes the filtered view as CSV and returns the number of rows written.
func (a *Analytics) Export(ctx context.Context, w io.Writer, c models.FilterCriteria) (int, error) {
	_, span := observability.StartSpan(ctx, "report.export")

	ds := a.Dataset()
	view := Apply(ds, c)
	err := WriteCSV(w, view, ds.HasOrderID)

	span.SetAttributes(attribute.Int("export.rows", len(view)))
	observability.FinishSpan(span, err)
	return len(view), err
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	ds := a.Dataset()

	return map[string]any{
		"record_count": ds.Len(),
		"skipped_rows": ds.Skipped,
		"source":       ds.Source,
		"loaded_at":    ds.LoadedAt,
		"categories":   len(ds.Categories()),
		"regions":      len(ds.Regions()),
		"statuses":     len(ds.Statuses()),
		"loads":        a.reloads.Load(),
	}
}

package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

const sampleCSV = `order_id,order_date,category,region,status,quantity,unit_price
O-1,2024-01-05,A,East,Complete,2,10.00
O-2,2024-02-10,B,West,Pending,1,50.00
`

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// rewriteCSV replaces the file content and moves its mtime forward so a
// change is visible even on filesystems with coarse timestamps.
func rewriteCSV(t *testing.T, path, content string, bump time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	future := time.Now().Add(bump)
	require.NoError(t, os.Chtimes(path, future, future))
}

func mustDate(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func newOrder(t testing.TB, date, category, region, status string, qty int, price string) models.Order {
	t.Helper()
	return models.NewOrder("", mustDate(t, date), category, region, status, qty, decimal.RequireFromString(price))
}

// scenarioOrders is the two-order dataset used by the reference scenarios.
func scenarioOrders(t testing.TB) []models.Order {
	return []models.Order{
		newOrder(t, "2024-01-05", "A", "East", "Complete", 2, "10.00"),
		newOrder(t, "2024-02-10", "B", "West", "Pending", 1, "50.00"),
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	require.NotNil(t, a)
	require.NotNil(t, a.Dataset(), "dataset should never be nil")
	assert.Equal(t, 0, a.Dataset().Len())
	assert.NotNil(t, a.logger)
	assert.NotNil(t, a.loader)

	report := a.Report(context.Background(), a.Defaults())
	assert.True(t, report.Empty())
	assert.Equal(t, models.NoCategory, report.KPIs.TopCategory)
}

func TestAnalytics_SetData(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	ds := a.Dataset()
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"A", "B"}, ds.Categories())
	assert.Equal(t, []string{"East", "West"}, ds.Regions())
	assert.Equal(t, []string{"Complete", "Pending"}, ds.Statuses())

	defaults := a.Defaults()
	assert.Equal(t, mustDate(t, "2024-01-05"), defaults.Start)
	assert.Equal(t, mustDate(t, "2024-02-10"), defaults.End)
}

func TestAnalytics_Report(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	report := a.Report(context.Background(), a.Defaults())
	assert.Equal(t, 2, report.KPIs.OrderCount)
	assert.Equal(t, "70.00", report.KPIs.TotalRevenue.StringFixed(2))
	assert.Equal(t, "35.00", report.KPIs.AvgOrderValue.StringFixed(2))
	assert.Equal(t, "B", report.KPIs.TopCategory)
	assert.Equal(t, 2, report.TotalRows)
	assert.Len(t, report.Rows, 2)
}

func TestAnalytics_LoadFromCSV(t *testing.T) {
	path := createTempCSV(t, sampleCSV)

	a := NewAnalytics()
	require.NoError(t, a.LoadFromCSV(context.Background(), path))

	ds := a.Dataset()
	assert.Equal(t, 2, ds.Len())
	assert.True(t, ds.HasOrderID)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, "O-1", ds.Orders[0].OrderID)
}

func TestAnalytics_LoadFromCSV_KeepsPreviousOnError(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	err := a.LoadFromCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 2, a.Dataset().Len())
}

func TestAnalytics_Reload(t *testing.T) {
	a := NewAnalytics()

	_, err := a.Reload(context.Background())
	require.Error(t, err, "reload without a source should fail")

	path := createTempCSV(t, sampleCSV)
	require.NoError(t, a.LoadFromCSV(context.Background(), path))
	first := a.Dataset()

	published, err := a.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, published, "unchanged file should not publish a new dataset")
	assert.Same(t, first, a.Dataset())

	rewriteCSV(t, path, sampleCSV+"O-3,2024-03-01,C,North,Complete,3,5.00\n", time.Minute)

	published, err = a.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, 3, a.Dataset().Len())
	assert.Equal(t, 2, first.Len(), "previous dataset must not change")
}

func TestAnalytics_Export(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	criteria := a.Defaults()
	criteria.Categories = []string{"A"}

	var buf bytes.Buffer
	n, err := a.Export(context.Background(), &buf, criteria)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"order_date", "category", "region", "status", "quantity", "unit_price", "revenue"}, records[0])
	assert.Equal(t, "2024-01-05", records[1][0])
	assert.Equal(t, "A", records[1][1])
}

func TestAnalytics_Stats(t *testing.T) {
	path := createTempCSV(t, sampleCSV)

	a := NewAnalytics()
	require.NoError(t, a.LoadFromCSV(context.Background(), path))

	stats := a.Stats()
	for _, key := range []string{"record_count", "skipped_rows", "source", "loaded_at", "categories", "regions", "statuses", "loads"} {
		assert.Contains(t, stats, key)
	}
	assert.Equal(t, 2, stats["record_count"])
	assert.Equal(t, 2, stats["categories"])
	assert.Equal(t, int64(1), stats["loads"])
}

func TestAnalytics_ConcurrentReadsDuringReload(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioOrders(t))

	everything := models.FilterCriteria{
		Start:      mustDate(t, "2024-01-01"),
		End:        mustDate(t, "2024-12-31"),
		Categories: []string{"A", "B", "C"},
		Regions:    []string{"East", "West", "North"},
		Statuses:   []string{"Complete", "Pending"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				report := a.Report(context.Background(), everything)
				// Every report must come from one complete dataset.
				assert.Equal(t, report.TotalRows, report.KPIs.OrderCount)
			}
		}()
	}

	for i := 0; i < 50; i++ {
		orders := scenarioOrders(t)
		if i%2 == 0 {
			orders = append(orders, newOrder(t, "2024-03-01", "C", "North", "Complete", 1, "1.00"))
		}
		a.SetData(orders)
	}
	wg.Wait()
}

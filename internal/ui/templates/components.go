package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

//go:generate templ generate

// Element IDs patched by the SSE report stream.
const (
	CaptionID    = "orders-caption"
	KPIRowID     = "kpi-row"
	DataTableID  = "data-table"
	ExportLinkID = "export-link"
	FilterErrID  = "filter-error"
	OverviewID   = "overview-content"
	CategoryID   = "category-content"
	RegionID     = "region-content"
)

const NoDataMessage = "No data to display."

type kpiMetric struct {
	label string
	value string
}

func kpiMetrics(k models.KPIs) []kpiMetric {
	return []kpiMetric{
		{"Total Revenue", FormatCurrency(k.TotalRevenue)},
		{"Total Orders", FormatCount(k.OrderCount)},
		{"Average Order Value", FormatCurrency(k.AvgOrderValue)},
		{"Top Category", k.TopCategory},
	}
}

// visibleRows caps the table at maxRows; zero or less shows everything.
func visibleRows(rows []models.Order, maxRows int) []models.Order {
	if maxRows > 0 && len(rows) > maxRows {
		return rows[:maxRows]
	}
	return rows
}

func exportHref(query string) string {
	if query == "" {
		return "/export"
	}
	return "/export?" + query
}

// minDate and maxDate bound the date pickers to the dataset's range. Both are
// empty for an empty dataset.
func minDate(options models.FilterCriteria) string {
	if options.Start.IsZero() {
		return ""
	}
	return options.Start.Format(models.DateLayout)
}

func maxDate(options models.FilterCriteria) string {
	if options.Start.IsZero() {
		return ""
	}
	return options.End.Format(models.DateLayout)
}

// RenderString renders c into a string for SSE element patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

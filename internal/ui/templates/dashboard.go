package templates

import "sales-dashboard/internal/models"

const (
	Title    = "Sales Dashboard"
	Subtitle = "Revenue, orders and category mix for the selected period"
)

// DashboardPage carries the initial render: filter options derived from the
// full dataset and the report for the default criteria.
type DashboardPage struct {
	Options     models.FilterCriteria
	Report      models.Report
	ExportQuery string
	Signals     string
	MaxRows     int
}

package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NoCategory is shown as the top category of an empty view.
const NoCategory = "—"

type KPIs struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	OrderCount    int             `json:"order_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	TopCategory   string          `json:"top_category"`
}

type MonthlyRevenue struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Period renders the month as YYYY-MM.
func (m MonthlyRevenue) Period() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type RegionRevenue struct {
	Region  string          `json:"region"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Report is everything a presentation adapter needs for one render cycle.
type Report struct {
	Criteria   FilterCriteria    `json:"criteria"`
	KPIs       KPIs              `json:"kpis"`
	Monthly    []MonthlyRevenue  `json:"monthly_revenue"`
	ByCategory []CategoryRevenue `json:"category_revenue"`
	ByRegion   []RegionRevenue   `json:"region_revenue"`
	Rows       []Order           `json:"-"`
	TotalRows  int               `json:"total_rows"`
	HasOrderID bool              `json:"-"`
}

func (r Report) Empty() bool {
	return r.KPIs.OrderCount == 0
}

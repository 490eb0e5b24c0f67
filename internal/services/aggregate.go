package services

import (
	"slices"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

func TotalRevenue(view []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range view {
		total = total.Add(o.Revenue)
	}
	return total
}

func OrderCount(view []models.Order) int {
	return len(view)
}

// AvgOrderValue is zero for an empty view.
func AvgOrderValue(view []models.Order) decimal.Decimal {
	if len(view) == 0 {
		return decimal.Zero
	}
	return TotalRevenue(view).Div(decimal.NewFromInt(int64(len(view))))
}

// TopCategory returns the category with the highest revenue. Ties go to the
// category that appears first in the view; an empty view yields NoCategory.
func TopCategory(view []models.Order) string {
	keys, sums := groupRevenue(view, func(o models.Order) string { return o.Category })
	if len(keys) == 0 {
		return models.NoCategory
	}

	top := keys[0]
	for _, k := range keys[1:] {
		if sums[k].GreaterThan(sums[top]) {
			top = k
		}
	}
	return top
}

// MonthlyRevenue sums revenue per calendar month in ascending order.
func MonthlyRevenue(view []models.Order) []models.MonthlyRevenue {
	sums := make(map[int]decimal.Decimal)
	for _, o := range view {
		key := o.Date.Year()*12 + int(o.Date.Month()) - 1
		sums[key] = sums[key].Add(o.Revenue)
	}

	result := make([]models.MonthlyRevenue, 0, len(sums))
	for key, revenue := range sums {
		result = append(result, models.MonthlyRevenue{
			Year:    key / 12,
			Month:   key%12 + 1,
			Revenue: revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlyRevenue) int {
		return (a.Year*12 + a.Month) - (b.Year*12 + b.Month)
	})
	return result
}

// CategoryRevenue sums revenue per category, ascending by revenue so the
// largest bar lands on top of a horizontal chart.
func CategoryRevenue(view []models.Order) []models.CategoryRevenue {
	keys, sums := groupRevenue(view, func(o models.Order) string { return o.Category })

	result := make([]models.CategoryRevenue, 0, len(keys))
	for _, k := range keys {
		result = append(result, models.CategoryRevenue{Category: k, Revenue: sums[k]})
	}
	slices.SortStableFunc(result, func(a, b models.CategoryRevenue) int {
		return a.Revenue.Cmp(b.Revenue)
	})
	return result
}

// RegionRevenue sums revenue per region, largest share first.
func RegionRevenue(view []models.Order) []models.RegionRevenue {
	keys, sums := groupRevenue(view, func(o models.Order) string { return o.Region })

	result := make([]models.RegionRevenue, 0, len(keys))
	for _, k := range keys {
		result = append(result, models.RegionRevenue{Region: k, Revenue: sums[k]})
	}
	slices.SortStableFunc(result, func(a, b models.RegionRevenue) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	return result
}

// Summarize runs filter and aggregation for one render cycle.
func Summarize(ds *models.Dataset, c models.FilterCriteria) models.Report {
	view := Apply(ds, c)

	return models.Report{
		Criteria: c,
		KPIs: models.KPIs{
			TotalRevenue:  TotalRevenue(view),
			OrderCount:    OrderCount(view),
			AvgOrderValue: AvgOrderValue(view),
			TopCategory:   TopCategory(view),
		},
		Monthly:    MonthlyRevenue(view),
		ByCategory: CategoryRevenue(view),
		ByRegion:   RegionRevenue(view),
		Rows:       view,
		TotalRows:  ds.Len(),
		HasOrderID: ds != nil && ds.HasOrderID,
	}
}

// groupRevenue sums revenue by key and returns the keys in first-seen order.
func groupRevenue(view []models.Order, key func(models.Order) string) ([]string, map[string]decimal.Decimal) {
	var keys []string
	sums := make(map[string]decimal.Decimal)
	for _, o := range view {
		k := key(o)
		sum, ok := sums[k]
		if !ok {
			keys = append(keys, k)
		}
		sums[k] = sum.Add(o.Revenue)
	}
	return keys, sums
}

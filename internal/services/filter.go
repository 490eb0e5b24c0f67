package services

import (
	"sales-dashboard/internal/models"
)

// Apply returns the dataset rows matching every predicate of c, in dataset
// order. The result is a fresh slice and never aliases the dataset.
func Apply(ds *models.Dataset, c models.FilterCriteria) []models.Order {
	if ds == nil {
		return []models.Order{}
	}
	return ApplyOrders(ds.Orders, c)
}

// ApplyOrders filters a raw slice of orders with the same rules as Apply.
func ApplyOrders(orders []models.Order, c models.FilterCriteria) []models.Order {
	view := make([]models.Order, 0)

	if c.Inverted() || len(c.Categories) == 0 || len(c.Regions) == 0 || len(c.Statuses) == 0 {
		return view
	}

	start := models.CalendarDate(c.Start)
	end := models.CalendarDate(c.End)
	categories := models.NewValueSet(c.Categories)
	regions := models.NewValueSet(c.Regions)
	statuses := models.NewValueSet(c.Statuses)

	for _, o := range orders {
		day := models.CalendarDate(o.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		if !categories.Has(o.Category) || !regions.Has(o.Region) || !statuses.Has(o.Status) {
			continue
		}
		view = append(view, o)
	}

	return view
}

package services

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

var (
	genCategories = []string{"Electronics", "Books", "Garden", "Toys", "Grocery"}
	genRegions    = []string{"North", "South", "East", "West"}
	genStatuses   = []string{"Complete", "Pending", "Cancelled", "Returned"}
)

// generateDataset builds a deterministic pseudo-random dataset spanning
// roughly two years.
func generateDataset(seed uint64, n int) *models.Dataset {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := make([]models.Order, n)
	for i := range orders {
		price := decimal.New(int64(r.IntN(100000)), -2)
		orders[i] = models.NewOrder(
			"",
			base.AddDate(0, 0, r.IntN(730)),
			genCategories[r.IntN(len(genCategories))],
			genRegions[r.IntN(len(genRegions))],
			genStatuses[r.IntN(len(genStatuses))],
			r.IntN(20),
			price,
		)
	}
	return models.NewDataset(orders)
}

// randomCriteria picks a random date window and random non-empty subsets.
func randomCriteria(r *rand.Rand, ds *models.Dataset) models.FilterCriteria {
	subset := func(values []string) []string {
		out := []string{}
		for _, v := range values {
			if r.IntN(2) == 0 {
				out = append(out, v)
			}
		}
		if len(out) == 0 {
			out = append(out, values[r.IntN(len(values))])
		}
		return out
	}

	start := ds.MinDate().AddDate(0, 0, r.IntN(200))
	return models.FilterCriteria{
		Start:      start,
		End:        start.AddDate(0, 0, r.IntN(400)),
		Categories: subset(ds.Categories()),
		Regions:    subset(ds.Regions()),
		Statuses:   subset(ds.Statuses()),
	}
}

func TestApply_DefaultsSelectEverything(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		ds := generateDataset(seed, 500)

		view := Apply(ds, ds.DefaultCriteria())
		require.Len(t, view, ds.Len())
		for i := range view {
			assert.Equal(t, ds.Orders[i], view[i], "row %d should keep dataset order", i)
		}
	}
}

func TestApply_EmptySetSelectsNothing(t *testing.T) {
	ds := generateDataset(7, 300)

	tests := []struct {
		name   string
		mutate func(*models.FilterCriteria)
	}{
		{"no categories", func(c *models.FilterCriteria) { c.Categories = []string{} }},
		{"no regions", func(c *models.FilterCriteria) { c.Regions = nil }},
		{"no statuses", func(c *models.FilterCriteria) { c.Statuses = []string{} }},
		{"inverted range", func(c *models.FilterCriteria) { c.Start, c.End = c.End, c.Start }},
		{"unknown category", func(c *models.FilterCriteria) { c.Categories = []string{"Nope"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ds.DefaultCriteria()
			tt.mutate(&c)

			view := Apply(ds, c)
			require.NotNil(t, view)
			assert.Empty(t, view)

			report := Summarize(ds, c)
			assert.True(t, report.Empty())
			assert.True(t, report.KPIs.TotalRevenue.IsZero())
			assert.True(t, report.KPIs.AvgOrderValue.IsZero())
			assert.Equal(t, models.NoCategory, report.KPIs.TopCategory)
			assert.Empty(t, report.Monthly)
			assert.Empty(t, report.ByCategory)
			assert.Empty(t, report.ByRegion)
			assert.Equal(t, ds.Len(), report.TotalRows)
		})
	}
}

func TestApply_Predicate(t *testing.T) {
	ds := generateDataset(11, 800)
	r := rand.New(rand.NewPCG(11, 42))

	for i := 0; i < 25; i++ {
		c := randomCriteria(r, ds)
		view := Apply(ds, c)

		categories := models.NewValueSet(c.Categories)
		regions := models.NewValueSet(c.Regions)
		statuses := models.NewValueSet(c.Statuses)

		want := 0
		for _, o := range ds.Orders {
			if o.Date.Before(c.Start) || o.Date.After(c.End) {
				continue
			}
			if categories.Has(o.Category) && regions.Has(o.Region) && statuses.Has(o.Status) {
				want++
			}
		}
		assert.Len(t, view, want)

		for _, o := range view {
			assert.False(t, o.Date.Before(c.Start))
			assert.False(t, o.Date.After(c.End))
			assert.True(t, categories.Has(o.Category))
			assert.True(t, regions.Has(o.Region))
			assert.True(t, statuses.Has(o.Status))
		}
	}
}

func TestApply_InclusiveCalendarBounds(t *testing.T) {
	ds := models.NewDataset(scenarioOrders(t))

	c := ds.DefaultCriteria()
	c.Start = time.Date(2024, 1, 5, 18, 30, 0, 0, time.UTC)
	c.End = time.Date(2024, 1, 5, 6, 0, 0, 0, time.UTC)

	view := Apply(ds, c)
	require.Len(t, view, 1, "a single-day range matches orders on that day regardless of time of day")
	assert.Equal(t, "A", view[0].Category)
}

func TestApply_FreshSlice(t *testing.T) {
	ds := models.NewDataset(scenarioOrders(t))

	view := Apply(ds, ds.DefaultCriteria())
	view[0].Category = "changed"

	assert.Equal(t, "A", ds.Orders[0].Category, "mutating a view must not touch the dataset")
	assert.Empty(t, Apply(nil, ds.DefaultCriteria()))
}

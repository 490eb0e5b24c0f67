package models

import "time"

// Dataset is the immutable result of a load. A reload produces a new Dataset;
// callers must never modify Orders in place.
type Dataset struct {
	Orders     []Order
	Source     string
	ModTime    time.Time
	Size       int64
	LoadedAt   time.Time
	HasOrderID bool
	Skipped    int

	minDate    time.Time
	maxDate    time.Time
	categories []string
	regions    []string
	statuses   []string
}

// NewDataset indexes the distinct dimension values of orders in
// first-encountered order together with the covered date range.
func NewDataset(orders []Order) *Dataset {
	ds := &Dataset{Orders: orders, LoadedAt: time.Now()}

	seenCategory := make(map[string]struct{})
	seenRegion := make(map[string]struct{})
	seenStatus := make(map[string]struct{})

	for i, o := range orders {
		if o.OrderID != "" {
			ds.HasOrderID = true
		}
		if i == 0 || o.Date.Before(ds.minDate) {
			ds.minDate = o.Date
		}
		if i == 0 || o.Date.After(ds.maxDate) {
			ds.maxDate = o.Date
		}
		if _, ok := seenCategory[o.Category]; !ok {
			seenCategory[o.Category] = struct{}{}
			ds.categories = append(ds.categories, o.Category)
		}
		if _, ok := seenRegion[o.Region]; !ok {
			seenRegion[o.Region] = struct{}{}
			ds.regions = append(ds.regions, o.Region)
		}
		if _, ok := seenStatus[o.Status]; !ok {
			seenStatus[o.Status] = struct{}{}
			ds.statuses = append(ds.statuses, o.Status)
		}
	}

	return ds
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Orders)
}

func (d *Dataset) MinDate() time.Time { return d.minDate }

func (d *Dataset) MaxDate() time.Time { return d.maxDate }

func (d *Dataset) Categories() []string { return append([]string(nil), d.categories...) }

func (d *Dataset) Regions() []string { return append([]string(nil), d.regions...) }

func (d *Dataset) Statuses() []string { return append([]string(nil), d.statuses...) }

// DefaultCriteria selects the full date range and every distinct value.
func (d *Dataset) DefaultCriteria() FilterCriteria {
	if d == nil {
		return FilterCriteria{Categories: []string{}, Regions: []string{}, Statuses: []string{}}
	}
	return FilterCriteria{
		Start:      d.minDate,
		End:        d.maxDate,
		Categories: d.Categories(),
		Regions:    d.Regions(),
		Statuses:   d.Statuses(),
	}
}

package models

import "time"

// FilterCriteria narrows a Dataset to a view. Start and End are inclusive
// calendar dates; an empty value set matches nothing.
type FilterCriteria struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Categories []string  `json:"categories"`
	Regions    []string  `json:"regions"`
	Statuses   []string  `json:"statuses"`
}

// Inverted reports whether the range cannot match any date.
func (c FilterCriteria) Inverted() bool {
	return CalendarDate(c.Start).After(CalendarDate(c.End))
}

// ValueSet is a membership set built once per filter pass.
type ValueSet map[string]struct{}

func NewValueSet(values []string) ValueSet {
	set := make(ValueSet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (s ValueSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

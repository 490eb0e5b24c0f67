package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

// Query parameter names shared by the REST API and the export link.
const (
	paramStart    = "start"
	paramEnd      = "end"
	paramCategory = "category"
	paramRegion   = "region"
	paramStatus   = "status"
)

// CriteriaFromQuery overlays the request's query parameters on defaults.
// An absent parameter keeps the default; a parameter present with only
// empty values selects nothing.
func CriteriaFromQuery(q url.Values, defaults models.FilterCriteria) (models.FilterCriteria, error) {
	c := defaults

	var err error
	if v := q.Get(paramStart); v != "" {
		if c.Start, err = services.ParseDate(v); err != nil {
			return c, errors.InvalidDate(err, paramStart)
		}
	}
	if v := q.Get(paramEnd); v != "" {
		if c.End, err = services.ParseDate(v); err != nil {
			return c, errors.InvalidDate(err, paramEnd)
		}
	}

	if values, ok := q[paramCategory]; ok {
		c.Categories = nonEmpty(values)
	}
	if values, ok := q[paramRegion]; ok {
		c.Regions = nonEmpty(values)
	}
	if values, ok := q[paramStatus]; ok {
		c.Statuses = nonEmpty(values)
	}
	return c, nil
}

// CriteriaQuery encodes c so that CriteriaFromQuery reproduces it. Empty
// sets are written as a bare key.
func CriteriaQuery(c models.FilterCriteria) string {
	q := url.Values{}
	if !c.Start.IsZero() {
		q.Set(paramStart, c.Start.Format(models.DateLayout))
	}
	if !c.End.IsZero() {
		q.Set(paramEnd, c.End.Format(models.DateLayout))
	}
	setValues(q, paramCategory, c.Categories)
	setValues(q, paramRegion, c.Regions)
	setValues(q, paramStatus, c.Statuses)
	return q.Encode()
}

// filterSignals mirrors the client-side filter state. A nil field was not
// sent and keeps the default.
type filterSignals struct {
	Start      *string   `json:"start"`
	End        *string   `json:"end"`
	Categories *[]string `json:"categories"`
	Regions    *[]string `json:"regions"`
	Statuses   *[]string `json:"statuses"`
}

// CriteriaFromSignals reads the datastar signals carried by r and overlays
// them on defaults.
func CriteriaFromSignals(r *http.Request, defaults models.FilterCriteria) (models.FilterCriteria, error) {
	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return defaults, errors.BadRequestWrap(err, "invalid filter signals")
	}
	return signals.apply(defaults)
}

func (s filterSignals) apply(defaults models.FilterCriteria) (models.FilterCriteria, error) {
	c := defaults

	var err error
	if s.Start != nil && *s.Start != "" {
		if c.Start, err = services.ParseDate(*s.Start); err != nil {
			return c, errors.InvalidDate(err, paramStart)
		}
	}
	if s.End != nil && *s.End != "" {
		if c.End, err = services.ParseDate(*s.End); err != nil {
			return c, errors.InvalidDate(err, paramEnd)
		}
	}

	if s.Categories != nil {
		c.Categories = nonEmpty(*s.Categories)
	}
	if s.Regions != nil {
		c.Regions = nonEmpty(*s.Regions)
	}
	if s.Statuses != nil {
		c.Statuses = nonEmpty(*s.Statuses)
	}
	return c, nil
}

// defaultSignals is the initial client state for a dataset.
func defaultSignals(c models.FilterCriteria) map[string]any {
	format := func(d models.FilterCriteria) (string, string) {
		if d.Start.IsZero() {
			return "", ""
		}
		return d.Start.Format(models.DateLayout), d.End.Format(models.DateLayout)
	}
	start, end := format(c)
	return map[string]any{
		"start":      start,
		"end":        end,
		"categories": orEmpty(c.Categories),
		"regions":    orEmpty(c.Regions),
		"statuses":   orEmpty(c.Statuses),
	}
}

func describeCriteria(c models.FilterCriteria) string {
	return fmt.Sprintf("%s..%s categories=%d regions=%d statuses=%d",
		c.Start.Format(models.DateLayout), c.End.Format(models.DateLayout),
		len(c.Categories), len(c.Regions), len(c.Statuses))
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setValues(q url.Values, key string, values []string) {
	if len(values) == 0 {
		q[key] = []string{""}
		return
	}
	q[key] = append([]string(nil), values...)
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

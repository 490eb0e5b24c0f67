package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 1000
	cacheShort        = "private, max-age=30"
)

var version = "1.0.0"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type criteriaResponse struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Categories []string `json:"categories"`
	Regions    []string `json:"regions"`
	Statuses   []string `json:"statuses"`
}

func newCriteriaResponse(c models.FilterCriteria) criteriaResponse {
	resp := criteriaResponse{
		Categories: orEmpty(c.Categories),
		Regions:    orEmpty(c.Regions),
		Statuses:   orEmpty(c.Statuses),
	}
	if !c.Start.IsZero() {
		resp.Start = c.Start.Format(models.DateLayout)
	}
	if !c.End.IsZero() {
		resp.End = c.End.Format(models.DateLayout)
	}
	return resp
}

type monthlyPoint struct {
	Period  string          `json:"period"`
	Revenue decimal.Decimal `json:"revenue"`
}

type reportResponse struct {
	Criteria   criteriaResponse         `json:"criteria"`
	KPIs       models.KPIs              `json:"kpis"`
	Monthly    []monthlyPoint           `json:"monthly_revenue"`
	ByCategory []models.CategoryRevenue `json:"category_revenue"`
	ByRegion   []models.RegionRevenue   `json:"region_revenue"`
	ShownRows  int                      `json:"shown_rows"`
	TotalRows  int                      `json:"total_rows"`
}

func monthlyPoints(monthly []models.MonthlyRevenue) []monthlyPoint {
	points := make([]monthlyPoint, len(monthly))
	for i, m := range monthly {
		points[i] = monthlyPoint{Period: m.Period(), Revenue: m.Revenue}
	}
	return points
}

// report resolves the request's criteria and runs the pipeline. On a bad
// parameter it writes the error response and returns false.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (models.Report, bool) {
	criteria, err := CriteriaFromQuery(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		errors.WriteError(w, r, h.logger, err, observability.GetRequestID(r.Context()))
		return models.Report{}, false
	}
	return h.analytics.Report(r.Context(), criteria), true
}

func (h *APIHandlers) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, newCriteriaResponse(h.analytics.Defaults()), map[string]string{
		"Cache-Control": cacheShort,
	})
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	errors.WriteSuccess(w, reportResponse{
		Criteria:   newCriteriaResponse(report.Criteria),
		KPIs:       report.KPIs,
		Monthly:    monthlyPoints(report.Monthly),
		ByCategory: report.ByCategory,
		ByRegion:   report.ByRegion,
		ShownRows:  len(report.Rows),
		TotalRows:  report.TotalRows,
	})
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, report.KPIs)
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, monthlyPoints(report.Monthly))
}

func (h *APIHandlers) HandleCategoryRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, report.ByCategory)
}

func (h *APIHandlers) HandleRegionRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, report.ByRegion)
}

type ordersResponse struct {
	Orders    []models.Order `json:"orders"`
	Returned  int            `json:"returned"`
	ShownRows int            `json:"shown_rows"`
	TotalRows int            `json:"total_rows"`
}

// HandleOrders returns the first rows of the filtered view; limit defaults
// to 50 and is capped at 1000.
func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit := defaultOrderLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errors.WriteError(w, r, h.logger, errors.BadRequest("limit must be a positive integer"), requestID)
			return
		}
		limit = min(n, maxOrderLimit)
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	rows := report.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	errors.WriteSuccess(w, ordersResponse{
		Orders:    rows,
		Returned:  len(rows),
		ShownRows: len(report.Rows),
		TotalRows: report.TotalRows,
	})
}

// HandleExport streams the filtered view as a CSV attachment. The body is
// buffered so a write failure can still be reported as an error response.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	criteria, err := CriteriaFromQuery(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		errors.WriteError(w, r, h.logger, err, requestID)
		return
	}

	var buf bytes.Buffer
	rows, err := h.analytics.Export(r.Context(), &buf, criteria)
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.ExportFailed(err), requestID)
		return
	}

	w.Header().Set("Content-Type", services.ExportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export interrupted", "error", err, "request_id", requestID)
		return
	}

	h.logger.DebugContext(r.Context(), "export written", "rows", rows, "request_id", requestID)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ds := h.analytics.Dataset()

	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"records":   ds.Len(),
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxTableRows = 50

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// seriesPoint is the shape the chart script consumes.
type seriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func chartSignals(report models.Report) map[string]any {
	monthly := make([]seriesPoint, len(report.Monthly))
	for i, m := range report.Monthly {
		monthly[i] = seriesPoint{Label: m.Period(), Value: m.Revenue.InexactFloat64()}
	}
	categories := make([]seriesPoint, len(report.ByCategory))
	for i, c := range report.ByCategory {
		categories[i] = seriesPoint{Label: c.Category, Value: c.Revenue.InexactFloat64()}
	}
	regions := make([]seriesPoint, len(report.ByRegion))
	for i, r := range report.ByRegion {
		regions[i] = seriesPoint{Label: r.Region, Value: r.Revenue.InexactFloat64()}
	}

	return map[string]any{
		"monthlyData":  monthly,
		"categoryData": categories,
		"regionData":   regions,
		"hasData":      !report.Empty(),
	}
}

// reportFragments lists the elements replaced on every filter change.
func reportFragments(report models.Report) []templ.Component {
	hasData := !report.Empty()
	return []templ.Component{
		templates.FilterError(""),
		templates.Caption(len(report.Rows), report.TotalRows),
		templates.KPIRow(report.KPIs),
		templates.ChartPanel(templates.OverviewID, "Monthly Revenue", "monthly-chart", hasData),
		templates.ChartPanel(templates.CategoryID, "Revenue by Category", "category-chart", hasData),
		templates.ChartPanel(templates.RegionID, "Revenue by Region", "region-chart", hasData),
		templates.DataTable(report.Rows, report.HasOrderID, maxTableRows),
		templates.ExportLink(CriteriaQuery(report.Criteria), hasData),
	}
}

// HandleReport recomputes the report for the client's filter signals and
// patches every affected element plus the chart series.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	criteria, criteriaErr := CriteriaFromSignals(r, h.analytics.Defaults())

	sse := datastar.NewSSE(w, r)

	if criteriaErr != nil {
		message := errors.ClientMessage(criteriaErr)
		h.logger.WarnContext(r.Context(), "rejected filter signals", "error", criteriaErr)

		html, err := templates.RenderString(r.Context(), templates.FilterError(message))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "render filter error", "error", err)
			return
		}
		sse.PatchElements(html)
		return
	}

	report := h.analytics.Report(r.Context(), criteria)
	h.logger.DebugContext(r.Context(), "report computed",
		"criteria", describeCriteria(criteria),
		"rows", len(report.Rows),
	)

	for _, fragment := range reportFragments(report) {
		html, err := templates.RenderString(r.Context(), fragment)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "render report fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.WarnContext(r.Context(), "patch elements", "error", err)
			return
		}
	}

	signals, err := json.Marshal(chartSignals(report))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// DashboardPage builds the initial page state for the default criteria.
func (h *SSEHandlers) DashboardPage(r *http.Request) (templates.DashboardPage, error) {
	defaults := h.analytics.Defaults()
	report := h.analytics.Report(r.Context(), defaults)

	signals := defaultSignals(defaults)
	for k, v := range chartSignals(report) {
		signals[k] = v
	}
	signals["tab"] = "overview"

	encoded, err := json.Marshal(signals)
	if err != nil {
		return templates.DashboardPage{}, err
	}

	return templates.DashboardPage{
		Options:     defaults,
		Report:      report,
		ExportQuery: CriteriaQuery(defaults),
		Signals:     string(encoded),
		MaxRows:     maxTableRows,
	}, nil
}

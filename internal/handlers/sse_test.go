package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

func sseRequest(t *testing.T, signals map[string]any) *http.Request {
	t.Helper()
	target := "/sse/report"
	if signals != nil {
		encoded, err := json.Marshal(signals)
		if err != nil {
			t.Fatalf("marshal signals: %v", err)
		}
		target += "?datastar=" + url.QueryEscape(string(encoded))
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Datastar-Request", "true")
	return req
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}

	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleReport(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleReport(w, sseRequest(t, nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	body := w.Body.String()
	expectedContent := []string{
		"datastar-patch-elements",
		"datastar-patch-signals",
		`id="` + templates.CaptionID + `"`,
		`id="` + templates.KPIRowID + `"`,
		`id="` + templates.DataTableID + `"`,
		`id="` + templates.ExportLinkID + `"`,
		`id="` + templates.OverviewID + `"`,
		"Showing 2 of 2 orders",
		"$70.00",
		"$35.00",
		"monthlyData",
		"categoryData",
		"regionData",
		"2024-01",
	}

	for _, content := range expectedContent {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleReport_Signals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name     string
		signals  map[string]any
		caption  string
		contains []string
		absent   []string
	}{
		{
			name:     "category subset",
			signals:  map[string]any{"categories": []string{"A"}},
			caption:  "Showing 1 of 2 orders",
			contains: []string{"$20.00", "category=A"},
		},
		{
			name:     "null keeps defaults",
			signals:  map[string]any{"categories": nil, "start": ""},
			caption:  "Showing 2 of 2 orders",
			contains: []string{"$70.00"},
		},
		{
			name:     "empty selection",
			signals:  map[string]any{"statuses": []string{}},
			caption:  "Showing 0 of 2 orders",
			contains: []string{templates.NoDataMessage, models.NoCategory, "$0.00"},
			absent:   []string{"<canvas", "Download as CSV"},
		},
		{
			name:     "date window",
			signals:  map[string]any{"start": "2024-02-01", "end": "2024-02-28"},
			caption:  "Showing 1 of 2 orders",
			contains: []string{"$50.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleReport(w, sseRequest(t, tt.signals))

			body := w.Body.String()
			if !strings.Contains(body, tt.caption) {
				t.Errorf("expected caption %q", tt.caption)
			}
			for _, content := range tt.contains {
				if !strings.Contains(body, content) {
					t.Errorf("expected SSE stream to contain %q", content)
				}
			}
			for _, content := range tt.absent {
				if strings.Contains(body, content) {
					t.Errorf("SSE stream should not contain %q", content)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleReport_BadDate(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleReport(w, sseRequest(t, map[string]any{"end": "31.02.2024"}))

	body := w.Body.String()
	if !strings.Contains(body, `id="`+templates.FilterErrID+`"`) {
		t.Error("expected the filter error element to be patched")
	}
	if !strings.Contains(body, "invalid end date") {
		t.Error("expected the error message in the stream")
	}
	if strings.Contains(body, "monthlyData") {
		t.Error("rejected filters must not patch chart signals")
	}
}

func TestSSEHandlers_HandleReport_EmptyDataset(t *testing.T) {
	handlers := NewSSEHandlers(services.NewAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleReport(w, sseRequest(t, nil))

	body := w.Body.String()
	for _, content := range []string{"Showing 0 of 0 orders", templates.NoDataMessage, `"hasData":false`} {
		if !strings.Contains(body, content) {
			t.Errorf("expected SSE stream to contain %q", content)
		}
	}
}

func TestChartSignals(t *testing.T) {
	analytics := createTestAnalytics()
	report := analytics.Report(context.Background(), analytics.Defaults())

	signals := chartSignals(report)

	monthly, ok := signals["monthlyData"].([]seriesPoint)
	if !ok || len(monthly) != 2 {
		t.Fatalf("monthlyData = %#v, want two points", signals["monthlyData"])
	}
	if monthly[0].Label != "2024-01" || monthly[0].Value != 20 {
		t.Errorf("first month = %+v, want 2024-01 = 20", monthly[0])
	}

	regions := signals["regionData"].([]seriesPoint)
	if regions[0].Label != "West" {
		t.Errorf("regions should be ordered by revenue, got %+v", regions)
	}

	if signals["hasData"] != true {
		t.Error("hasData should be true for a non-empty view")
	}
}

func TestSSEHandlers_DashboardPage(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	page, err := handlers.DashboardPage(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("DashboardPage() failed: %v", err)
	}

	if page.Report.KPIs.OrderCount != 2 {
		t.Errorf("initial report should cover the whole dataset, got %d orders", page.Report.KPIs.OrderCount)
	}
	if page.MaxRows != maxTableRows {
		t.Errorf("MaxRows = %d, want %d", page.MaxRows, maxTableRows)
	}

	var signals map[string]any
	if err := json.Unmarshal([]byte(page.Signals), &signals); err != nil {
		t.Fatalf("signals are not valid JSON: %v", err)
	}
	for _, key := range []string{"start", "end", "categories", "regions", "statuses", "monthlyData", "tab"} {
		if _, ok := signals[key]; !ok {
			t.Errorf("signals should include %q", key)
		}
	}
	if signals["start"] != "2024-01-05" {
		t.Errorf("start signal = %v, want 2024-01-05", signals["start"])
	}
}

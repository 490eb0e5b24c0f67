package templates

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"35", "$35.00"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"0.005", "$0.01"},
		{"-2500", "-$2,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatCurrency(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
	}
	for in, want := range tests {
		if got := FormatCount(in); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func mustRender(t *testing.T) func(html string, err error) string {
	return func(html string, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		return html
	}
}

func TestKPIRow(t *testing.T) {
	html := mustRender(t)(RenderString(context.Background(), KPIRow(models.KPIs{
		TotalRevenue:  decimal.RequireFromString("3820"),
		OrderCount:    3,
		AvgOrderValue: decimal.RequireFromString("1273.333333"),
		TopCategory:   "Home & Garden",
	})))

	for _, want := range []string{
		`id="kpi-row"`,
		"Total Revenue", "$3,820.00",
		"Total Orders", ">3<",
		"Average Order Value", "$1,273.33",
		"Top Category", "Home &amp; Garden",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("KPI row should contain %q:\n%s", want, html)
		}
	}
}

func TestDataTable(t *testing.T) {
	order := models.NewOrder("O-<1>", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "A", "East", "Complete", 2,
		decimal.RequireFromString("10"))

	html := mustRender(t)(RenderString(context.Background(), DataTable([]models.Order{order}, true, 50)))
	for _, want := range []string{"<th>Order</th>", "O-&lt;1&gt;", "2024-01-05", "$20.00"} {
		if !strings.Contains(html, want) {
			t.Errorf("table should contain %q", want)
		}
	}

	html = mustRender(t)(RenderString(context.Background(), DataTable([]models.Order{order}, false, 50)))
	if strings.Contains(html, "<th>Order</th>") {
		t.Error("order id column should be hidden when the dataset has none")
	}

	rows := make([]models.Order, 5)
	for i := range rows {
		rows[i] = order
	}
	html = mustRender(t)(RenderString(context.Background(), DataTable(rows, false, 3)))
	if got := strings.Count(html, "<tr>") - 1; got != 3 {
		t.Errorf("rendered %d body rows, want 3", got)
	}
	if !strings.Contains(html, "First 3 rows shown") {
		t.Error("truncated table should say so")
	}

	html = mustRender(t)(RenderString(context.Background(), DataTable(nil, false, 50)))
	if !strings.Contains(html, NoDataMessage) {
		t.Error("empty table should show the no-data notice")
	}
}

func TestChartPanelAndExportLink(t *testing.T) {
	html := mustRender(t)(RenderString(context.Background(), ChartPanel(OverviewID, "Monthly Revenue", "monthly-chart", true)))
	if !strings.Contains(html, `<canvas id="monthly-chart">`) {
		t.Error("chart panel with data should render a canvas")
	}

	html = mustRender(t)(RenderString(context.Background(), ChartPanel(OverviewID, "Monthly Revenue", "monthly-chart", false)))
	if strings.Contains(html, "<canvas") || !strings.Contains(html, NoDataMessage) {
		t.Error("chart panel without data should render the no-data notice only")
	}

	html = mustRender(t)(RenderString(context.Background(), ExportLink("category=A&region=East", true)))
	if !strings.Contains(html, `href="/export?category=A&amp;region=East"`) {
		t.Errorf("export link href is wrong: %s", html)
	}
	if !strings.Contains(html, `download="filtered_sales_data.csv"`) {
		t.Error("export link should name the download")
	}

	html = mustRender(t)(RenderString(context.Background(), ExportLink("", false)))
	if strings.Contains(html, "href") {
		t.Error("export link should be hidden for an empty view")
	}
}

func TestCaptionAndFilterError(t *testing.T) {
	html := mustRender(t)(RenderString(context.Background(), Caption(1200, 10500)))
	if !strings.Contains(html, "Showing 1,200 of 10,500 orders") {
		t.Errorf("caption = %s", html)
	}

	html = mustRender(t)(RenderString(context.Background(), FilterError("invalid <start> date")))
	if !strings.Contains(html, "error-banner") || !strings.Contains(html, "invalid &lt;start&gt; date") {
		t.Errorf("filter error = %s", html)
	}

	html = mustRender(t)(RenderString(context.Background(), FilterError("")))
	if strings.Contains(html, "error-banner") {
		t.Error("an empty message should clear the banner")
	}
}

func TestDashboard(t *testing.T) {
	page := DashboardPage{
		Options: models.FilterCriteria{
			Start:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			End:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			Categories: []string{"A", "B"},
			Regions:    []string{"East"},
			Statuses:   []string{"Complete"},
		},
		Report:  models.Report{KPIs: models.KPIs{TopCategory: models.NoCategory}},
		Signals: `{"start":"2024-01-05"}`,
		MaxRows: 50,
	}

	html := mustRender(t)(RenderString(context.Background(), Dashboard(page)))
	for _, want := range []string{
		"<title>Sales Dashboard</title>",
		`min="2024-01-05"`,
		`max="2024-02-10"`,
		`<option value="B">B</option>`,
		"data-bind:regions",
		"data-signals=\"{&#34;start&#34;:&#34;2024-01-05&#34;}\"",
		"Showing 0 of 0 orders",
		NoDataMessage,
		"chart.umd.min.js",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestDashboard_EmptyDatasetLeavesDatesOpen(t *testing.T) {
	html := mustRender(t)(RenderString(context.Background(), Dashboard(DashboardPage{})))
	if !strings.Contains(html, `data-bind:start min="" max=""`) {
		t.Error("date pickers should be unbounded for an empty dataset")
	}
	if strings.Contains(html, "<option") {
		t.Error("an empty dataset has no filter options")
	}
}

func TestTemplSourcesAreGenerated(t *testing.T) {
	sources, err := filepath.Glob("*.templ")
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) == 0 {
		t.Fatal("no .templ sources found")
	}
	for _, src := range sources {
		generated := strings.TrimSuffix(src, ".templ") + "_templ.go"
		b, err := os.ReadFile(generated)
		if err != nil {
			t.Errorf("%s has no generated counterpart: %v", src, err)
			continue
		}
		if !strings.HasPrefix(string(b), "// Code generated by templ - DO NOT EDIT.") {
			t.Errorf("%s is not templ output", generated)
		}
	}
}

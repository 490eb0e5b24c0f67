// Command salesreport prints the dashboard report for a sales CSV in the
// terminal and optionally exports the filtered orders.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")).Width(22)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
)

type options struct {
	data       string
	policy     string
	exportPath string
	start      string
	end        string
	categories *string
	regions    *string
	statuses   *string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("salesreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.data, "data", "", "path to the sales CSV (required)")
	fs.StringVar(&opts.policy, "policy", string(services.RowPolicyStrict), "malformed row policy: strict or skip")
	fs.StringVar(&opts.exportPath, "export", "", "write the filtered orders to this CSV file")
	fs.StringVar(&opts.start, "start", "", "first order date, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "last order date, YYYY-MM-DD")
	category := fs.String("category", "", "comma-separated categories; empty selects none")
	region := fs.String("region", "", "comma-separated regions; empty selects none")
	status := fs.String("status", "", "comma-separated statuses; empty selects none")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.data == "" {
		return opts, fmt.Errorf("-data is required")
	}
	if p := services.RowPolicy(opts.policy); p != services.RowPolicyStrict && p != services.RowPolicySkip {
		return opts, fmt.Errorf("invalid -policy %q, must be strict or skip", opts.policy)
	}

	// Only flags given on the command line narrow the selection.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "category":
			opts.categories = category
		case "region":
			opts.regions = region
		case "status":
			opts.statuses = status
		}
	})
	return opts, nil
}

func (o options) criteria(defaults models.FilterCriteria) (models.FilterCriteria, error) {
	c := defaults

	var err error
	if o.start != "" {
		if c.Start, err = services.ParseDate(o.start); err != nil {
			return c, fmt.Errorf("invalid -start: %w", err)
		}
	}
	if o.end != "" {
		if c.End, err = services.ParseDate(o.end); err != nil {
			return c, fmt.Errorf("invalid -end: %w", err)
		}
	}
	if o.categories != nil {
		c.Categories = splitList(*o.categories)
	}
	if o.regions != nil {
		c.Regions = splitList(*o.regions)
	}
	if o.statuses != nil {
		c.Statuses = splitList(*o.statuses)
	}
	return c, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := observability.NewLoggerTo(stderr, config.LoggerConfig{Level: "warn", Format: "text"})
	loader := services.NewLoader(
		services.WithRowPolicy(services.RowPolicy(opts.policy)),
		services.WithLoaderLogger(logger),
	)

	ds, err := loader.Load(ctx, opts.data)
	if err != nil {
		return err
	}

	criteria, err := opts.criteria(ds.DefaultCriteria())
	if err != nil {
		return err
	}

	report := services.Summarize(ds, criteria)
	printReport(stdout, report, ds.Skipped)

	if opts.exportPath != "" {
		if err := exportFile(opts.exportPath, report); err != nil {
			return err
		}
		fmt.Fprintln(stdout, captionStyle.Render(fmt.Sprintf("Exported %s orders to %s",
			templates.FormatCount(len(report.Rows)), opts.exportPath)))
	}
	return nil
}

func exportFile(path string, report models.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := services.WriteCSV(f, report.Rows, report.HasOrderID); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(w io.Writer, report models.Report, skipped int) {
	fmt.Fprintln(w, titleStyle.Render("📊 "+templates.Title))
	fmt.Fprintln(w, captionStyle.Render(fmt.Sprintf("Showing %s of %s orders",
		templates.FormatCount(len(report.Rows)), templates.FormatCount(report.TotalRows))))
	if skipped > 0 {
		fmt.Fprintln(w, noticeStyle.Render(fmt.Sprintf("%s malformed rows were skipped", templates.FormatCount(skipped))))
	}
	fmt.Fprintln(w)

	kpis := []struct{ label, value string }{
		{"Total Revenue", templates.FormatCurrency(report.KPIs.TotalRevenue)},
		{"Total Orders", templates.FormatCount(report.KPIs.OrderCount)},
		{"Average Order Value", templates.FormatCurrency(report.KPIs.AvgOrderValue)},
		{"Top Category", report.KPIs.TopCategory},
	}
	for _, k := range kpis {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(k.label), valueStyle.Render(k.value)))
	}
	fmt.Fprintln(w)

	if report.Empty() {
		fmt.Fprintln(w, noticeStyle.Render(templates.NoDataMessage))
		return
	}

	monthly := make([][]string, len(report.Monthly))
	for i, m := range report.Monthly {
		monthly[i] = []string{m.Period(), templates.FormatCurrency(m.Revenue)}
	}
	categories := make([][]string, len(report.ByCategory))
	for i, c := range report.ByCategory {
		categories[i] = []string{c.Category, templates.FormatCurrency(c.Revenue)}
	}
	regions := make([][]string, len(report.ByRegion))
	for i, r := range report.ByRegion {
		regions[i] = []string{r.Region, templates.FormatCurrency(r.Revenue)}
	}

	fmt.Fprintln(w, titleStyle.Render("Monthly Revenue"))
	fmt.Fprintln(w, renderTable([]string{"Month", "Revenue"}, monthly))
	fmt.Fprintln(w, titleStyle.Render("Revenue by Category"))
	fmt.Fprintln(w, renderTable([]string{"Category", "Revenue"}, categories))
	fmt.Fprintln(w, titleStyle.Render("Revenue by Region"))
	fmt.Fprintln(w, renderTable([]string{"Region", "Revenue"}, regions))
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		Render()
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		slog.Error("salesreport failed", "error", err)
		os.Exit(1)
	}
}

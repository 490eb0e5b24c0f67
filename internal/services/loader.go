package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// RowPolicy decides what happens to a row that cannot be parsed.
type RowPolicy string

const (
	// RowPolicyStrict rejects the whole load on the first malformed row.
	RowPolicyStrict RowPolicy = "strict"
	// RowPolicySkip drops malformed rows and counts them in Dataset.Skipped.
	RowPolicySkip RowPolicy = "skip"
)

var (
	ErrEmptyFile     = errors.New("empty file")
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformedRow  = errors.New("malformed row")
	ErrNoRecords     = errors.New("no valid records found")
)

// LoadError reports why a dataset could not be loaded. Line and Column are
// set when the failure is tied to a specific row or field.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load ")
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

const (
	colOrderID   = "order_id"
	colOrderDate = "order_date"
	colCategory  = "category"
	colRegion    = "region"
	colStatus    = "status"
	colQuantity  = "quantity"
	colUnitPrice = "unit_price"
)

var requiredColumns = []string{colOrderDate, colCategory, colRegion, colStatus, colQuantity, colUnitPrice}

var dateLayouts = []string{
	models.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

type columnIndex struct {
	width    int
	orderID  int
	date     int
	category int
	region   int
	status   int
	quantity int
	price    int
}

type rawRow struct {
	line   int
	fields []string
}

type parsedRow struct {
	order  models.Order
	column string
	err    error
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	dataset *models.Dataset
}

// Loader reads sales CSV files into Datasets and caches them by path until
// the file's modification time or size changes.
type Loader struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	group    singleflight.Group
	policy   RowPolicy
	cacheDir string
	logger   *slog.Logger
}

type LoaderOption func(*Loader)

func WithRowPolicy(policy RowPolicy) LoaderOption {
	return func(l *Loader) {
		if policy != "" {
			l.policy = policy
		}
	}
}

// WithCacheDir enables gob snapshots of parsed datasets in dir.
func WithCacheDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.cacheDir = dir
	}
}

func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		entries: make(map[string]cacheEntry),
		policy:  RowPolicyStrict,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the dataset stored at path, re-reading the file only when it
// changed since the previous call.
func (l *Loader) Load(ctx context.Context, path string) (*models.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	if ds := l.cached(path, info); ds != nil {
		return ds, nil
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	v, err, _ := l.group.Do(key, func() (any, error) {
		if ds := l.cached(path, info); ds != nil {
			return ds, nil
		}

		ds, err := l.load(ctx, path, info)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), dataset: ds}
		l.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Dataset), nil
}

// Forget drops the cached dataset for path.
func (l *Loader) Forget(path string) {
	l.mu.Lock()
	delete(l.entries, path)
	l.mu.Unlock()
}

func (l *Loader) cached(path string, info os.FileInfo) *models.Dataset {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[path]
	if !ok || !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		return nil
	}
	return entry.dataset
}

func (l *Loader) load(ctx context.Context, path string, info os.FileInfo) (*models.Dataset, error) {
	if l.cacheDir != "" {
		if ds, err := loadSnapshot(l.cacheDir, path, info, l.policy); err == nil {
			l.logger.Info("loaded dataset from snapshot", "path", path, "records", ds.Len())
			return ds, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	orders, skipped, hasOrderID, err := l.parse(ctx, path, file)
	if err != nil {
		return nil, err
	}

	ds := models.NewDataset(orders)
	ds.HasOrderID = ds.HasOrderID || hasOrderID
	ds.Source = path
	ds.ModTime = info.ModTime()
	ds.Size = info.Size()
	ds.Skipped = skipped

	if l.cacheDir != "" {
		if err := saveSnapshot(l.cacheDir, ds, l.policy); err != nil {
			l.logger.Warn("failed to save dataset snapshot", "path", path, "error", err)
		}
	}

	return ds, nil
}

// ParseCSV reads orders from r without caching. Malformed rows are handled
// according to the loader's RowPolicy.
func (l *Loader) ParseCSV(ctx context.Context, name string, r io.Reader) (*models.Dataset, error) {
	orders, skipped, hasOrderID, err := l.parse(ctx, name, r)
	if err != nil {
		return nil, err
	}
	ds := models.NewDataset(orders)
	ds.HasOrderID = ds.HasOrderID || hasOrderID
	ds.Source = name
	ds.Skipped = skipped
	return ds, nil
}

// parse reads the header and every row of r. hasOrderID reports whether the
// header carries an order_id column, even one whose cells are all blank.
func (l *Loader) parse(ctx context.Context, path string, r io.Reader) (orders []models.Order, skipped int, hasOrderID bool, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, false, &LoadError{Path: path, Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, 0, false, &LoadError{Path: path, Line: 1, Err: err}
	}

	cols, err := mapColumns(header)
	if err != nil {
		var missing *missingColumnError
		if errors.As(err, &missing) {
			return nil, 0, false, &LoadError{Path: path, Line: 1, Column: missing.column, Err: ErrMissingColumn}
		}
		return nil, 0, false, &LoadError{Path: path, Line: 1, Err: err}
	}

	var rows []rawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, false, &LoadError{Path: path, Err: err}
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
				// An unterminated quote runs across the following lines, so
				// skipping it would silently drop rows that were never counted.
				if pe.StartLine != pe.Line {
					return nil, 0, false, &LoadError{Path: path, Line: pe.StartLine, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
				}
			}
			if l.policy == RowPolicySkip {
				l.logger.Warn("skipping unreadable row", "path", path, "line", line, "error", err)
				skipped++
				continue
			}
			return nil, 0, false, &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, rawRow{line: line, fields: record})
	}

	parsed, err := parseRows(ctx, rows, cols)
	if err != nil {
		return nil, 0, false, &LoadError{Path: path, Err: err}
	}

	orders = make([]models.Order, 0, len(parsed))
	for i, p := range parsed {
		if p.err == nil {
			orders = append(orders, p.order)
			continue
		}
		if l.policy == RowPolicySkip {
			l.logger.Warn("skipping malformed row",
				"path", path,
				"line", rows[i].line,
				"column", p.column,
				"error", p.err,
			)
			skipped++
			continue
		}
		return nil, 0, false, &LoadError{Path: path, Line: rows[i].line, Column: p.column, Err: p.err}
	}

	if len(orders) == 0 && skipped > 0 {
		return nil, 0, false, &LoadError{Path: path, Err: ErrNoRecords}
	}

	return orders, skipped, cols.orderID >= 0, nil
}

// parseRows converts raw records in parallel batches. Each worker writes to
// its own index range, so output order matches input order.
func parseRows(ctx context.Context, rows []rawRow, cols columnIndex) ([]parsedRow, error) {
	parsed := make([]parsedRow, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				order, column, err := parseOrder(rows[i].fields, cols)
				parsed[i] = parsedRow{order: order, column: column, err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

type missingColumnError struct {
	column string
}

func (e *missingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.column)
}

func mapColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := positions[name]; !ok {
			return columnIndex{}, &missingColumnError{column: name}
		}
	}

	cols := columnIndex{
		width:    len(header),
		orderID:  -1,
		date:     positions[colOrderDate],
		category: positions[colCategory],
		region:   positions[colRegion],
		status:   positions[colStatus],
		quantity: positions[colQuantity],
		price:    positions[colUnitPrice],
	}
	if idx, ok := positions[colOrderID]; ok {
		cols.orderID = idx
	}
	return cols, nil
}

func parseOrder(record []string, cols columnIndex) (models.Order, string, error) {
	if len(record) != cols.width {
		return models.Order{}, "", fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRow, cols.width, len(record))
	}

	field := func(i int) string { return strings.TrimSpace(record[i]) }

	date, err := ParseDate(field(cols.date))
	if err != nil {
		return models.Order{}, colOrderDate, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	quantity, err := strconv.Atoi(field(cols.quantity))
	if err != nil {
		return models.Order{}, colQuantity, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if quantity < 0 {
		return models.Order{}, colQuantity, fmt.Errorf("%w: negative quantity %d", ErrMalformedRow, quantity)
	}

	category, region, status := field(cols.category), field(cols.region), field(cols.status)
	for _, dim := range []struct{ column, value string }{
		{colCategory, category},
		{colRegion, region},
		{colStatus, status},
	} {
		if dim.value == "" {
			return models.Order{}, dim.column, fmt.Errorf("%w: blank %s", ErrMalformedRow, dim.column)
		}
	}

	price, err := decimal.NewFromString(field(cols.price))
	if err != nil {
		return models.Order{}, colUnitPrice, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if price.IsNegative() {
		return models.Order{}, colUnitPrice, fmt.Errorf("%w: negative unit price %s", ErrMalformedRow, price)
	}

	var id string
	if cols.orderID >= 0 {
		id = field(cols.orderID)
	}

	return models.NewOrder(id, date, category, region, status, quantity, price), "", nil
}

// ParseDate accepts the date formats found in exported sales sheets and
// returns the calendar date with any time of day removed.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

package services

import (
	"encoding/csv"
	"io"
	"strconv"

	"sales-dashboard/internal/models"
)

const (
	ExportFilename    = "filtered_sales_data.csv"
	ExportContentType = "text/csv"
)

var exportHeader = []string{colOrderDate, colCategory, colRegion, colStatus, colQuantity, colUnitPrice, "revenue"}

// WriteCSV serialises view in the loader's input format plus the derived
// revenue column.
func WriteCSV(w io.Writer, view []models.Order, includeOrderID bool) error {
	writer := csv.NewWriter(w)

	header := exportHeader
	if includeOrderID {
		header = append([]string{colOrderID}, exportHeader...)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for _, o := range view {
		record = record[:0]
		if includeOrderID {
			record = append(record, o.OrderID)
		}
		record = append(record,
			o.Date.Format(models.DateLayout),
			o.Category,
			o.Region,
			o.Status,
			strconv.Itoa(o.Quantity),
			o.UnitPrice.String(),
			o.Revenue.String(),
		)
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

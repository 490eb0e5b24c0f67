package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for query parameters and exports.
const DateLayout = "2006-01-02"

type Order struct {
	OrderID   string          `json:"order_id,omitempty"`
	Date      time.Time       `json:"order_date"`
	Category  string          `json:"category"`
	Region    string          `json:"region"`
	Status    string          `json:"status"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// NewOrder builds an Order with its date truncated to the calendar day and
// revenue derived from quantity and unit price.
func NewOrder(id string, date time.Time, category, region, status string, quantity int, unitPrice decimal.Decimal) Order {
	return Order{
		OrderID:   id,
		Date:      CalendarDate(date),
		Category:  category,
		Region:    region,
		Status:    status,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Revenue:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// CalendarDate drops the time of day, keeping the date as observed in t's location.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

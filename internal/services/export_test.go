package services

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func TestWriteCSV_RoundTrip(t *testing.T) {
	ds := generateDataset(55, 400)
	r := rand.New(rand.NewPCG(55, 1))

	for i := 0; i < 10; i++ {
		view := Apply(ds, randomCriteria(r, ds))

		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, view, false))

		parsed, err := NewLoader().ParseCSV(context.Background(), ExportFilename, &buf)
		require.NoError(t, err)
		assertSameOrders(t, view, parsed.Orders)
	}
}

func TestWriteCSV_OrderIDAndQuoting(t *testing.T) {
	view := []models.Order{
		models.NewOrder("O-9", mustDate(t, "2024-05-01"), "Home, Garden", "North \"Hub\"", "Complete", 3,
			decimal.RequireFromString("19.99")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, view, true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "order_id,order_date,category,region,status,quantity,unit_price,revenue", lines[0])
	assert.Equal(t, `O-9,2024-05-01,"Home, Garden","North ""Hub""",Complete,3,19.99,59.97`, lines[1])

	parsed, err := NewLoader().ParseCSV(context.Background(), ExportFilename, &buf)
	require.NoError(t, err)
	assert.True(t, parsed.HasOrderID)
	assertSameOrders(t, view, parsed.Orders)
}

func TestWriteCSV_EmptyView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Order{}, false))
	assert.Equal(t, "order_date,category,region,status,quantity,unit_price,revenue\n", buf.String())

	parsed, err := NewLoader().ParseCSV(context.Background(), ExportFilename, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Len())
}

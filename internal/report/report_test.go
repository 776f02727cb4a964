package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	excelize "github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
)

func seedOrders(t *testing.T, db *gorm.DB) {
	t.Helper()
	pid := int64(5)
	orders := []domain.OrderUser{
		{Reference: "r1", Phone: "+998901111111", Name: "Ali", TotalPrice: 100,
			CreatedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			Lines:     []domain.Order{{ProductID: &pid, ProductTitle: "Cap", Count: 2, UnitPrice: 50}}},
		{Reference: "r2", Phone: "+998901111111", Name: "Ali", TotalPrice: 300,
			CreatedAt: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC),
			Lines: []domain.Order{
				{ProductTitle: "Coat", Count: 1, UnitPrice: 200},
				{ProductID: &pid, ProductTitle: "Cap", Count: 2, UnitPrice: 50},
			}},
		{Reference: "r3", Phone: "+998902222222", Name: "Vali", TotalPrice: 50,
			CreatedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			Lines:     []domain.Order{{ProductID: &pid, ProductTitle: "Cap", Count: 1, UnitPrice: 50}}},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}
}

func TestAnalytics(t *testing.T) {
	db := dbtest.Open(t)
	seedOrders(t, db)
	ctx := context.Background()

	res, err := Analytics(ctx, db, "+998901111111", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrderCount)
	assert.Equal(t, int64(400), res.TotalRevenue)
	assert.Equal(t, 200.0, res.AverageTotal)
	assert.Equal(t, 200.0, res.MedianTotal)
	assert.Equal(t, int64(300), res.MaxTotal)
	assert.Equal(t, 5, res.ItemCount)
	assert.Equal(t, "r2", res.Latest.Reference)
	assert.Equal(t, 2, res.Latest.LineCount)
	assert.Equal(t, 3, res.Latest.ItemCount)
	assert.Nil(t, res.Since)

	since, err := ParseSince("2024-02-01")
	require.NoError(t, err)
	res, err = Analytics(ctx, db, "", since)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrderCount)
	assert.Equal(t, "r3", res.Latest.Reference)
	require.NotNil(t, res.Since)

	_, err = Analytics(ctx, db, "+998900000000", time.Time{})
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestParseSince(t *testing.T) {
	for _, v := range []string{"2024-03-01", "03/01/2024", "2024-03-01T10:00:00Z"} {
		got, err := ParseSince(v)
		require.NoError(t, err, v)
		assert.Equal(t, 2024, got.Year(), v)
	}
	zero, err := ParseSince("  ")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseSince("not a date")
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	db := dbtest.Open(t)
	seedOrders(t, db)

	rows, err := LoadExportRows(context.Background(), db, ExportFilter{Phone: "+998901111111"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "", rows[1].ProductID)
	assert.Equal(t, int64(200), rows[1].LineTotal)

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, FormatCSV, rows))

	var decoded []ExportRow
	require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "Coat", decoded[1].Product)
	assert.Equal(t, int64(300), decoded[1].OrderTotal)

	buf.Reset()
	require.NoError(t, WriteExport(&buf, "", nil))
	assert.Equal(t, "order_id,reference,created_at,name,phone,address,product_id,product,count,unit_price,line_total,order_total\n", buf.String())

	assert.ErrorIs(t, WriteExport(&buf, "pdf", rows), ErrUnknownFormat)
}

func TestExportXLSX(t *testing.T) {
	db := dbtest.Open(t)
	seedOrders(t, db)

	rows, err := LoadExportRows(context.Background(), db, ExportFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, FormatXLSX, rows))

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "order_id", book.GetCellValue(sheetName, "A1"))
	assert.Equal(t, "order_total", book.GetCellValue(sheetName, "L1"))
	assert.Equal(t, "Vali", book.GetCellValue(sheetName, "D5"))
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "A1", cellName(0, 1))
	assert.Equal(t, "Z3", cellName(25, 3))
	assert.Equal(t, "AA2", cellName(26, 2))
	assert.Equal(t, "AB10", cellName(27, 10))
}

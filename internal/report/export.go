// Package report builds order exports and order analytics.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	excelize "github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheetName = "Sheet1"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ExportRow one order line flattened with its order header
type ExportRow struct {
	OrderID    int64  `csv:"order_id"`
	Reference  string `csv:"reference"`
	CreatedAt  string `csv:"created_at"`
	Name       string `csv:"name"`
	Phone      string `csv:"phone"`
	Address    string `csv:"address"`
	ProductID  string `csv:"product_id"`
	Product    string `csv:"product"`
	Count      int    `csv:"count"`
	UnitPrice  int64  `csv:"unit_price"`
	LineTotal  int64  `csv:"line_total"`
	OrderTotal int64  `csv:"order_total"`
}

var exportHeader = []string{
	"order_id", "reference", "created_at", "name", "phone", "address",
	"product_id", "product", "count", "unit_price", "line_total", "order_total",
}

func (r ExportRow) cells() []interface{} {
	return []interface{}{
		r.OrderID, r.Reference, r.CreatedAt, r.Name, r.Phone, r.Address,
		r.ProductID, r.Product, r.Count, r.UnitPrice, r.LineTotal, r.OrderTotal,
	}
}

// ExportFilter narrows the exported orders; zero values mean no bound.
type ExportFilter struct {
	Phone string
	Since time.Time
	Until time.Time
}

// LoadExportRows reads orders with their lines, oldest first.
func LoadExportRows(ctx context.Context, db *gorm.DB, f ExportFilter) ([]ExportRow, error) {
	query := db.WithContext(ctx).Model(&domain.OrderUser{}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("product_order.id ASC") })
	if f.Phone != "" {
		query = query.Where("phone = ?", f.Phone)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		query = query.Where("created_at < ?", f.Until)
	}
	var orders []domain.OrderUser
	if err := query.Order("id ASC").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "load orders")
	}

	rows := make([]ExportRow, 0, len(orders))
	for _, o := range orders {
		for _, l := range o.Lines {
			pid := ""
			if l.ProductID != nil {
				pid = fmt.Sprint(*l.ProductID)
			}
			rows = append(rows, ExportRow{
				OrderID:    o.ID,
				Reference:  o.Reference,
				CreatedAt:  o.CreatedAt.Format(time.RFC3339),
				Name:       o.Name,
				Phone:      o.Phone,
				Address:    o.Address,
				ProductID:  pid,
				Product:    l.ProductTitle,
				Count:      l.Count,
				UnitPrice:  l.UnitPrice,
				LineTotal:  l.LineTotal(),
				OrderTotal: o.TotalPrice,
			})
		}
	}
	return rows, nil
}

// ContentType of an export format
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteExport encodes rows as csv or xlsx.
func WriteExport(w io.Writer, format string, rows []ExportRow) error {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		if len(rows) == 0 {
			_, err := io.WriteString(w, strings.Join(exportHeader, ",")+"\n")
			return err
		}
		return gocsv.Marshal(rows, w)
	case FormatXLSX:
		return writeXlsx(w, rows)
	}
	return ErrUnknownFormat
}

func writeXlsx(w io.Writer, rows []ExportRow) error {
	xlsx := excelize.NewFile()
	for i, h := range exportHeader {
		xlsx.SetCellValue(sheetName, cellName(i, 1), h)
	}
	for r, row := range rows {
		for c, v := range row.cells() {
			xlsx.SetCellValue(sheetName, cellName(c, r+2), v)
		}
	}
	return xlsx.Write(w)
}

// cellName converts a zero based column and one based row into "A1" notation.
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}

package report

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

var ErrNoOrders = errors.New("no orders found")

// LatestOrder summary of the newest matching order
type LatestOrder struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	TotalPrice int64     `json:"total_price"`
	ItemCount  int       `json:"item_count"`
	LineCount  int       `json:"line_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderStats aggregate over every matching order
type OrderStats struct {
	Latest       LatestOrder `json:"latest"`
	OrderCount   int         `json:"order_count"`
	ItemCount    int         `json:"item_count"`
	TotalRevenue int64       `json:"total_revenue"`
	AverageTotal float64     `json:"average_total"`
	MedianTotal  float64     `json:"median_total"`
	MaxTotal     int64       `json:"max_total"`
	Since        *time.Time  `json:"since,omitempty"`
}

// ParseSince accepts any date layout dateparse understands, e.g.
// "2024-03-01", "03/01/2024" or an RFC3339 timestamp.
func ParseSince(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseLocal(v)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", v)
	}
	return t, nil
}

// Analytics aggregates orders for phone (all phones when empty) placed at or
// after since. It returns ErrNoOrders when nothing matches.
func Analytics(ctx context.Context, db *gorm.DB, phone string, since time.Time) (*OrderStats, error) {
	query := db.WithContext(ctx).Model(&domain.OrderUser{}).Preload("Lines")
	if phone = strings.TrimSpace(phone); phone != "" {
		query = query.Where("phone = ?", phone)
	}
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var orders []domain.OrderUser
	if err := query.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	totals := make(stats.Float64Data, 0, len(orders))
	res := &OrderStats{OrderCount: len(orders)}
	for i := range orders {
		o := &orders[i]
		totals = append(totals, float64(o.TotalPrice))
		res.TotalRevenue += o.TotalPrice
		res.ItemCount += o.ItemCount()
		if o.TotalPrice > res.MaxTotal {
			res.MaxTotal = o.TotalPrice
		}
	}
	var err error
	if res.AverageTotal, err = stats.Mean(totals); err != nil {
		return nil, errors.Wrap(err, "mean")
	}
	if res.MedianTotal, err = stats.Median(totals); err != nil {
		return nil, errors.Wrap(err, "median")
	}
	res.AverageTotal, _ = stats.Round(res.AverageTotal, 2)

	latest := &orders[0]
	res.Latest = LatestOrder{
		ID:         latest.ID,
		Reference:  latest.Reference,
		Name:       latest.Name,
		Phone:      latest.Phone,
		TotalPrice: latest.TotalPrice,
		ItemCount:  latest.ItemCount(),
		LineCount:  len(latest.Lines),
		CreatedAt:  latest.CreatedAt,
	}
	if !since.IsZero() {
		res.Since = &since
	}
	return res, nil
}

// Package checkout turns a guest cart into a persisted order and hands the
// committed result to the notifier.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

// ProductNotFoundError reports the first cart line whose product is missing.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// ErrProductNotFound matches any *ProductNotFoundError with errors.Is.
var ErrProductNotFound = errors.New("product not found")

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// MaxLineCount caps the quantity of a single cart line.
const MaxLineCount = 10000

var (
	ErrInvalidCount  = errors.New("count must be between 1 and 10000")
	ErrTotalTooLarge = errors.New("order total is too large")
)

// LineItem one cart entry
type LineItem struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Count     int   `json:"count" validate:"required,min=1,max=10000"`
}

// Request guest checkout payload
type Request struct {
	Name      string     `json:"name" validate:"omitempty,max=255"`
	Phone     string     `json:"phone" validate:"required,max=32"`
	Address   string     `json:"address" validate:"omitempty,max=255"`
	LineItems []LineItem `json:"order" validate:"required,min=1,dive"`
}

// DetailLine is one rendered cart line, the unit the notifier formats.
type DetailLine struct {
	Index     int
	Title     string
	Count     int
	UnitPrice int64
	LineTotal int64
}

// Notifier receives every committed order. Implementations must not block
// the caller for long and must swallow their own delivery failures.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *domain.OrderUser, lines []DetailLine)
}

type Service struct {
	db       *gorm.DB
	notifier Notifier
	fallback string
}

// NewService builds a checkout service. fallback is the locale used for
// title snapshots when the request locale has no translation.
func NewService(db *gorm.DB, notifier Notifier, fallback string) *Service {
	return &Service{db: db, notifier: notifier, fallback: fallback}
}

// Submit persists the order and its lines in one transaction, then notifies.
// Unknown products abort the whole order with a *ProductNotFoundError.
func (s *Service) Submit(ctx context.Context, req *Request, locale string) (*domain.OrderUser, error) {
	if len(req.LineItems) == 0 {
		return nil, pkgerrors.New("order has no lines")
	}
	order := &domain.OrderUser{
		Reference: uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
	}
	var details []DetailLine

	for i, item := range req.LineItems {
		if item.Count < 1 || item.Count > MaxLineCount {
			return nil, pkgerrors.Wrapf(ErrInvalidCount, "order[%d].count", i)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, item := range req.LineItems {
			var p domain.Product
			if err := tx.Where("id = ?", item.ProductID).First(&p).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ProductNotFoundError{ProductID: item.ProductID}
				}
				return pkgerrors.Wrapf(err, "load product %d", item.ProductID)
			}
			pid := p.ID
			line := domain.Order{
				ProductID:    &pid,
				ProductTitle: p.Title.Get(locale, s.fallback),
				Count:        item.Count,
				UnitPrice:    p.UnitPrice(),
			}
			total, ok := addLineTotal(order.TotalPrice, line.UnitPrice, line.Count)
			if !ok {
				return pkgerrors.Wrapf(ErrTotalTooLarge, "order[%d]", i)
			}
			order.TotalPrice = total
			order.Lines = append(order.Lines, line)
			details = append(details, DetailLine{
				Index:     i + 1,
				Title:     line.ProductTitle,
				Count:     line.Count,
				UnitPrice: line.UnitPrice,
				LineTotal: line.LineTotal(),
			})
		}
		// creates the order_user row and every product_order row
		if err := tx.Create(order).Error; err != nil {
			return pkgerrors.Wrap(err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order placed",
		zap.String("namespace", "checkout"),
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Int64("total", order.TotalPrice),
		zap.Int("items", order.ItemCount()))

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, order, details)
	}
	return order, nil
}

// addLineTotal returns total + unit*count, false when the result leaves int64.
func addLineTotal(total, unit int64, count int) (int64, bool) {
	n := int64(count)
	if unit < 0 || n < 0 {
		return 0, false
	}
	if n > 0 && unit > math.MaxInt64/n {
		return 0, false
	}
	line := unit * n
	if total > math.MaxInt64-line {
		return 0, false
	}
	return total + line, true
}

// Details rebuilds the rendered lines of a stored order.
func Details(order *domain.OrderUser) []DetailLine {
	out := make([]DetailLine, 0, len(order.Lines))
	for i, l := range order.Lines {
		out = append(out, DetailLine{
			Index:     i + 1,
			Title:     l.ProductTitle,
			Count:     l.Count,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal(),
		})
	}
	return out
}

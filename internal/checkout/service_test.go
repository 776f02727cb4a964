package checkout

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*domain.OrderUser
	lines  [][]DetailLine
}

func (r *recordingNotifier) OrderPlaced(_ context.Context, order *domain.OrderUser, lines []DetailLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, order)
	r.lines = append(r.lines, lines)
}

func createProduct(t *testing.T, db *gorm.DB, slug string, price, sales int64) domain.Product {
	t.Helper()
	p := domain.Product{
		Title:      domain.Localized{"ru": "Товар " + slug, "uz": "Mahsulot " + slug},
		Price:      price,
		Sales:      sales,
		CategoryID: 1, SubCategoryID: 1,
		Slug:   slug,
		Gender: domain.GenderUnisex,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestSubmitTotals(t *testing.T) {
	db := dbtest.Open(t)
	rec := &recordingNotifier{}
	svc := NewService(db, rec, "ru")

	a := createProduct(t, db, "a", 100, 20)
	b := createProduct(t, db, "b", 50, 0)

	order, err := svc.Submit(context.Background(), &Request{
		Name:  " Ali ",
		Phone: "+998901234567",
		LineItems: []LineItem{
			{ProductID: a.ID, Count: 2},
			{ProductID: b.ID, Count: 1},
		},
	}, "uz")
	require.NoError(t, err)

	assert.Equal(t, int64(210), order.TotalPrice)
	assert.Equal(t, "Ali", order.Name)
	assert.Len(t, order.Reference, 36)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(80), order.Lines[0].UnitPrice)
	assert.Equal(t, "Mahsulot a", order.Lines[0].ProductTitle)
	assert.Equal(t, 3, order.ItemCount())

	var stored domain.OrderUser
	require.NoError(t, db.Preload("Lines").First(&stored, order.ID).Error)
	assert.Equal(t, int64(210), stored.TotalPrice)
	assert.Len(t, stored.Lines, 2)

	require.Len(t, rec.orders, 1)
	assert.Equal(t, order.ID, rec.orders[0].ID)
	assert.Equal(t, []DetailLine{
		{Index: 1, Title: "Mahsulot a", Count: 2, UnitPrice: 80, LineTotal: 160},
		{Index: 2, Title: "Mahsulot b", Count: 1, UnitPrice: 50, LineTotal: 50},
	}, rec.lines[0])
	assert.Equal(t, rec.lines[0], Details(&stored))
}

func TestSubmitIsAtomic(t *testing.T) {
	db := dbtest.Open(t)
	rec := &recordingNotifier{}
	svc := NewService(db, rec, "ru")

	a := createProduct(t, db, "a", 100, 0)
	c := createProduct(t, db, "c", 30, 0)

	_, err := svc.Submit(context.Background(), &Request{
		Phone: "+998901234567",
		LineItems: []LineItem{
			{ProductID: a.ID, Count: 1},
			{ProductID: 9999, Count: 1},
			{ProductID: c.ID, Count: 1},
		},
	}, "ru")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProductNotFound)
	var nf *ProductNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int64(9999), nf.ProductID)

	var users, lines int64
	require.NoError(t, db.Model(&domain.OrderUser{}).Count(&users).Error)
	require.NoError(t, db.Model(&domain.Order{}).Count(&lines).Error)
	assert.Zero(t, users)
	assert.Zero(t, lines)
	assert.Empty(t, rec.orders)
}

func TestSubmitEmptyCart(t *testing.T) {
	svc := NewService(dbtest.Open(t), nil, "ru")
	_, err := svc.Submit(context.Background(), &Request{Phone: "1"}, "ru")
	assert.Error(t, err)
}

func TestSubmitRejectsOversizedOrders(t *testing.T) {
	db := dbtest.Open(t)
	rec := &recordingNotifier{}
	svc := NewService(db, rec, "ru")

	cheap := createProduct(t, db, "cheap", 100000, 0)
	pricey := createProduct(t, db, "pricey", math.MaxInt64/3*2, 0)

	cases := []struct {
		name  string
		lines []LineItem
		want  error
	}{
		{"count wraps the total", []LineItem{{ProductID: cheap.ID, Count: int(math.MaxInt64/100000 + 1)}}, ErrInvalidCount},
		{"count above the cap", []LineItem{{ProductID: cheap.ID, Count: MaxLineCount + 1}}, ErrInvalidCount},
		{"line total overflows", []LineItem{{ProductID: pricey.ID, Count: 2}}, ErrTotalTooLarge},
		{"running total overflows", []LineItem{{ProductID: pricey.ID, Count: 1}, {ProductID: pricey.ID, Count: 1}}, ErrTotalTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), &Request{Phone: "+998901234567", LineItems: tc.lines}, "ru")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var users, lines int64
	require.NoError(t, db.Model(&domain.OrderUser{}).Count(&users).Error)
	require.NoError(t, db.Model(&domain.Order{}).Count(&lines).Error)
	assert.Zero(t, users)
	assert.Zero(t, lines)
	assert.Empty(t, rec.orders)

	order, err := svc.Submit(context.Background(), &Request{
		Phone:     "+998901234567",
		LineItems: []LineItem{{ProductID: cheap.ID, Count: MaxLineCount}},
	}, "ru")
	require.NoError(t, err)
	assert.Equal(t, int64(100000*MaxLineCount), order.TotalPrice)
}

func TestAddLineTotal(t *testing.T) {
	total, ok := addLineTotal(10, 80, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(170), total)

	_, ok = addLineTotal(0, math.MaxInt64, 2)
	assert.False(t, ok)
	_, ok = addLineTotal(math.MaxInt64-5, 3, 2)
	assert.False(t, ok)
	_, ok = addLineTotal(0, -1, 1)
	assert.False(t, ok)
}

package shopapi

import (
	"bytes"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/i18n"
	"github.com/bazaarlab/storefront/internal/media"
	"github.com/bazaarlab/storefront/internal/notify"
	"github.com/bazaarlab/storefront/internal/webserver"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// botAPI fake Telegram endpoint; chats listed in failing get a 400.
type botAPI struct {
	mu      sync.Mutex
	chats   []string
	failing map[string]bool
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]interface{}
	_ = jsoniter.Unmarshal(body, &payload)
	chat, _ := payload["chat_id"].(string)
	b.mu.Lock()
	b.chats = append(b.chats, chat)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if b.failing[chat] {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
}

type testEnv struct {
	t   *testing.T
	db  *gorm.DB
	e   *echo.Echo
	bot *botAPI
}

func newTestEnv(t *testing.T, chats ...string) *testEnv {
	t.Helper()
	require.NoError(t, metrics.InitMetrics(""))
	t.Cleanup(func() { _ = metrics.Close() })

	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.System.Debug = false
	cfg.Media.Root = t.TempDir()

	db := dbtest.Open(t)
	store, err := media.NewStore(cfg.Media.Root, cfg.Media.URLPrefix, 1, 1)
	require.NoError(t, err)

	bot := &botAPI{failing: map[string]bool{"2": true}}
	var senders []notify.Sender
	if len(chats) > 0 {
		srv := httptest.NewServer(bot)
		t.Cleanup(srv.Close)
		senders = append(senders, notify.NewTelegramSender(config.TelegramConfig{
			ApiBase: srv.URL,
			Token:   "1:test",
			ChatIds: chats,
		}, 2*time.Second, srv.Client()))
	}
	dispatcher := notify.NewDispatcher(2*time.Second, senders...)

	ws := webserver.Init(&cfg)
	Init(&Deps{
		DB:         db,
		Config:     &cfg,
		I18n:       i18n.NewResolver("ru", []string{"ru", "uz"}),
		Media:      store,
		Checkout:   checkout.NewService(db, notify.NewSyncNotifier(dispatcher), "ru"),
		Dispatcher: dispatcher,
	})
	return &testEnv{t: t, db: db, e: ws.Echo(), bot: bot}
}

type envelope struct {
	Data     jsoniter.RawMessage    `json:"data"`
	Error    string                 `json:"error"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

func (env *testEnv) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	env.t.Helper()
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	var out envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(env.t, jsoniter.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (env *testEnv) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	env.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return env.serve(req)
}

func (env *testEnv) upload(path, field, filename string, content []byte, extra map[string]string) (*httptest.ResponseRecorder, envelope) {
	env.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(env.t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(env.t, err)
	_, _ = fw.Write(content)
	require.NoError(env.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return env.serve(req)
}

func decode(t *testing.T, raw jsoniter.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, jsoniter.Unmarshal(raw, v), string(raw))
}

// seedCatalog creates one category with one sub-category and returns their ids.
func (env *testEnv) seedCatalog() (int64, int64) {
	cat := domain.Category{Title: domain.Localized{"ru": "Обувь", "uz": "Poyabzal"}}
	require.NoError(env.t, env.db.Create(&cat).Error)
	sub := domain.SubCategory{Title: domain.Localized{"ru": "Кроссовки"}, CategoryID: cat.ID}
	require.NoError(env.t, env.db.Create(&sub).Error)
	return cat.ID, sub.ID
}

func (env *testEnv) seedProduct(catID, subID int64, slug string, price, sales int64) domain.Product {
	p := domain.Product{
		Title:         domain.Localized{"ru": "Товар " + slug, "uz": "Mahsulot " + slug},
		Price:         price,
		Sales:         sales,
		IsAvailable:   true,
		CategoryID:    catID,
		SubCategoryID: subID,
		Slug:          slug,
		Gender:        domain.GenderUnisex,
	}
	require.NoError(env.t, env.db.Create(&p).Error)
	return p
}

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, res := env.do(http.MethodPost, "/api/v1/categories", map[string]interface{}{
		"title": map[string]string{"ru": "Обувь", "uz": "Poyabzal"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat categoryView
	decode(t, res.Data, &cat)
	assert.Equal(t, "Обувь", cat.Title)
	assert.Equal(t, int64(0), cat.SubCategoryCount)

	rec, res = env.do(http.MethodPost, "/api/v1/categories", map[string]interface{}{
		"title": map[string]string{"ru": "Обувь"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_CATEGORY", res.Error)

	rec, res = env.do(http.MethodPost, "/api/v1/categories", map[string]interface{}{
		"title": map[string]string{"uz": "Kurtkalar"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error)
	assert.Contains(t, res.Details, "title")

	rec, res = env.do(http.MethodGet, "/api/v1/categories/"+itoa(cat.ID)+"?lang=uz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, res.Data, &cat)
	assert.Equal(t, "Poyabzal", cat.Title)

	rec, _ = env.do(http.MethodPost, "/api/v1/sub-categories", map[string]interface{}{
		"title":       map[string]string{"ru": "Кроссовки"},
		"category_id": cat.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, res = env.do(http.MethodDelete, "/api/v1/categories/"+itoa(cat.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INTEGRITY_ERROR", res.Error)

	rec, res = env.do(http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), res.Total)
	var list []categoryView
	decode(t, res.Data, &list)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].SubCategoryCount)

	rec, res = env.do(http.MethodGet, "/api/v1/categories/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", res.Error)
}

func TestProductWriteRules(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()

	body := map[string]interface{}{
		"title":           map[string]string{"ru": "Air Max", "uz": "Air Max"},
		"price":           100,
		"sales":           150,
		"category_id":     catID,
		"sub_category_id": subID,
	}
	rec, res := env.do(http.MethodPost, "/api/v1/products", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INTEGRITY_ERROR", res.Error)
	assert.Contains(t, res.Details, "sales")

	body["sales"] = 20
	rec, res = env.do(http.MethodPost, "/api/v1/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first productView
	decode(t, res.Data, &first)
	assert.Equal(t, "air-max", first.Slug)
	assert.Equal(t, int64(80), first.FinalPrice)
	assert.Equal(t, domain.GenderUnisex, first.Gender)
	assert.True(t, first.IsAvailable)

	rec, res = env.do(http.MethodPost, "/api/v1/products", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second productView
	decode(t, res.Data, &second)
	assert.Equal(t, "air-max-1", second.Slug)

	body["images"] = []int64{1, 2, 3, 4}
	rec, _ = env.do(http.MethodPost, "/api/v1/products", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body["images"] = nil
	body["sub_category_id"] = 999
	rec, res = env.do(http.MethodPost, "/api/v1/products", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "sub_category_id")

	body["sub_category_id"] = subID
	body["price"] = 50
	body["sales"] = 60
	rec, res = env.do(http.MethodPut, "/api/v1/products/"+itoa(first.ID), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INTEGRITY_ERROR", res.Error)

	var stored domain.Product
	require.NoError(t, env.db.First(&stored, first.ID).Error)
	assert.Equal(t, int64(100), stored.Price)
	assert.Equal(t, int64(20), stored.Sales)
}

func TestProductDetail(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	p := env.seedProduct(catID, subID, "runner", 400, 0)
	env.seedProduct(catID, subID, "walker", 300, 0)

	for _, star := range []int{5, 4} {
		rec, _ := env.do(http.MethodPost, "/api/v1/product-ratings", map[string]interface{}{
			"product_id": p.ID, "star": star, "name": "Ali",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec, res := env.do(http.MethodPost, "/api/v1/product-ratings", map[string]interface{}{
		"product_id": p.ID, "star": 6,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "star")

	rec, _ = env.do(http.MethodPost, "/api/v1/short-descriptions", map[string]interface{}{
		"key":        map[string]string{"ru": "Материал"},
		"value":      map[string]string{"ru": "Кожа"},
		"product_id": p.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, key := range []string{"runner", itoa(p.ID)} {
		rec, res = env.do(http.MethodGet, "/api/v1/products/"+key, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail struct {
			ID                int64                  `json:"id"`
			RatingCount       int                    `json:"rating_count"`
			AverageRating     float64                `json:"average_rating"`
			Ratings           []ratingView           `json:"ratings"`
			ShortDescriptions []shortDescriptionView `json:"short_descriptions"`
			Related           []productView          `json:"related_products"`
		}
		decode(t, res.Data, &detail)
		assert.Equal(t, p.ID, detail.ID)
		assert.Equal(t, 2, detail.RatingCount)
		assert.Equal(t, 4.5, detail.AverageRating)
		require.Len(t, detail.Ratings, 2)
		assert.Equal(t, 5, detail.Ratings[0].Star)
		require.Len(t, detail.ShortDescriptions, 1)
		assert.Equal(t, "Кожа", detail.ShortDescriptions[0].Value)
		require.Len(t, detail.Related, 1)
		assert.Equal(t, "walker", detail.Related[0].Slug)
	}

	rec, res = env.do(http.MethodGet, "/api/v1/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", res.Error)
}

func TestProductListing(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	onSale := env.seedProduct(catID, subID, "on-sale", 150, 10)
	env.seedProduct(catID, subID, "full-price", 150, 0)
	env.seedProduct(catID, subID, "expensive", 500, 50)

	rec, res := env.do(http.MethodGet, "/api/v1/products?min_price=100&max_price=200&has_sale=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var items []productView
	decode(t, res.Data, &items)
	require.Len(t, items, 1)
	assert.Equal(t, onSale.ID, items[0].ID)
	assert.Equal(t, int64(1), res.Total)

	rec, res = env.do(http.MethodGet, "/api/v1/products?order_by=-price&perPage=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, res.Data, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "expensive", items[0].Slug)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, 2, res.PageSize)

	rec, res = env.do(http.MethodGet, "/api/v1/products?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "min_price")

	rec, res = env.do(http.MethodGet, "/api/v1/products/price-range", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pr map[string]int64
	decode(t, res.Data, &pr)
	assert.Equal(t, int64(150), pr["min_price"])
	assert.Equal(t, int64(500), pr["max_price"])
}

func TestCheckoutNotifiesEveryRecipient(t *testing.T) {
	env := newTestEnv(t, "1", "2")
	catID, subID := env.seedCatalog()
	a := env.seedProduct(catID, subID, "a", 100, 20)
	b := env.seedProduct(catID, subID, "b", 50, 0)

	rec, res := env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"name":  "Ali",
		"phone": "+998901234567",
		"order": []map[string]interface{}{
			{"product_id": a.ID, "count": 2},
			{"product_id": b.ID, "count": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order orderView
	decode(t, res.Data, &order)
	assert.Equal(t, int64(210), order.TotalPrice)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(160), order.Lines[0].LineTotal)
	assert.NotEmpty(t, order.Reference)

	env.bot.mu.Lock()
	assert.ElementsMatch(t, []string{"1", "2"}, env.bot.chats)
	env.bot.mu.Unlock()

	rec, res = env.do(http.MethodGet, "/api/v1/order-analytics?phone=%2B998901234567", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats map[string]interface{}
	decode(t, res.Data, &stats)
	assert.Equal(t, float64(1), stats["order_count"])
	assert.Equal(t, float64(210), stats["total_revenue"])

	rec, res = env.do(http.MethodGet, "/api/v1/product-orders?phone=%2B998901234567", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), res.Total)

	rec, _ = env.do(http.MethodGet, "/api/v1/product-orders/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))

	// deleting a product keeps the order line snapshot
	rec, _ = env.do(http.MethodDelete, "/api/v1/products/"+itoa(a.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var line domain.Order
	require.NoError(t, env.db.Where("order_user_id = ?", order.ID).Order("id ASC").First(&line).Error)
	assert.Nil(t, line.ProductID)
	assert.Equal(t, "Товар a", line.ProductTitle)
}

func TestCheckoutUnknownProductPersistsNothing(t *testing.T) {
	env := newTestEnv(t, "1")
	catID, subID := env.seedCatalog()
	a := env.seedProduct(catID, subID, "a", 100, 0)

	rec, res := env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"phone": "+998901234567",
		"order": []map[string]interface{}{
			{"product_id": a.ID, "count": 1},
			{"product_id": 9999, "count": 1},
			{"product_id": a.ID, "count": 3},
		},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", res.Error)
	assert.Equal(t, float64(9999), res.Details["product_id"])

	var users, lines int64
	env.db.Model(&domain.OrderUser{}).Count(&users)
	env.db.Model(&domain.Order{}).Count(&lines)
	assert.Zero(t, users)
	assert.Zero(t, lines)
	assert.Empty(t, env.bot.chats)

	rec, res = env.do(http.MethodGet, "/api/v1/order-analytics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ORDERS_NOT_FOUND", res.Error)
}

func TestCheckoutValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, res := env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"phone": "+998901234567",
		"order": []interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error)
	assert.Contains(t, res.Details, "order")

	rec, res = env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"order": []map[string]interface{}{{"product_id": 1, "count": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "phone")
	assert.Contains(t, res.Details, "order[0].count")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/product-orders", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, res = env.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", res.Error)
}

func TestNumericSlugLookup(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	first := env.seedProduct(catID, subID, "first", 100, 0)

	rec, res := env.do(http.MethodPost, "/api/v1/products", map[string]interface{}{
		"title":           map[string]string{"ru": "1"},
		"price":           50,
		"category_id":     catID,
		"sub_category_id": subID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var numeric productView
	decode(t, res.Data, &numeric)
	assert.Equal(t, "p-1", numeric.Slug)

	rec, res = env.do(http.MethodGet, "/api/v1/products/p-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got productView
	decode(t, res.Data, &got)
	assert.Equal(t, numeric.ID, got.ID)

	rec, res = env.do(http.MethodGet, "/api/v1/products/"+itoa(first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, res.Data, &got)
	assert.Equal(t, "first", got.Slug)

	// rows stored with an all-digit slug still resolve by slug
	legacy := env.seedProduct(catID, subID, itoa(first.ID), 70, 0)
	rec, res = env.do(http.MethodGet, "/api/v1/products/"+itoa(first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, res.Data, &got)
	assert.Equal(t, legacy.ID, got.ID)
}

func TestProductSlugTakenDuringSave(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()

	// another writer claims the slug between the uniqueness check and the insert
	inserts := 0
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:steal_slug", func(tx *gorm.DB) {
		if tx.Statement.Table != "product" {
			return
		}
		inserts++
		if inserts == 1 {
			tx.Session(&gorm.Session{NewDB: true}).Exec(
				`INSERT INTO product (title, price, sales, is_available, sub_category_id, category_id, slug, gender) VALUES (?, 1, 0, true, ?, ?, ?, ?)`,
				`{"ru":"x"}`, subID, catID, "race", domain.GenderUnisex)
		}
	}))

	rec, res := env.do(http.MethodPost, "/api/v1/products", map[string]interface{}{
		"title":           map[string]string{"ru": "Race"},
		"price":           10,
		"category_id":     catID,
		"sub_category_id": subID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created productView
	decode(t, res.Data, &created)
	assert.Equal(t, "race", created.Slug)
	assert.Equal(t, 2, inserts)
}

func TestCheckoutRejectsOversizedOrders(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	cheap := env.seedProduct(catID, subID, "cheap", 100000, 0)
	pricey := env.seedProduct(catID, subID, "pricey", math.MaxInt64/3*2, 0)

	rec, res := env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"phone": "+998901234567",
		"order": []map[string]interface{}{{"product_id": cheap.ID, "count": int64(math.MaxInt64/100000 + 1)}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", res.Error)
	assert.Contains(t, res.Details, "order[0].count")

	rec, res = env.do(http.MethodPost, "/api/v1/product-orders", map[string]interface{}{
		"phone": "+998901234567",
		"order": []map[string]interface{}{{"product_id": pricey.ID, "count": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", res.Error)
	assert.Contains(t, res.Details, "order")

	var orders int64
	require.NoError(t, env.db.Model(&domain.OrderUser{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestTrailingSlashRoutes(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	p := env.seedProduct(catID, subID, "cap", 100, 0)

	rec, res := env.do(http.MethodPost, "/api/v1/product-orders/", map[string]interface{}{
		"phone": "+998901234567",
		"order": []map[string]interface{}{{"product_id": p.ID, "count": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order orderView
	decode(t, res.Data, &order)
	assert.Equal(t, int64(200), order.TotalPrice)

	rec, res = env.do(http.MethodGet, "/api/v1/categories/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), res.Total)
}

func TestAboutContacts(t *testing.T) {
	env := newTestEnv(t)

	rec, res := env.do(http.MethodGet, "/api/v1/about/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{}", string(res.Data))

	rec, res = env.do(http.MethodPost, "/api/v1/about/contacts", map[string]interface{}{
		"phone_1": "12-34",
		"email":   "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "phone_1")
	assert.Contains(t, res.Details, "email")

	contact := map[string]interface{}{
		"address": map[string]string{"ru": "Ташкент", "uz": "Toshkent"},
		"phone_1": "+998901234567",
		"email":   "shop@example.com",
	}
	rec, _ = env.do(http.MethodPost, "/api/v1/about/contacts", contact)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, res = env.do(http.MethodPost, "/api/v1/about/contacts", contact)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "phone_1")

	rec, res = env.do(http.MethodGet, "/api/v1/about/contacts?lang=uz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ct contactView
	decode(t, res.Data, &ct)
	assert.Equal(t, "Toshkent", ct.Address)

	rec, res = env.do(http.MethodPost, "/api/v1/about/socials", map[string]interface{}{"instagram": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "instagram")
}

func TestMediaUploads(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()
	p := env.seedProduct(catID, subID, "cap", 10, 0)

	rec, res := env.upload("/api/v1/media?dir=banners", "file", "a.png", pngHeader, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stored map[string]string
	decode(t, res.Data, &stored)
	assert.True(t, strings.HasPrefix(stored["path"], "banners/"))
	assert.True(t, strings.HasPrefix(stored["url"], "/media/banners/"))

	rec, res = env.upload("/api/v1/media", "file", "a.txt", []byte("plain text"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", res.Error)

	for i := 0; i < domain.MaxProductImages; i++ {
		rec, _ = env.upload("/api/v1/product-images", "image", "p.png", pngHeader, map[string]string{"product_id": itoa(p.ID)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec, res = env.upload("/api/v1/product-images", "image", "p.png", pngHeader, map[string]string{"product_id": itoa(p.ID)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INTEGRITY_ERROR", res.Error)

	rec, res = env.do(http.MethodGet, "/api/v1/products/cap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail productView
	decode(t, res.Data, &detail)
	require.Len(t, detail.Images, domain.MaxProductImages)

	rec, _ = env.do(http.MethodDelete, "/api/v1/product-images/"+itoa(detail.Images[0].ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, res := env.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", res.Error)

	rec, res = env.do(http.MethodPost, "/api/v1/notifications/test", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOTIFY_NOT_CONFIGURED", res.Error)

	metrics.Incr(metrics.OrdersPlaced, 2)
	rec, res = env.do(http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]int64
	decode(t, res.Data, &snap)
	assert.Equal(t, int64(2), snap[metrics.OrdersPlaced])

	rec, res = env.do(http.MethodGet, "/api/v1/metrics?name=orders_placed&hours=500", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Details, "hours")
}

func TestNotificationSelfTest(t *testing.T) {
	env := newTestEnv(t, "1", "2")

	rec, res := env.do(http.MethodPost, "/api/v1/notifications/test", map[string]string{"text": "ping"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Sent    int             `json:"sent"`
		Failed  int             `json:"failed"`
		Results []notify.Result `json:"results"`
	}
	decode(t, res.Data, &out)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 2)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestTaxonomyAndBanners(t *testing.T) {
	env := newTestEnv(t)
	catID, subID := env.seedCatalog()

	rec, res := env.do(http.MethodPost, "/api/v1/brands", map[string]interface{}{
		"title": map[string]string{"ru": "Nike", "uz": "Nike"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var brand titledView
	decode(t, res.Data, &brand)
	assert.Equal(t, "Nike", brand.Title)

	rec, res = env.do(http.MethodPost, "/api/v1/brands", map[string]interface{}{
		"title": map[string]string{"ru": "Nike"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_BRAND", res.Error)

	rec, res = env.do(http.MethodPost, "/api/v1/stocks", map[string]interface{}{
		"title": map[string]string{"ru": "Распродажа", "uz": "Chegirma"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stock titledView
	decode(t, res.Data, &stock)

	rec, res = env.do(http.MethodPost, "/api/v1/index-categories", map[string]interface{}{
		"category_id": 9999,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error)
	assert.Contains(t, res.Details, "category_id")

	rec, _ = env.do(http.MethodPost, "/api/v1/banners", map[string]interface{}{"is_advertisement": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, res = env.do(http.MethodPost, "/api/v1/banners", map[string]interface{}{
		"web_image":        "banners/a.png",
		"is_advertisement": true,
		"category_id":      catID,
		"stock_id":         stock.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var banner bannerView
	decode(t, res.Data, &banner)
	assert.Equal(t, "/media/banners/a.png", banner.WebImage)

	_, res = env.do(http.MethodGet, "/api/v1/banners?is_advertisement=true", nil)
	assert.Equal(t, int64(1), res.Total)
	_, res = env.do(http.MethodGet, "/api/v1/banners?is_advertisement=false", nil)
	assert.Equal(t, int64(0), res.Total)

	p := env.seedProduct(catID, subID, "promo", 100, 10)
	require.NoError(t, env.db.Model(&p).Update("stock_id", stock.ID).Error)

	rec, _ = env.do(http.MethodDelete, "/api/v1/stocks/"+itoa(stock.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reloaded domain.Product
	require.NoError(t, env.db.First(&reloaded, p.ID).Error)
	assert.Nil(t, reloaded.StockID)
	var b domain.Banner
	require.NoError(t, env.db.First(&b, banner.ID).Error)
	assert.Nil(t, b.StockID)

	rec, _ = env.do(http.MethodPost, "/api/v1/about/services", map[string]interface{}{
		"title":     map[string]string{"ru": "Доставка", "uz": "Yetkazish"},
		"sub_title": map[string]string{"ru": "За один день"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	_, res = env.do(http.MethodGet, "/api/v1/about/services", nil)
	assert.Equal(t, int64(1), res.Total)
}

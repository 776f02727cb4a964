package shopapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/report"
	"github.com/bazaarlab/storefront/internal/webserver"
)

type orderLineView struct {
	ID           int64  `json:"id"`
	ProductID    *int64 `json:"product_id"`
	ProductTitle string `json:"product_title"`
	Count        int    `json:"count"`
	UnitPrice    int64  `json:"unit_price"`
	LineTotal    int64  `json:"line_total"`
}

type orderView struct {
	ID         int64           `json:"id"`
	Reference  string          `json:"reference"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	TotalPrice int64           `json:"total_price"`
	Lines      []orderLineView `json:"order"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newOrderView(o *domain.OrderUser) orderView {
	v := orderView{
		ID:         o.ID,
		Reference:  o.Reference,
		Name:       o.Name,
		Phone:      o.Phone,
		Address:    o.Address,
		TotalPrice: o.TotalPrice,
		Lines:      make([]orderLineView, 0, len(o.Lines)),
		CreatedAt:  o.CreatedAt,
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, orderLineView{
			ID:           l.ID,
			ProductID:    l.ProductID,
			ProductTitle: l.ProductTitle,
			Count:        l.Count,
			UnitPrice:    l.UnitPrice,
			LineTotal:    l.LineTotal(),
		})
	}
	return v
}

func registerOrderRoutes() {
	webserver.ApiPOST("/product-orders", createOrder)
	webserver.ApiGET("/product-orders", listOrders)
	webserver.ApiGET("/product-orders/export", exportOrders)
	webserver.ApiGET("/product-orders/:id", getOrder)
	webserver.ApiGET("/order-analytics", getOrderAnalytics)
}

// createOrder is the guest checkout. Notification problems never change the
// response; only validation and persistence do.
func createOrder(c echo.Context) error {
	var req checkout.Request
	if valid, resp := bindAndValidate(c, &req, "order"); !valid {
		return resp
	}
	req.Phone = strings.TrimSpace(req.Phone)

	order, err := getDeps(c).Checkout.Submit(c.Request().Context(), &req, requestLocale(c))
	if err != nil {
		var pnf *checkout.ProductNotFoundError
		if errors.As(err, &pnf) {
			return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", pnf.Error(),
				map[string]int64{"product_id": pnf.ProductID})
		}
		if errors.Is(err, checkout.ErrInvalidCount) || errors.Is(err, checkout.ErrTotalTooLarge) {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
				map[string]string{"order": err.Error()})
		}
		zap.L().Error("checkout failed", zap.String("namespace", "checkout"), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order", err.Error())
	}
	return created(c, newOrderView(order))
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.OrderUser{})
	if phone := strings.TrimSpace(c.QueryParam("phone")); phone != "" {
		db = db.Where("phone = ?", phone)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var rows []domain.OrderUser
	if err := db.Preload("Lines").Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	items := make([]orderView, 0, len(rows))
	for i := range rows {
		items = append(items, newOrderView(&rows[i]))
	}
	return paged(c, items, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var o domain.OrderUser
	if err := GetDB(c).Preload("Lines").Where("id = ?", id).First(&o).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query order", err.Error())
	}
	return ok(c, newOrderView(&o))
}

// exportOrders streams order lines as csv (default) or xlsx.
func exportOrders(c echo.Context) error {
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = report.FormatCSV
	}
	if format != report.FormatCSV && format != report.FormatXLSX {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"format": "Must be one of: csv xlsx."})
	}
	filter := report.ExportFilter{Phone: strings.TrimSpace(c.QueryParam("phone"))}
	var err error
	if filter.Since, err = report.ParseSince(c.QueryParam("since")); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"since": err.Error()})
	}
	if filter.Until, err = report.ParseSince(c.QueryParam("until")); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"until": err.Error()})
	}

	rows, err := report.LoadExportRows(c.Request().Context(), GetDB(c), filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var buf bytes.Buffer
	if err := report.WriteExport(&buf, format, rows); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to build export", err.Error())
	}
	filename := fmt.Sprintf("orders-%s.%s", time.Now().Format("20060102-150405"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, report.ContentType(format), buf.Bytes())
}

// getOrderAnalytics summarizes orders for ?phone= placed after ?since=.
func getOrderAnalytics(c echo.Context) error {
	since, err := report.ParseSince(c.QueryParam("since"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"since": err.Error()})
	}
	res, err := report.Analytics(c.Request().Context(), GetDB(c), c.QueryParam("phone"), since)
	if errors.Is(err, report.ErrNoOrders) {
		return fail(c, http.StatusNotFound, "ORDERS_NOT_FOUND", "No orders found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return ok(c, res)
}

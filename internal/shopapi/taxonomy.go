package shopapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

// Brands and stocks share one shape: a localized title and nothing else.

func registerBrandRoutes() {
	webserver.ApiGET("/brands", listBrands)
	webserver.ApiGET("/brands/:id", getBrand)
	webserver.ApiPOST("/brands", createBrand)
	webserver.ApiPUT("/brands/:id", updateBrand)
	webserver.ApiDELETE("/brands/:id", deleteBrand)
}

func registerStockRoutes() {
	webserver.ApiGET("/stocks", listStocks)
	webserver.ApiGET("/stocks/:id", getStock)
	webserver.ApiPOST("/stocks", createStock)
	webserver.ApiPUT("/stocks/:id", updateStock)
	webserver.ApiDELETE("/stocks/:id", deleteStock)
}

func registerIndexCategoryRoutes() {
	webserver.ApiGET("/index-categories", listIndexCategories)
	webserver.ApiGET("/index-categories/:id", getIndexCategory)
	webserver.ApiPOST("/index-categories", createIndexCategory)
	webserver.ApiPUT("/index-categories/:id", updateIndexCategory)
	webserver.ApiDELETE("/index-categories/:id", deleteIndexCategory)
}

type titlePayload struct {
	Title domain.Localized `json:"title" validate:"required"`
}

func checkTitlePayload(c echo.Context, payload *titlePayload, table, dupCode string, id int64) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, true)
	if valid, resp := reportFieldErrors(c, errs); !valid {
		return false, resp
	}
	taken, err := titleTaken(c, table, payload.Title, id)
	if err != nil {
		return false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query "+table, err.Error())
	}
	if taken {
		return false, fail(c, http.StatusBadRequest, dupCode, "Title already exists", nil)
	}
	return true, nil
}

func listBrands(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Brand{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brands", err.Error())
	}
	var rows []domain.Brand
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brands", err.Error())
	}
	items := make([]titledView, 0, len(rows))
	for _, b := range rows {
		items = append(items, newTitledView(c, b.ID, b.Title, false))
	}
	return paged(c, items, total, page, pageSize)
}

func getBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}
	var b domain.Brand
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brand", err.Error())
	}
	return ok(c, newTitledView(c, b.ID, b.Title, true))
}

func createBrand(c echo.Context) error {
	var payload titlePayload
	if valid, resp := bindAndValidate(c, &payload, "brand"); !valid {
		return resp
	}
	if valid, resp := checkTitlePayload(c, &payload, "brand", "DUPLICATE_BRAND", 0); !valid {
		return resp
	}
	b := domain.Brand{Title: payload.Title}
	if err := GetDB(c).Create(&b).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create brand", err.Error())
	}
	return created(c, newTitledView(c, b.ID, b.Title, true))
}

func updateBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}
	var b domain.Brand
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brand", err.Error())
	}
	var payload titlePayload
	if valid, resp := bindAndValidate(c, &payload, "brand"); !valid {
		return resp
	}
	if valid, resp := checkTitlePayload(c, &payload, "brand", "DUPLICATE_BRAND", id); !valid {
		return resp
	}
	b.Title = payload.Title
	if err := GetDB(c).Save(&b).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update brand", err.Error())
	}
	return ok(c, newTitledView(c, b.ID, b.Title, true))
}

func deleteBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Brand{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete brand", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	}
	clearRefs(c, id, "brand_id", &domain.Product{})
	return ok(c, map[string]interface{}{"id": id})
}

func listStocks(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Stock{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query stocks", err.Error())
	}
	var rows []domain.Stock
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query stocks", err.Error())
	}
	items := make([]titledView, 0, len(rows))
	for _, s := range rows {
		items = append(items, newTitledView(c, s.ID, s.Title, false))
	}
	return paged(c, items, total, page, pageSize)
}

func getStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid stock ID", nil)
	}
	var s domain.Stock
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "STOCK_NOT_FOUND", "Stock not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query stock", err.Error())
	}
	return ok(c, newTitledView(c, s.ID, s.Title, true))
}

func createStock(c echo.Context) error {
	var payload titlePayload
	if valid, resp := bindAndValidate(c, &payload, "stock"); !valid {
		return resp
	}
	if valid, resp := checkTitlePayload(c, &payload, "stock", "DUPLICATE_STOCK", 0); !valid {
		return resp
	}
	s := domain.Stock{Title: payload.Title}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create stock", err.Error())
	}
	return created(c, newTitledView(c, s.ID, s.Title, true))
}

func updateStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid stock ID", nil)
	}
	var s domain.Stock
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "STOCK_NOT_FOUND", "Stock not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query stock", err.Error())
	}
	var payload titlePayload
	if valid, resp := bindAndValidate(c, &payload, "stock"); !valid {
		return resp
	}
	if valid, resp := checkTitlePayload(c, &payload, "stock", "DUPLICATE_STOCK", id); !valid {
		return resp
	}
	s.Title = payload.Title
	if err := GetDB(c).Save(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update stock", err.Error())
	}
	return ok(c, newTitledView(c, s.ID, s.Title, true))
}

func deleteStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid stock ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Stock{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete stock", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "STOCK_NOT_FOUND", "Stock not found", nil)
	}
	clearRefs(c, id, "stock_id", &domain.Product{}, &domain.IndexCategory{}, &domain.Banner{})
	return ok(c, map[string]interface{}{"id": id})
}

type indexCategoryPayload struct {
	Title         domain.Localized `json:"title"`
	Image         string           `json:"image" validate:"max=512"`
	CategoryID    *int64           `json:"category_id"`
	SubCategoryID *int64           `json:"sub_category_id"`
	StockID       *int64           `json:"stock_id"`
}

// checkRef records a field error when an optional reference points nowhere.
func checkRef(c echo.Context, errs catalog.FieldErrors, field string, model interface{}, id *int64) {
	if id != nil && !exists(c, model, *id) {
		errs[field] = "Referenced object does not exist."
	}
}

func checkIndexCategoryPayload(c echo.Context, payload *indexCategoryPayload) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, false)
	payload.Image = strings.TrimSpace(payload.Image)
	checkRef(c, errs, "category_id", &domain.Category{}, payload.CategoryID)
	checkRef(c, errs, "sub_category_id", &domain.SubCategory{}, payload.SubCategoryID)
	checkRef(c, errs, "stock_id", &domain.Stock{}, payload.StockID)
	return reportFieldErrors(c, errs)
}

func listIndexCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.IndexCategory{})
	if cid, ok := optionalID(c, "category_id"); ok {
		db = db.Where("category_id = ?", cid)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query index categories", err.Error())
	}
	var rows []domain.IndexCategory
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query index categories", err.Error())
	}
	items := make([]indexCategoryView, 0, len(rows))
	for i := range rows {
		items = append(items, newIndexCategoryView(c, &rows[i], false))
	}
	return paged(c, items, total, page, pageSize)
}

func getIndexCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid index category ID", nil)
	}
	var ic domain.IndexCategory
	if err := GetDB(c).Where("id = ?", id).First(&ic).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "INDEX_CATEGORY_NOT_FOUND", "Index category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query index category", err.Error())
	}
	return ok(c, newIndexCategoryView(c, &ic, true))
}

func createIndexCategory(c echo.Context) error {
	var payload indexCategoryPayload
	if valid, resp := bindAndValidate(c, &payload, "index category"); !valid {
		return resp
	}
	if valid, resp := checkIndexCategoryPayload(c, &payload); !valid {
		return resp
	}
	ic := domain.IndexCategory{
		Title:         payload.Title,
		Image:         payload.Image,
		CategoryID:    payload.CategoryID,
		SubCategoryID: payload.SubCategoryID,
		StockID:       payload.StockID,
	}
	if err := GetDB(c).Create(&ic).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create index category", err.Error())
	}
	return created(c, newIndexCategoryView(c, &ic, true))
}

func updateIndexCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid index category ID", nil)
	}
	var ic domain.IndexCategory
	if err := GetDB(c).Where("id = ?", id).First(&ic).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "INDEX_CATEGORY_NOT_FOUND", "Index category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query index category", err.Error())
	}
	var payload indexCategoryPayload
	if valid, resp := bindAndValidate(c, &payload, "index category"); !valid {
		return resp
	}
	if valid, resp := checkIndexCategoryPayload(c, &payload); !valid {
		return resp
	}
	ic.Title = payload.Title
	ic.Image = payload.Image
	ic.CategoryID = payload.CategoryID
	ic.SubCategoryID = payload.SubCategoryID
	ic.StockID = payload.StockID
	if err := GetDB(c).Save(&ic).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update index category", err.Error())
	}
	return ok(c, newIndexCategoryView(c, &ic, true))
}

func deleteIndexCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid index category ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.IndexCategory{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete index category", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "INDEX_CATEGORY_NOT_FOUND", "Index category not found", nil)
	}
	clearRefs(c, id, "index_category_id", &domain.Product{})
	return ok(c, map[string]interface{}{"id": id})
}

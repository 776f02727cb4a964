package shopapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

func registerSubCategoryRoutes() {
	webserver.ApiGET("/sub-categories", listSubCategories)
	webserver.ApiGET("/sub-categories/:id", getSubCategory)
	webserver.ApiPOST("/sub-categories", createSubCategory)
	webserver.ApiPUT("/sub-categories/:id", updateSubCategory)
	webserver.ApiDELETE("/sub-categories/:id", deleteSubCategory)
}

type categoryPayload struct {
	Title   domain.Localized `json:"title" validate:"required"`
	IsIndex bool             `json:"is_index"`
	Image   string           `json:"image" validate:"max=512"`
}

func buildCategoryView(c echo.Context, cat *domain.Category, full bool) (categoryView, error) {
	repo := catalog.NewProductRepository(GetDB(c), getDeps(c).I18n.Locales())
	pr, err := repo.PriceRange(c.Request().Context(), cat.ID)
	if err != nil {
		return categoryView{}, err
	}
	var subs int64
	if err := GetDB(c).Model(&domain.SubCategory{}).Where("category_id = ?", cat.ID).Count(&subs).Error; err != nil {
		return categoryView{}, err
	}
	return categoryView{
		ID:               cat.ID,
		Title:            tr(c, cat.Title),
		TitleI18n:        i18nIf(full, cat.Title),
		IsIndex:          cat.IsIndex,
		Image:            mediaURL(c, cat.Image),
		SubCategoryCount: subs,
		PriceRange:       pr,
	}, nil
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Category{})
	if v := strings.TrimSpace(c.QueryParam("is_index")); v != "" {
		db = db.Where("is_index = ?", cast.ToBool(v))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	var rows []domain.Category
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	items := make([]categoryView, 0, len(rows))
	for i := range rows {
		v, err := buildCategoryView(c, &rows[i], false)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
		}
		items = append(items, v)
	}
	return paged(c, items, total, page, pageSize)
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	v, err := buildCategoryView(c, &cat, true)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return ok(c, v)
}

func checkCategoryPayload(c echo.Context, payload *categoryPayload, id int64) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, true)
	if len(errs) > 0 {
		return false, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", errs)
	}
	taken, err := titleTaken(c, "category", payload.Title, id)
	if err != nil {
		return false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	if taken {
		return false, fail(c, http.StatusBadRequest, "DUPLICATE_CATEGORY", "Category with this title already exists", nil)
	}
	return true, nil
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if valid, resp := bindAndValidate(c, &payload, "category"); !valid {
		return resp
	}
	if valid, resp := checkCategoryPayload(c, &payload, 0); !valid {
		return resp
	}
	cat := domain.Category{
		Title:   payload.Title,
		IsIndex: payload.IsIndex,
		Image:   strings.TrimSpace(payload.Image),
	}
	if err := GetDB(c).Create(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	v, err := buildCategoryView(c, &cat, true)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return created(c, v)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	var payload categoryPayload
	if valid, resp := bindAndValidate(c, &payload, "category"); !valid {
		return resp
	}
	if valid, resp := checkCategoryPayload(c, &payload, id); !valid {
		return resp
	}
	cat.Title = payload.Title
	cat.IsIndex = payload.IsIndex
	cat.Image = strings.TrimSpace(payload.Image)
	if err := GetDB(c).Save(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}
	v, err := buildCategoryView(c, &cat, true)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return ok(c, v)
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var products, subs int64
	GetDB(c).Model(&domain.Product{}).Where("category_id = ?", id).Count(&products)
	GetDB(c).Model(&domain.SubCategory{}).Where("category_id = ?", id).Count(&subs)
	if products > 0 || subs > 0 {
		return fail(c, http.StatusBadRequest, "INTEGRITY_ERROR", "Category still has products or sub-categories",
			map[string]int64{"products": products, "sub_categories": subs})
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Category{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	}
	clearRefs(c, id, "category_id", &domain.IndexCategory{}, &domain.Banner{})
	return ok(c, map[string]interface{}{"id": id})
}

// clearRefs nulls an optional foreign key column in every given table.
func clearRefs(c echo.Context, id int64, column string, models ...interface{}) {
	for _, m := range models {
		GetDB(c).Model(m).Where(column+" = ?", id).Update(column, nil)
	}
}

type subCategoryPayload struct {
	Title      domain.Localized `json:"title" validate:"required"`
	CategoryID int64            `json:"category_id" validate:"required,min=1"`
}

func newSubCategoryView(c echo.Context, s *domain.SubCategory, full bool) titledView {
	v := newTitledView(c, s.ID, s.Title, full)
	v.CategoryID = s.CategoryID
	return v
}

func listSubCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SubCategory{})
	if cid, ok := optionalID(c, "category_id"); ok {
		db = db.Where("category_id = ?", cid)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sub-categories", err.Error())
	}
	var rows []domain.SubCategory
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sub-categories", err.Error())
	}
	items := make([]titledView, 0, len(rows))
	for i := range rows {
		items = append(items, newSubCategoryView(c, &rows[i], false))
	}
	return paged(c, items, total, page, pageSize)
}

func getSubCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sub-category ID", nil)
	}
	var s domain.SubCategory
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SUB_CATEGORY_NOT_FOUND", "Sub-category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sub-category", err.Error())
	}
	return ok(c, newSubCategoryView(c, &s, true))
}

func checkSubCategoryPayload(c echo.Context, payload *subCategoryPayload) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, true)
	if !exists(c, &domain.Category{}, payload.CategoryID) {
		errs["category_id"] = "Category does not exist."
	}
	return reportFieldErrors(c, errs)
}

func createSubCategory(c echo.Context) error {
	var payload subCategoryPayload
	if valid, resp := bindAndValidate(c, &payload, "sub-category"); !valid {
		return resp
	}
	if valid, resp := checkSubCategoryPayload(c, &payload); !valid {
		return resp
	}
	s := domain.SubCategory{Title: payload.Title, CategoryID: payload.CategoryID}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create sub-category", err.Error())
	}
	return created(c, newSubCategoryView(c, &s, true))
}

func updateSubCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sub-category ID", nil)
	}
	var s domain.SubCategory
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SUB_CATEGORY_NOT_FOUND", "Sub-category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sub-category", err.Error())
	}
	var payload subCategoryPayload
	if valid, resp := bindAndValidate(c, &payload, "sub-category"); !valid {
		return resp
	}
	if valid, resp := checkSubCategoryPayload(c, &payload); !valid {
		return resp
	}
	s.Title = payload.Title
	s.CategoryID = payload.CategoryID
	if err := GetDB(c).Save(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update sub-category", err.Error())
	}
	return ok(c, newSubCategoryView(c, &s, true))
}

func deleteSubCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sub-category ID", nil)
	}
	var products int64
	GetDB(c).Model(&domain.Product{}).Where("sub_category_id = ?", id).Count(&products)
	if products > 0 {
		return fail(c, http.StatusBadRequest, "INTEGRITY_ERROR", "Sub-category still has products",
			map[string]int64{"products": products})
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.SubCategory{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete sub-category", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SUB_CATEGORY_NOT_FOUND", "Sub-category not found", nil)
	}
	clearRefs(c, id, "sub_category_id", &domain.IndexCategory{}, &domain.Banner{})
	return ok(c, map[string]interface{}{"id": id})
}

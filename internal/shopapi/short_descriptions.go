package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

type shortDescriptionPayload struct {
	Key       domain.Localized `json:"key" validate:"required"`
	Value     domain.Localized `json:"value" validate:"required"`
	ProductID int64            `json:"product_id" validate:"required,min=1"`
}

func registerShortDescriptionRoutes() {
	webserver.ApiGET("/short-descriptions", listShortDescriptions)
	webserver.ApiPOST("/short-descriptions", createShortDescription)
	webserver.ApiPUT("/short-descriptions/:id", updateShortDescription)
	webserver.ApiDELETE("/short-descriptions/:id", deleteShortDescription)
}

func listShortDescriptions(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.ShortDescription{})
	if pid, ok := optionalID(c, "product_id"); ok {
		db = db.Where("product_id = ?", pid)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query short descriptions", err.Error())
	}
	var rows []domain.ShortDescription
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query short descriptions", err.Error())
	}
	items := make([]shortDescriptionView, 0, len(rows))
	for i := range rows {
		items = append(items, newShortDescriptionView(c, &rows[i], false))
	}
	return paged(c, items, total, page, pageSize)
}

func checkShortDescriptionPayload(c echo.Context, payload *shortDescriptionPayload) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Key = checkLocalized(c, errs, "key", payload.Key, true)
	payload.Value = checkLocalized(c, errs, "value", payload.Value, true)
	if !exists(c, &domain.Product{}, payload.ProductID) {
		errs["product_id"] = "Product does not exist."
	}
	return reportFieldErrors(c, errs)
}

func createShortDescription(c echo.Context) error {
	var payload shortDescriptionPayload
	if valid, resp := bindAndValidate(c, &payload, "short description"); !valid {
		return resp
	}
	if valid, resp := checkShortDescriptionPayload(c, &payload); !valid {
		return resp
	}
	sd := domain.ShortDescription{Key: payload.Key, Value: payload.Value, ProductID: payload.ProductID}
	if err := GetDB(c).Create(&sd).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create short description", err.Error())
	}
	return created(c, newShortDescriptionView(c, &sd, true))
}

func updateShortDescription(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid short description ID", nil)
	}
	var sd domain.ShortDescription
	if err := GetDB(c).Where("id = ?", id).First(&sd).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SHORT_DESCRIPTION_NOT_FOUND", "Short description not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query short description", err.Error())
	}
	var payload shortDescriptionPayload
	if valid, resp := bindAndValidate(c, &payload, "short description"); !valid {
		return resp
	}
	if valid, resp := checkShortDescriptionPayload(c, &payload); !valid {
		return resp
	}
	sd.Key = payload.Key
	sd.Value = payload.Value
	sd.ProductID = payload.ProductID
	if err := GetDB(c).Save(&sd).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update short description", err.Error())
	}
	return ok(c, newShortDescriptionView(c, &sd, true))
}

func deleteShortDescription(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid short description ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.ShortDescription{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete short description", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SHORT_DESCRIPTION_NOT_FOUND", "Short description not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

package shopapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

type ratingPayload struct {
	ProductID int64  `json:"product_id" validate:"required,min=1"`
	Star      int    `json:"star" validate:"required,min=1,max=5"`
	Name      string `json:"name" validate:"max=255"`
	Comment   string `json:"comment" validate:"max=2000"`
}

func registerRatingRoutes() {
	webserver.ApiGET("/product-ratings", listRatings)
	webserver.ApiPOST("/product-ratings", createRating)
	webserver.ApiDELETE("/product-ratings/:id", deleteRating)
}

// listRatings highest stars first
func listRatings(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.ProductRating{})
	if pid, ok := optionalID(c, "product_id"); ok {
		db = db.Where("product_id = ?", pid)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query ratings", err.Error())
	}
	var rows []domain.ProductRating
	if err := db.Order("star DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query ratings", err.Error())
	}
	items := make([]ratingView, 0, len(rows))
	for i := range rows {
		items = append(items, newRatingView(&rows[i]))
	}
	return paged(c, items, total, page, pageSize)
}

func createRating(c echo.Context) error {
	var payload ratingPayload
	if valid, resp := bindAndValidate(c, &payload, "rating"); !valid {
		return resp
	}
	if !exists(c, &domain.Product{}, payload.ProductID) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"product_id": "Product does not exist."})
	}
	r := domain.ProductRating{
		ProductID: payload.ProductID,
		Star:      payload.Star,
		Name:      strings.TrimSpace(payload.Name),
		Comment:   strings.TrimSpace(payload.Comment),
	}
	if err := GetDB(c).Create(&r).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create rating", err.Error())
	}
	return created(c, newRatingView(&r))
}

func deleteRating(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid rating ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.ProductRating{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete rating", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "RATING_NOT_FOUND", "Rating not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

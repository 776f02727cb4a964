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

type bannerPayload struct {
	WebImage        string `json:"web_image" validate:"required,max=512"`
	RspImage        string `json:"rsp_image" validate:"max=512"`
	IsAdvertisement bool   `json:"is_advertisement"`
	CategoryID      *int64 `json:"category_id"`
	SubCategoryID   *int64 `json:"sub_category_id"`
	StockID         *int64 `json:"stock_id"`
	ProductID       *int64 `json:"product_id"`
}

func registerBannerRoutes() {
	webserver.ApiGET("/banners", listBanners)
	webserver.ApiGET("/banners/:id", getBanner)
	webserver.ApiPOST("/banners", createBanner)
	webserver.ApiPUT("/banners/:id", updateBanner)
	webserver.ApiDELETE("/banners/:id", deleteBanner)
}

func listBanners(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Banner{})
	if v := strings.TrimSpace(c.QueryParam("is_advertisement")); v != "" {
		db = db.Where("is_advertisement = ?", cast.ToBool(v))
	}
	if cid, ok := optionalID(c, "category_id"); ok {
		db = db.Where("category_id = ?", cid)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banners", err.Error())
	}
	var rows []domain.Banner
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banners", err.Error())
	}
	items := make([]bannerView, 0, len(rows))
	for i := range rows {
		items = append(items, newBannerView(c, &rows[i]))
	}
	return paged(c, items, total, page, pageSize)
}

func getBanner(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid banner ID", nil)
	}
	var b domain.Banner
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BANNER_NOT_FOUND", "Banner not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banner", err.Error())
	}
	return ok(c, newBannerView(c, &b))
}

func checkBannerPayload(c echo.Context, payload *bannerPayload) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.WebImage = strings.TrimSpace(payload.WebImage)
	payload.RspImage = strings.TrimSpace(payload.RspImage)
	checkRef(c, errs, "category_id", &domain.Category{}, payload.CategoryID)
	checkRef(c, errs, "sub_category_id", &domain.SubCategory{}, payload.SubCategoryID)
	checkRef(c, errs, "stock_id", &domain.Stock{}, payload.StockID)
	checkRef(c, errs, "product_id", &domain.Product{}, payload.ProductID)
	return reportFieldErrors(c, errs)
}

func applyBannerPayload(b *domain.Banner, payload *bannerPayload) {
	b.WebImage = payload.WebImage
	b.RspImage = payload.RspImage
	b.IsAdvertisement = payload.IsAdvertisement
	b.CategoryID = payload.CategoryID
	b.SubCategoryID = payload.SubCategoryID
	b.StockID = payload.StockID
	b.ProductID = payload.ProductID
}

func createBanner(c echo.Context) error {
	var payload bannerPayload
	if valid, resp := bindAndValidate(c, &payload, "banner"); !valid {
		return resp
	}
	if valid, resp := checkBannerPayload(c, &payload); !valid {
		return resp
	}
	var b domain.Banner
	applyBannerPayload(&b, &payload)
	if err := GetDB(c).Create(&b).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create banner", err.Error())
	}
	return created(c, newBannerView(c, &b))
}

func updateBanner(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid banner ID", nil)
	}
	var b domain.Banner
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BANNER_NOT_FOUND", "Banner not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banner", err.Error())
	}
	var payload bannerPayload
	if valid, resp := bindAndValidate(c, &payload, "banner"); !valid {
		return resp
	}
	if valid, resp := checkBannerPayload(c, &payload); !valid {
		return resp
	}
	applyBannerPayload(&b, &payload)
	if err := GetDB(c).Save(&b).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update banner", err.Error())
	}
	return ok(c, newBannerView(c, &b))
}

func deleteBanner(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid banner ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Banner{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete banner", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "BANNER_NOT_FOUND", "Banner not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

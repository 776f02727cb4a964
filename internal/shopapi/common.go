package shopapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/i18n"
	"github.com/bazaarlab/storefront/internal/media"
	"github.com/bazaarlab/storefront/internal/notify"
	"github.com/bazaarlab/storefront/internal/webserver"
)

const depsKey = "shopapi.deps"

// Deps everything the handlers need, injected into each request context.
type Deps struct {
	DB         *gorm.DB
	Config     *config.AppConfig
	I18n       *i18n.Resolver
	Media      *media.Store
	Checkout   *checkout.Service
	Dispatcher *notify.Dispatcher
}

// Init registers every storefront route on the webserver created by
// webserver.Init.
func Init(deps *Deps) {
	webserver.ApiUse(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(depsKey, deps)
			return next(c)
		}
	})
	webserver.GET("/health", getHealth, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(depsKey, deps)
			return next(c)
		}
	})

	registerCategoryRoutes()
	registerSubCategoryRoutes()
	registerBrandRoutes()
	registerStockRoutes()
	registerIndexCategoryRoutes()
	registerProductRoutes()
	registerProductImageRoutes()
	registerShortDescriptionRoutes()
	registerRatingRoutes()
	registerBannerRoutes()
	registerAboutRoutes()
	registerOrderRoutes()
	registerMediaRoutes()
	registerNotificationRoutes()
	registerMetricsRoutes()
}

func getDeps(c echo.Context) *Deps {
	return c.Get(depsKey).(*Deps)
}

// GetDB returns the database bound to the request context.
func GetDB(c echo.Context) *gorm.DB {
	return getDeps(c).DB.WithContext(c.Request().Context())
}

// requestLocale resolves ?lang= then Accept-Language.
func requestLocale(c echo.Context) string {
	return getDeps(c).I18n.Resolve(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
}

// tr resolves a localized value for the current request.
func tr(c echo.Context, v domain.Localized) string {
	return v.Get(requestLocale(c), getDeps(c).I18n.Default())
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": data})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"error":   code,
		"message": message,
		"details": details,
	})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":     data,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// parsePagination reads page and perPage (pageSize is accepted too).
func parsePagination(c echo.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := catalog.DefaultPageSize
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	if ps, err := strconv.Atoi(raw); err == nil && ps > 0 && ps <= catalog.MaxPageSize {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// optionalID parses an integer query filter; ok is false when absent or malformed.
func optionalID(c echo.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// bindAndValidate decodes the body into payload and runs struct validation.
// On failure it has already written the error response; callers return it.
func bindAndValidate(c echo.Context, payload interface{}, what string) (bool, error) {
	if err := c.Bind(payload); err != nil {
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse "+what+" parameters", err.Error())
	}
	if err := c.Validate(payload); err != nil {
		return false, handleValidationError(c, err)
	}
	return true, nil
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	details := catalog.FieldErrors{}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		details[field] = validationMessage(fe)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind().String() == "slice" {
			return "Ensure this list has at least " + fe.Param() + " items."
		}
		if fe.Kind().String() == "string" {
			return "Ensure this field has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "max":
		if fe.Kind().String() == "slice" {
			return "Ensure this list has no more than " + fe.Param() + " items."
		}
		if fe.Kind().String() == "string" {
			return "Ensure this field has no more than " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	case "phone":
		return "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	}
	return "Invalid value (" + fe.Tag() + ")."
}

// reportFieldErrors writes a 400 when errs is not empty.
func reportFieldErrors(c echo.Context, errs catalog.FieldErrors) (bool, error) {
	if len(errs) == 0 {
		return true, nil
	}
	return false, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", errs)
}

// checkLocalized validates a translatable field; required fields must carry
// the default locale.
func checkLocalized(c echo.Context, errs catalog.FieldErrors, field string, v domain.Localized, required bool) domain.Localized {
	v = v.Trimmed()
	r := getDeps(c).I18n
	var err error
	if required {
		err = r.Check(v)
	} else {
		err = r.CheckOptional(v)
	}
	if err != nil {
		errs[field] = err.Error()
	}
	return v
}

// titleTaken reports whether another row of table already uses title in the
// default locale.
func titleTaken(c echo.Context, table string, title domain.Localized, excludeID int64) (bool, error) {
	db := GetDB(c)
	def := getDeps(c).I18n.Default()
	var count int64
	err := db.Table(table).
		Where(catalog.LocalizedExpr(db, table+".title", def)+" = ? AND id <> ?", title[def], excludeID).
		Count(&count).Error
	return count > 0, err
}

// exists reports whether a row with id is present in model's table.
func exists(c echo.Context, model interface{}, id int64) bool {
	var count int64
	GetDB(c).Model(model).Where("id = ?", id).Count(&count)
	return count > 0
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

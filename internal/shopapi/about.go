package shopapi

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

var phoneRe = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// validatePhone backs the "phone" validation tag.
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRe.MatchString(fl.Field().String())
}

type contactPayload struct {
	Address domain.Localized `json:"address"`
	Phone1  string           `json:"phone_1" validate:"omitempty,phone"`
	Phone2  string           `json:"phone_2" validate:"omitempty,phone"`
	Email   string           `json:"email" validate:"omitempty,email,max=255"`
	Map     string           `json:"map" validate:"max=400"`
}

type socialPayload struct {
	Instagram string `json:"instagram" validate:"omitempty,url,max=255"`
	Facebook  string `json:"facebook" validate:"omitempty,url,max=255"`
	Telegram  string `json:"telegram" validate:"omitempty,url,max=255"`
}

type servicePayload struct {
	Title    domain.Localized `json:"title" validate:"required"`
	SubTitle domain.Localized `json:"sub_title"`
	Image    string           `json:"image" validate:"max=512"`
}

func registerAboutRoutes() {
	if v, isValidator := webserver.Get().Echo().Validator.(*webserver.Validator); isValidator {
		_ = v.RegisterValidation("phone", validatePhone)
	}

	webserver.ApiGET("/about/contacts", getLatestContact)
	webserver.ApiGET("/about/contacts/:id", getContact)
	webserver.ApiPOST("/about/contacts", createContact)
	webserver.ApiPUT("/about/contacts/:id", updateContact)
	webserver.ApiDELETE("/about/contacts/:id", deleteContact)

	webserver.ApiGET("/about/socials", getLatestSocial)
	webserver.ApiGET("/about/socials/:id", getSocial)
	webserver.ApiPOST("/about/socials", createSocial)
	webserver.ApiPUT("/about/socials/:id", updateSocial)
	webserver.ApiDELETE("/about/socials/:id", deleteSocial)

	webserver.ApiGET("/about/services", listServices)
	webserver.ApiGET("/about/services/:id", getService)
	webserver.ApiPOST("/about/services", createService)
	webserver.ApiPUT("/about/services/:id", updateService)
	webserver.ApiDELETE("/about/services/:id", deleteService)
}

// columnTaken reports whether another row already stores value in column.
// Empty values never collide.
func columnTaken(c echo.Context, model interface{}, column, value string, excludeID int64) bool {
	if value == "" {
		return false
	}
	var count int64
	GetDB(c).Model(model).Where(column+" = ? AND id <> ?", value, excludeID).Count(&count)
	return count > 0
}

// Contacts. The storefront reads a single contact block: the newest row.

func getLatestContact(c echo.Context) error {
	var ct domain.Contact
	err := GetDB(c).Order("id DESC").First(&ct).Error
	if isNotFound(err) {
		return ok(c, map[string]interface{}{})
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contact", err.Error())
	}
	return ok(c, newContactView(c, &ct, false))
}

func getContact(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid contact ID", nil)
	}
	var ct domain.Contact
	if err := GetDB(c).Where("id = ?", id).First(&ct).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contact", err.Error())
	}
	return ok(c, newContactView(c, &ct, true))
}

func checkContactPayload(c echo.Context, payload *contactPayload, id int64) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Address = checkLocalized(c, errs, "address", payload.Address, false)
	payload.Email = strings.TrimSpace(payload.Email)
	for field, value := range map[string]string{"phone_1": payload.Phone1, "phone_2": payload.Phone2, "email": payload.Email} {
		if columnTaken(c, &domain.Contact{}, field, value, id) {
			errs[field] = "Contact with this " + field + " already exists."
		}
	}
	return reportFieldErrors(c, errs)
}

func applyContactPayload(ct *domain.Contact, payload *contactPayload) {
	ct.Address = payload.Address
	ct.Phone1 = payload.Phone1
	ct.Phone2 = payload.Phone2
	ct.Email = payload.Email
	ct.Map = strings.TrimSpace(payload.Map)
}

func createContact(c echo.Context) error {
	var payload contactPayload
	if valid, resp := bindAndValidate(c, &payload, "contact"); !valid {
		return resp
	}
	if valid, resp := checkContactPayload(c, &payload, 0); !valid {
		return resp
	}
	var ct domain.Contact
	applyContactPayload(&ct, &payload)
	if err := GetDB(c).Create(&ct).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create contact", err.Error())
	}
	return created(c, newContactView(c, &ct, true))
}

func updateContact(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid contact ID", nil)
	}
	var ct domain.Contact
	if err := GetDB(c).Where("id = ?", id).First(&ct).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contact", err.Error())
	}
	var payload contactPayload
	if valid, resp := bindAndValidate(c, &payload, "contact"); !valid {
		return resp
	}
	if valid, resp := checkContactPayload(c, &payload, id); !valid {
		return resp
	}
	applyContactPayload(&ct, &payload)
	if err := GetDB(c).Save(&ct).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update contact", err.Error())
	}
	return ok(c, newContactView(c, &ct, true))
}

func deleteContact(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid contact ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Contact{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete contact", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

// Socials

func getLatestSocial(c echo.Context) error {
	var s domain.Social
	err := GetDB(c).Order("id DESC").First(&s).Error
	if isNotFound(err) {
		return ok(c, map[string]interface{}{})
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query social links", err.Error())
	}
	return ok(c, s)
}

func getSocial(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid social ID", nil)
	}
	var s domain.Social
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SOCIAL_NOT_FOUND", "Social links not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query social links", err.Error())
	}
	return ok(c, s)
}

func checkSocialPayload(c echo.Context, payload *socialPayload, id int64) (bool, error) {
	errs := catalog.FieldErrors{}
	for field, value := range map[string]string{"instagram": payload.Instagram, "facebook": payload.Facebook, "telegram": payload.Telegram} {
		if columnTaken(c, &domain.Social{}, field, value, id) {
			errs[field] = "Social with this " + field + " already exists."
		}
	}
	return reportFieldErrors(c, errs)
}

func createSocial(c echo.Context) error {
	var payload socialPayload
	if valid, resp := bindAndValidate(c, &payload, "social"); !valid {
		return resp
	}
	if valid, resp := checkSocialPayload(c, &payload, 0); !valid {
		return resp
	}
	s := domain.Social{Instagram: payload.Instagram, Facebook: payload.Facebook, Telegram: payload.Telegram}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create social links", err.Error())
	}
	return created(c, s)
}

func updateSocial(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid social ID", nil)
	}
	var s domain.Social
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SOCIAL_NOT_FOUND", "Social links not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query social links", err.Error())
	}
	var payload socialPayload
	if valid, resp := bindAndValidate(c, &payload, "social"); !valid {
		return resp
	}
	if valid, resp := checkSocialPayload(c, &payload, id); !valid {
		return resp
	}
	s.Instagram = payload.Instagram
	s.Facebook = payload.Facebook
	s.Telegram = payload.Telegram
	if err := GetDB(c).Save(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update social links", err.Error())
	}
	return ok(c, s)
}

func deleteSocial(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid social ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Social{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete social links", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SOCIAL_NOT_FOUND", "Social links not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

// Services

func listServices(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Service{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}
	var rows []domain.Service
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}
	items := make([]serviceView, 0, len(rows))
	for i := range rows {
		items = append(items, newServiceView(c, &rows[i], false))
	}
	return paged(c, items, total, page, pageSize)
}

func getService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query service", err.Error())
	}
	return ok(c, newServiceView(c, &s, true))
}

func checkServicePayload(c echo.Context, payload *servicePayload) (bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, true)
	payload.SubTitle = checkLocalized(c, errs, "sub_title", payload.SubTitle, false)
	payload.Image = strings.TrimSpace(payload.Image)
	return reportFieldErrors(c, errs)
}

func createService(c echo.Context) error {
	var payload servicePayload
	if valid, resp := bindAndValidate(c, &payload, "service"); !valid {
		return resp
	}
	if valid, resp := checkServicePayload(c, &payload); !valid {
		return resp
	}
	s := domain.Service{Title: payload.Title, SubTitle: payload.SubTitle, Image: payload.Image}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service", err.Error())
	}
	return created(c, newServiceView(c, &s, true))
}

func updateService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query service", err.Error())
	}
	var payload servicePayload
	if valid, resp := bindAndValidate(c, &payload, "service"); !valid {
		return resp
	}
	if valid, resp := checkServicePayload(c, &payload); !valid {
		return resp
	}
	s.Title = payload.Title
	s.SubTitle = payload.SubTitle
	s.Image = payload.Image
	if err := GetDB(c).Save(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update service", err.Error())
	}
	return ok(c, newServiceView(c, &s, true))
}

func deleteService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Service{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete service", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

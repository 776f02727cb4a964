package shopapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/media"
	"github.com/bazaarlab/storefront/internal/webserver"
)

// allowed target directories for POST /media
var mediaDirs = map[string]bool{
	"banners":    true,
	"categories": true,
	"index":      true,
	"services":   true,
	"products":   true,
}

func registerMediaRoutes() {
	webserver.ApiPOST("/media", uploadMedia)
}

func registerProductImageRoutes() {
	webserver.ApiPOST("/product-images", uploadProductImage)
	webserver.ApiDELETE("/product-images/:id", deleteProductImage)
}

// storeUpload saves the multipart field as an image under dir. On failure the
// error response is already written.
func storeUpload(c echo.Context, field, dir string) (string, bool, error) {
	store := getDeps(c).Media
	if store == nil {
		return "", false, fail(c, http.StatusServiceUnavailable, "MEDIA_DISABLED", "Media storage is not configured", nil)
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return "", false, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{field: "No file was submitted."})
	}
	if fh.Size > store.MaxSize() {
		return "", false, fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", media.ErrTooLarge.Error(), nil)
	}
	src, err := fh.Open()
	if err != nil {
		return "", false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
	}
	defer src.Close()

	rel, err := store.Save(src, dir)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "", false, fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, media.ErrUnsupportedType):
		return "", false, fail(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error(), nil)
	case errors.Is(err, media.ErrEmpty):
		return "", false, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{field: err.Error()})
	case err != nil:
		zap.L().Error("store upload", zap.String("namespace", "media"), zap.Error(err))
		return "", false, fail(c, http.StatusInternalServerError, "MEDIA_ERROR", "Failed to store upload", err.Error())
	}
	return rel, true, nil
}

// uploadMedia stores a free standing image and returns the path to put into
// banner, category or service payloads.
func uploadMedia(c echo.Context) error {
	dir := strings.ToLower(strings.TrimSpace(c.QueryParam("dir")))
	if dir == "" {
		dir = "uploads"
	} else if !mediaDirs[dir] {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			map[string]string{"dir": "Unknown media directory."})
	}
	rel, stored, resp := storeUpload(c, "file", dir)
	if !stored {
		return resp
	}
	return created(c, map[string]string{"path": rel, "url": mediaURL(c, rel)})
}

// uploadProductImage stores an image and optionally links it to product_id.
func uploadProductImage(c echo.Context) error {
	var product *domain.Product
	if raw := strings.TrimSpace(c.FormValue("product_id")); raw != "" {
		pid, perr := strconv.ParseInt(raw, 10, 64)
		var p domain.Product
		if perr != nil || GetDB(c).Where("id = ?", pid).First(&p).Error != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
				map[string]string{"product_id": "Product does not exist."})
		}
		if n := GetDB(c).Model(&p).Association("Images").Count(); n >= domain.MaxProductImages {
			return fail(c, http.StatusBadRequest, "INTEGRITY_ERROR", domain.ErrTooManyImages.Error(),
				map[string]string{"images": domain.ErrTooManyImages.Error()})
		}
		product = &p
	}

	rel, stored, resp := storeUpload(c, "image", "products")
	if !stored {
		return resp
	}
	img := domain.Image{Path: rel}
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&img).Error; err != nil {
			return err
		}
		if product != nil {
			return tx.Model(product).Association("Images").Append(&img)
		}
		return nil
	})
	if err != nil {
		_ = getDeps(c).Media.Remove(rel)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save image", err.Error())
	}
	return created(c, newImageView(c, &img))
}

func deleteProductImage(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid image ID", nil)
	}
	var img domain.Image
	if err := GetDB(c).Where("id = ?", id).First(&img).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query image", err.Error())
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_image_link WHERE image_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&img).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete image", err.Error())
	}
	if store := getDeps(c).Media; store != nil {
		if err := store.Remove(img.Path); err != nil {
			zap.L().Warn("remove image file", zap.String("namespace", "media"), zap.String("path", img.Path), zap.Error(err))
		}
	}
	return ok(c, map[string]interface{}{"id": id})
}

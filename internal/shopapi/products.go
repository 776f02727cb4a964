package shopapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/webserver"
)

const relatedProductLimit = 5

type productPayload struct {
	Title           domain.Localized `json:"title" validate:"required"`
	Description     domain.Localized `json:"description"`
	Price           *int64           `json:"price" validate:"required"`
	Sales           int64            `json:"sales"`
	IsAvailable     *bool            `json:"is_available"`
	CategoryID      int64            `json:"category_id" validate:"required,min=1"`
	SubCategoryID   int64            `json:"sub_category_id" validate:"required,min=1"`
	StockID         *int64           `json:"stock_id"`
	IndexCategoryID *int64           `json:"index_category_id"`
	BrandID         *int64           `json:"brand_id"`
	Gender          string           `json:"gender"`
	Images          []int64          `json:"images"`
}

func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/price-range", getPriceRange)
	webserver.ApiGET("/products/:slug", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func productRepo(c echo.Context) *catalog.GormProductRepository {
	return catalog.NewProductRepository(GetDB(c), getDeps(c).I18n.Locales())
}

func listProducts(c echo.Context) error {
	q, err := catalog.ParseProductQuery(c.QueryParams(), requestLocale(c))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product filter", err)
	}
	rows, total, err := productRepo(c).Search(c.Request().Context(), q)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	items := make([]productView, 0, len(rows))
	for i := range rows {
		items = append(items, newProductView(c, &rows[i], false))
	}
	return paged(c, items, total, q.Page, q.PageSize)
}

func getPriceRange(c echo.Context) error {
	cid, _ := optionalID(c, "category_id")
	pr, err := productRepo(c).PriceRange(c.Request().Context(), cid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query price range", err.Error())
	}
	return ok(c, pr)
}

// getProduct accepts either a slug or a numeric id.
func getProduct(c echo.Context) error {
	key := strings.TrimSpace(c.Param("slug"))
	repo := productRepo(c)
	ctx := c.Request().Context()

	var (
		p   *domain.Product
		err error
	)
	// slug first; a numeric key that matches no slug is an id
	p, err = repo.GetBySlug(ctx, key)
	if isNotFound(err) {
		if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
			p, err = repo.GetByID(ctx, id)
		}
	}
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	detail, err := buildProductDetail(c, p)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, detail)
}

func buildProductDetail(c echo.Context, p *domain.Product) (*productDetailView, error) {
	var ratings []domain.ProductRating
	if err := GetDB(c).Where("product_id = ?", p.ID).Order("star DESC, id DESC").Find(&ratings).Error; err != nil {
		return nil, err
	}
	related, err := productRepo(c).Related(c.Request().Context(), p, relatedProductLimit)
	if err != nil {
		return nil, err
	}

	detail := &productDetailView{
		productView: newProductView(c, p, true),
		Ratings:     make([]ratingView, 0, len(ratings)),
		RatingCount: len(ratings),
		Related:     make([]productView, 0, len(related)),
	}
	stars := make(stats.Float64Data, 0, len(ratings))
	for i := range ratings {
		detail.Ratings = append(detail.Ratings, newRatingView(&ratings[i]))
		stars = append(stars, float64(ratings[i].Star))
	}
	if len(stars) > 0 {
		avg, _ := stats.Mean(stars)
		detail.AverageRating, _ = stats.Round(avg, 1)
	}
	for i := range related {
		detail.Related = append(detail.Related, newProductView(c, &related[i], false))
	}
	return detail, nil
}

// checkProductPayload runs the relational and pricing rules a struct tag
// cannot express. images is the resolved image set.
func checkProductPayload(c echo.Context, payload *productPayload) ([]domain.Image, bool, error) {
	errs := catalog.FieldErrors{}
	payload.Title = checkLocalized(c, errs, "title", payload.Title, true)
	payload.Description = checkLocalized(c, errs, "description", payload.Description, false)

	payload.Gender = strings.ToUpper(strings.TrimSpace(payload.Gender))
	if payload.Gender == "" {
		payload.Gender = domain.GenderUnisex
	} else if !domain.ValidGender(payload.Gender) {
		errs["gender"] = "Must be one of: M F U."
	}

	if !exists(c, &domain.Category{}, payload.CategoryID) {
		errs["category_id"] = "Category does not exist."
	}
	var sub domain.SubCategory
	if err := GetDB(c).Where("id = ?", payload.SubCategoryID).First(&sub).Error; err != nil {
		errs["sub_category_id"] = "Sub-category does not exist."
	} else if sub.CategoryID != payload.CategoryID {
		errs["sub_category_id"] = "Sub-category does not belong to the category."
	}
	checkRef(c, errs, "stock_id", &domain.Stock{}, payload.StockID)
	checkRef(c, errs, "index_category_id", &domain.IndexCategory{}, payload.IndexCategoryID)
	checkRef(c, errs, "brand_id", &domain.Brand{}, payload.BrandID)

	var images []domain.Image
	ids := uniqueIDs(payload.Images)
	if len(ids) > 0 {
		if err := GetDB(c).Where("id IN ?", ids).Order("id ASC").Find(&images).Error; err != nil {
			return nil, false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query images", err.Error())
		}
		if len(images) != len(ids) {
			errs["images"] = "Image does not exist."
		}
	}
	if valid, resp := reportFieldErrors(c, errs); !valid {
		return nil, false, resp
	}

	if len(ids) > domain.MaxProductImages {
		return nil, false, fail(c, http.StatusBadRequest, "INTEGRITY_ERROR", domain.ErrTooManyImages.Error(),
			map[string]string{"images": domain.ErrTooManyImages.Error()})
	}
	probe := domain.Product{Price: *payload.Price, Sales: payload.Sales}
	if err := probe.CheckPricing(); err != nil {
		field := "sales"
		if errors.Is(err, domain.ErrNegativePrice) {
			field = "price"
		}
		return nil, false, fail(c, http.StatusBadRequest, "INTEGRITY_ERROR", err.Error(), map[string]string{field: err.Error()})
	}
	return images, true, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func applyProductPayload(p *domain.Product, payload *productPayload) {
	p.Title = payload.Title
	p.Description = payload.Description
	p.Price = *payload.Price
	p.Sales = payload.Sales
	p.IsAvailable = true
	if payload.IsAvailable != nil {
		p.IsAvailable = *payload.IsAvailable
	}
	p.CategoryID = payload.CategoryID
	p.SubCategoryID = payload.SubCategoryID
	p.StockID = payload.StockID
	p.IndexCategoryID = payload.IndexCategoryID
	p.BrandID = payload.BrandID
	p.Gender = payload.Gender
}

// saveProduct writes p and its image links in one transaction, regenerating
// the slug when the default-locale title changed.
// saveProduct writes p and its image links. A freshly generated slug that a
// concurrent writer took first is regenerated once.
func saveProduct(c echo.Context, p *domain.Product, images []domain.Image, titleChanged bool) error {
	regenerate := titleChanged || p.Slug == ""
	id := p.ID
	err := saveProductTx(c, p, images, regenerate)
	if err != nil && regenerate && isDuplicate(err) {
		zap.L().Warn("product slug taken concurrently, retrying", zap.String("namespace", "catalog"),
			zap.String("slug", p.Slug))
		p.ID = id
		err = saveProductTx(c, p, images, true)
	}
	return err
}

func saveProductTx(c echo.Context, p *domain.Product, images []domain.Image, regenerate bool) error {
	def := getDeps(c).I18n.Default()
	ctx := c.Request().Context()
	return GetDB(c).Transaction(func(tx *gorm.DB) error {
		if regenerate {
			slug, err := catalog.UniqueSlug(ctx, tx, p.Title.Get(def, def), p.ID)
			if err != nil {
				return err
			}
			p.Slug = slug
		}
		if err := tx.Omit("Images", "ShortDescriptions").Save(p).Error; err != nil {
			return err
		}
		assoc := tx.Model(p).Association("Images")
		if len(images) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(images)
	})
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if valid, resp := bindAndValidate(c, &payload, "product"); !valid {
		return resp
	}
	images, valid, resp := checkProductPayload(c, &payload)
	if !valid {
		return resp
	}
	var p domain.Product
	applyProductPayload(&p, &payload)
	if err := saveProduct(c, &p, images, true); err != nil {
		if isDuplicate(err) {
			return fail(c, http.StatusBadRequest, "DUPLICATE_PRODUCT", "Product slug already exists", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	zap.L().Info("product created", zap.String("namespace", "catalog"),
		zap.Int64("id", p.ID), zap.String("slug", p.Slug))

	saved, err := productRepo(c).GetByID(c.Request().Context(), p.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return created(c, newProductView(c, saved, true))
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	var payload productPayload
	if valid, resp := bindAndValidate(c, &payload, "product"); !valid {
		return resp
	}
	images, valid, resp := checkProductPayload(c, &payload)
	if !valid {
		return resp
	}
	def := getDeps(c).I18n.Default()
	titleChanged := p.Title.Get(def, def) != payload.Title.Get(def, def)
	applyProductPayload(&p, &payload)
	if err := saveProduct(c, &p, images, titleChanged); err != nil {
		if isDuplicate(err) {
			return fail(c, http.StatusBadRequest, "DUPLICATE_PRODUCT", "Product slug already exists", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}

	saved, err := productRepo(c).GetByID(c.Request().Context(), p.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, newProductView(c, saved, true))
}

// deleteProduct removes the product with its descriptions, ratings and image
// links. Order lines keep their title snapshot with product_id cleared.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Order{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Banner{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.ShortDescription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.ProductRating{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&p).Association("Images").Clear(); err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	zap.L().Info("product deleted", zap.String("namespace", "catalog"), zap.Int64("id", id))
	return ok(c, map[string]interface{}{"id": id})
}

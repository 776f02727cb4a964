package shopapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
)

// Read models. Translatable fields are resolved for the request locale; detail
// views also carry the full map under *_i18n.

type categoryView struct {
	ID               int64               `json:"id"`
	Title            string              `json:"title"`
	TitleI18n        domain.Localized    `json:"title_i18n,omitempty"`
	IsIndex          bool                `json:"is_index"`
	Image            string              `json:"image"`
	SubCategoryCount int64               `json:"sub_category_count"`
	PriceRange       *catalog.PriceRange `json:"price_range"`
}

type titledView struct {
	ID         int64            `json:"id"`
	Title      string           `json:"title"`
	TitleI18n  domain.Localized `json:"title_i18n,omitempty"`
	CategoryID int64            `json:"category_id,omitempty"`
}

type indexCategoryView struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	TitleI18n     domain.Localized `json:"title_i18n,omitempty"`
	Image         string           `json:"image"`
	CategoryID    *int64           `json:"category_id"`
	SubCategoryID *int64           `json:"sub_category_id"`
	StockID       *int64           `json:"stock_id"`
}

type imageView struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

type shortDescriptionView struct {
	ID        int64            `json:"id"`
	Key       string           `json:"key"`
	Value     string           `json:"value"`
	KeyI18n   domain.Localized `json:"key_i18n,omitempty"`
	ValueI18n domain.Localized `json:"value_i18n,omitempty"`
	ProductID int64            `json:"product_id"`
}

type productView struct {
	ID                int64                  `json:"id"`
	Title             string                 `json:"title"`
	TitleI18n         domain.Localized       `json:"title_i18n,omitempty"`
	Description       string                 `json:"description"`
	DescriptionI18n   domain.Localized       `json:"description_i18n,omitempty"`
	Price             int64                  `json:"price"`
	Sales             int64                  `json:"sales"`
	FinalPrice        int64                  `json:"final_price"`
	IsAvailable       bool                   `json:"is_available"`
	Slug              string                 `json:"slug"`
	Gender            string                 `json:"gender"`
	CategoryID        int64                  `json:"category_id"`
	SubCategoryID     int64                  `json:"sub_category_id"`
	StockID           *int64                 `json:"stock_id"`
	IndexCategoryID   *int64                 `json:"index_category_id"`
	BrandID           *int64                 `json:"brand_id"`
	Images            []imageView            `json:"images"`
	ShortDescriptions []shortDescriptionView `json:"short_descriptions"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

type ratingView struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Star      int       `json:"star"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type productDetailView struct {
	productView
	Ratings       []ratingView  `json:"ratings"`
	RatingCount   int           `json:"rating_count"`
	AverageRating float64       `json:"average_rating"`
	Related       []productView `json:"related_products"`
}

type bannerView struct {
	ID              int64     `json:"id"`
	WebImage        string    `json:"web_image"`
	RspImage        string    `json:"rsp_image"`
	IsAdvertisement bool      `json:"is_advertisement"`
	CategoryID      *int64    `json:"category_id"`
	SubCategoryID   *int64    `json:"sub_category_id"`
	StockID         *int64    `json:"stock_id"`
	ProductID       *int64    `json:"product_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type contactView struct {
	ID          int64            `json:"id"`
	Address     string           `json:"address"`
	AddressI18n domain.Localized `json:"address_i18n,omitempty"`
	Phone1      string           `json:"phone_1"`
	Phone2      string           `json:"phone_2"`
	Email       string           `json:"email"`
	Map         string           `json:"map"`
}

type serviceView struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	TitleI18n    domain.Localized `json:"title_i18n,omitempty"`
	SubTitle     string           `json:"sub_title"`
	SubTitleI18n domain.Localized `json:"sub_title_i18n,omitempty"`
	Image        string           `json:"image"`
}

func mediaURL(c echo.Context, rel string) string {
	if m := getDeps(c).Media; m != nil {
		return m.URL(rel)
	}
	return rel
}

func i18nIf(full bool, v domain.Localized) domain.Localized {
	if full {
		return v
	}
	return nil
}

func newTitledView(c echo.Context, id int64, title domain.Localized, full bool) titledView {
	return titledView{ID: id, Title: tr(c, title), TitleI18n: i18nIf(full, title)}
}

func newIndexCategoryView(c echo.Context, ic *domain.IndexCategory, full bool) indexCategoryView {
	return indexCategoryView{
		ID:            ic.ID,
		Title:         tr(c, ic.Title),
		TitleI18n:     i18nIf(full, ic.Title),
		Image:         mediaURL(c, ic.Image),
		CategoryID:    ic.CategoryID,
		SubCategoryID: ic.SubCategoryID,
		StockID:       ic.StockID,
	}
}

func newShortDescriptionView(c echo.Context, sd *domain.ShortDescription, full bool) shortDescriptionView {
	return shortDescriptionView{
		ID:        sd.ID,
		Key:       tr(c, sd.Key),
		Value:     tr(c, sd.Value),
		KeyI18n:   i18nIf(full, sd.Key),
		ValueI18n: i18nIf(full, sd.Value),
		ProductID: sd.ProductID,
	}
}

func newImageView(c echo.Context, img *domain.Image) imageView {
	return imageView{ID: img.ID, Path: img.Path, URL: mediaURL(c, img.Path)}
}

func newProductView(c echo.Context, p *domain.Product, full bool) productView {
	v := productView{
		ID:                p.ID,
		Title:             tr(c, p.Title),
		TitleI18n:         i18nIf(full, p.Title),
		Description:       tr(c, p.Description),
		DescriptionI18n:   i18nIf(full, p.Description),
		Price:             p.Price,
		Sales:             p.Sales,
		FinalPrice:        p.UnitPrice(),
		IsAvailable:       p.IsAvailable,
		Slug:              p.Slug,
		Gender:            p.Gender,
		CategoryID:        p.CategoryID,
		SubCategoryID:     p.SubCategoryID,
		StockID:           p.StockID,
		IndexCategoryID:   p.IndexCategoryID,
		BrandID:           p.BrandID,
		Images:            make([]imageView, 0, len(p.Images)),
		ShortDescriptions: make([]shortDescriptionView, 0, len(p.ShortDescriptions)),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	for i := range p.Images {
		v.Images = append(v.Images, newImageView(c, &p.Images[i]))
	}
	for i := range p.ShortDescriptions {
		v.ShortDescriptions = append(v.ShortDescriptions, newShortDescriptionView(c, &p.ShortDescriptions[i], full))
	}
	return v
}

func newRatingView(r *domain.ProductRating) ratingView {
	return ratingView{
		ID:        r.ID,
		ProductID: r.ProductID,
		Star:      r.Star,
		Name:      r.Name,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func newBannerView(c echo.Context, b *domain.Banner) bannerView {
	return bannerView{
		ID:              b.ID,
		WebImage:        mediaURL(c, b.WebImage),
		RspImage:        mediaURL(c, b.RspImage),
		IsAdvertisement: b.IsAdvertisement,
		CategoryID:      b.CategoryID,
		SubCategoryID:   b.SubCategoryID,
		StockID:         b.StockID,
		ProductID:       b.ProductID,
		CreatedAt:       b.CreatedAt,
	}
}

func newContactView(c echo.Context, ct *domain.Contact, full bool) contactView {
	return contactView{
		ID:          ct.ID,
		Address:     tr(c, ct.Address),
		AddressI18n: i18nIf(full, ct.Address),
		Phone1:      ct.Phone1,
		Phone2:      ct.Phone2,
		Email:       ct.Email,
		Map:         ct.Map,
	}
}

func newServiceView(c echo.Context, s *domain.Service, full bool) serviceView {
	return serviceView{
		ID:           s.ID,
		Title:        tr(c, s.Title),
		TitleI18n:    i18nIf(full, s.Title),
		SubTitle:     tr(c, s.SubTitle),
		SubTitleI18n: i18nIf(full, s.SubTitle),
		Image:        mediaURL(c, s.Image),
	}
}

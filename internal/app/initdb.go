package app

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/catalog"
	"github.com/bazaarlab/storefront/internal/domain"
)

//go:embed seed/catalog.yml
var demoCatalog []byte

type seedSpec struct {
	Key   domain.Localized `mapstructure:"key"`
	Value domain.Localized `mapstructure:"value"`
}

type seedProduct struct {
	Title       domain.Localized `mapstructure:"title"`
	Description domain.Localized `mapstructure:"description"`
	Price       int64            `mapstructure:"price"`
	Sales       int64            `mapstructure:"sales"`
	Gender      string           `mapstructure:"gender"`
	Available   *bool            `mapstructure:"available"`
	Brand       string           `mapstructure:"brand"`
	Stock       string           `mapstructure:"stock"`
	Specs       []seedSpec       `mapstructure:"specs"`
}

type seedSubCategory struct {
	Title    domain.Localized `mapstructure:"title"`
	Products []seedProduct    `mapstructure:"products"`
}

type seedCategory struct {
	Title         domain.Localized  `mapstructure:"title"`
	IsIndex       bool              `mapstructure:"is_index"`
	Image         string            `mapstructure:"image"`
	SubCategories []seedSubCategory `mapstructure:"sub_categories"`
}

type seedContact struct {
	Address domain.Localized `mapstructure:"address"`
	Phone1  string           `mapstructure:"phone_1"`
	Phone2  string           `mapstructure:"phone_2"`
	Email   string           `mapstructure:"email"`
	Map     string           `mapstructure:"map"`
}

type seedSocial struct {
	Instagram string `mapstructure:"instagram"`
	Facebook  string `mapstructure:"facebook"`
	Telegram  string `mapstructure:"telegram"`
}

type seedService struct {
	Title    domain.Localized `mapstructure:"title"`
	SubTitle domain.Localized `mapstructure:"sub_title"`
	Image    string           `mapstructure:"image"`
}

type seedDocument struct {
	Brands     []domain.Localized `mapstructure:"brands"`
	Stocks     []domain.Localized `mapstructure:"stocks"`
	Categories []seedCategory     `mapstructure:"categories"`
	Contact    *seedContact       `mapstructure:"contact"`
	Social     *seedSocial        `mapstructure:"social"`
	Services   []seedService      `mapstructure:"services"`
}

// SeedResult counts the rows SeedCatalog created.
type SeedResult struct {
	Skipped       bool `json:"skipped"`
	Brands        int  `json:"brands"`
	Stocks        int  `json:"stocks"`
	Categories    int  `json:"categories"`
	SubCategories int  `json:"sub_categories"`
	Products      int  `json:"products"`
	Services      int  `json:"services"`
}

func parseSeed(raw []byte) (*seedDocument, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, errors.Wrap(err, "parse seed yaml")
	}
	var doc seedDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(tree); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	return &doc, nil
}

// SeedCatalog loads the demo catalog. A database that already has categories
// is left alone.
func (a *Application) SeedCatalog(ctx context.Context) (*SeedResult, error) {
	var count int64
	if err := a.gormDB.WithContext(ctx).Model(&domain.Category{}).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "count categories")
	}
	if count > 0 {
		zap.L().Info("catalog already has categories, seed skipped", zap.String("namespace", "seed"))
		return &SeedResult{Skipped: true}, nil
	}

	doc, err := parseSeed(demoCatalog)
	if err != nil {
		return nil, err
	}
	res := &SeedResult{}
	err = a.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return a.seedDocument(ctx, tx, doc, res)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("demo catalog seeded", zap.String("namespace", "seed"),
		zap.Int("categories", res.Categories), zap.Int("products", res.Products))
	return res, nil
}

func (a *Application) seedDocument(ctx context.Context, tx *gorm.DB, doc *seedDocument, res *SeedResult) error {
	def := a.appConfig.I18n.Default

	brands := map[string]int64{}
	for _, title := range doc.Brands {
		b := domain.Brand{Title: title.Trimmed()}
		if err := tx.Create(&b).Error; err != nil {
			return errors.Wrap(err, "seed brand")
		}
		brands[title.Get(def, def)] = b.ID
		res.Brands++
	}
	stocks := map[string]int64{}
	for _, title := range doc.Stocks {
		s := domain.Stock{Title: title.Trimmed()}
		if err := tx.Create(&s).Error; err != nil {
			return errors.Wrap(err, "seed stock")
		}
		stocks[title.Get(def, def)] = s.ID
		res.Stocks++
	}

	for _, sc := range doc.Categories {
		cat := domain.Category{Title: sc.Title.Trimmed(), IsIndex: sc.IsIndex, Image: sc.Image}
		if err := tx.Create(&cat).Error; err != nil {
			return errors.Wrap(err, "seed category")
		}
		res.Categories++
		for _, ss := range sc.SubCategories {
			sub := domain.SubCategory{Title: ss.Title.Trimmed(), CategoryID: cat.ID}
			if err := tx.Create(&sub).Error; err != nil {
				return errors.Wrap(err, "seed sub category")
			}
			res.SubCategories++
			for i := range ss.Products {
				if err := seedOneProduct(ctx, tx, def, &ss.Products[i], &sub, brands, stocks); err != nil {
					return err
				}
				res.Products++
			}
		}
	}

	n, err := seedAbout(tx, doc)
	if err != nil {
		return err
	}
	res.Services = n
	return nil
}

func seedOneProduct(ctx context.Context, tx *gorm.DB, def string, sp *seedProduct, sub *domain.SubCategory,
	brands, stocks map[string]int64) error {
	p := domain.Product{
		Title:         sp.Title.Trimmed(),
		Description:   sp.Description.Trimmed(),
		Price:         sp.Price,
		Sales:         sp.Sales,
		IsAvailable:   sp.Available == nil || *sp.Available,
		CategoryID:    sub.CategoryID,
		SubCategoryID: sub.ID,
		Gender:        sp.Gender,
	}
	name := p.Title.Get(def, def)
	if p.Gender == "" {
		p.Gender = domain.GenderUnisex
	}
	if !domain.ValidGender(p.Gender) {
		return fmt.Errorf("seed product %q: invalid gender %q", name, p.Gender)
	}
	if err := p.CheckPricing(); err != nil {
		return errors.Wrapf(err, "seed product %q", name)
	}
	if sp.Brand != "" {
		id, ok := brands[sp.Brand]
		if !ok {
			return fmt.Errorf("seed product %q: unknown brand %q", name, sp.Brand)
		}
		p.BrandID = &id
	}
	if sp.Stock != "" {
		id, ok := stocks[sp.Stock]
		if !ok {
			return fmt.Errorf("seed product %q: unknown stock %q", name, sp.Stock)
		}
		p.StockID = &id
	}

	slug, err := catalog.UniqueSlug(ctx, tx, name, 0)
	if err != nil {
		return err
	}
	p.Slug = slug
	if err := tx.Create(&p).Error; err != nil {
		return errors.Wrapf(err, "seed product %q", name)
	}
	for _, spec := range sp.Specs {
		sd := domain.ShortDescription{Key: spec.Key.Trimmed(), Value: spec.Value.Trimmed(), ProductID: p.ID}
		if err := tx.Create(&sd).Error; err != nil {
			return errors.Wrap(err, "seed short description")
		}
	}
	return nil
}

// seedAbout fills the about tables that are still empty.
func seedAbout(tx *gorm.DB, doc *seedDocument) (int, error) {
	var count int64
	if doc.Contact != nil {
		if err := tx.Model(&domain.Contact{}).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			c := domain.Contact{
				Address: doc.Contact.Address.Trimmed(),
				Phone1:  doc.Contact.Phone1,
				Phone2:  doc.Contact.Phone2,
				Email:   doc.Contact.Email,
				Map:     doc.Contact.Map,
			}
			if err := tx.Create(&c).Error; err != nil {
				return 0, errors.Wrap(err, "seed contact")
			}
		}
	}
	if doc.Social != nil {
		if err := tx.Model(&domain.Social{}).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			s := domain.Social{Instagram: doc.Social.Instagram, Facebook: doc.Social.Facebook, Telegram: doc.Social.Telegram}
			if err := tx.Create(&s).Error; err != nil {
				return 0, errors.Wrap(err, "seed social")
			}
		}
	}
	if err := tx.Model(&domain.Service{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	for _, s := range doc.Services {
		svc := domain.Service{Title: s.Title.Trimmed(), SubTitle: s.SubTitle.Trimmed(), Image: s.Image}
		if err := tx.Create(&svc).Error; err != nil {
			return 0, errors.Wrap(err, "seed service")
		}
	}
	return len(doc.Services), nil
}

package catalog

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

// PriceRange lowest and highest product price. Min is reported as 0 when
// every product costs the same so a range slider still has a span.
type PriceRange struct {
	Min int64 `json:"min_price"`
	Max int64 `json:"max_price"`
}

// ProductRepository read side of the catalog
type ProductRepository interface {
	Search(ctx context.Context, q *ProductQuery) ([]domain.Product, int64, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	PriceRange(ctx context.Context, categoryID int64) (*PriceRange, error)
	Related(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error)
}

type GormProductRepository struct {
	db      *gorm.DB
	locales []string
}

var _ ProductRepository = (*GormProductRepository)(nil)

func NewProductRepository(db *gorm.DB, locales []string) *GormProductRepository {
	return &GormProductRepository{db: db, locales: locales}
}

func (r *GormProductRepository) preload(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_image.id ASC")
	}).Preload("ShortDescriptions", func(db *gorm.DB) *gorm.DB {
		return db.Order("short_description.id ASC")
	})
}

// Search returns one page of matching products and the total match count.
func (r *GormProductRepository) Search(ctx context.Context, q *ProductQuery) ([]domain.Product, int64, error) {
	base := q.Apply(r.db.WithContext(ctx).Model(&domain.Product{}), r.locales)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	var items []domain.Product
	err := r.preload(base.Session(&gorm.Session{})).
		Order(q.OrderClause(r.db, r.locales)).
		Offset(q.Offset()).Limit(q.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "search products")
	}
	return items, total, nil
}

func (r *GormProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	if err := r.preload(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.preload(r.db.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// PriceRange over all products, or over one category when categoryID > 0.
func (r *GormProductRepository) PriceRange(ctx context.Context, categoryID int64) (*PriceRange, error) {
	var row struct {
		MinPrice *int64
		MaxPrice *int64
	}
	query := r.db.WithContext(ctx).Model(&domain.Product{}).Select("MIN(price) AS min_price, MAX(price) AS max_price")
	if categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if err := query.Scan(&row).Error; err != nil {
		return nil, errors.Wrap(err, "price range")
	}
	pr := &PriceRange{}
	if row.MinPrice != nil {
		pr.Min = *row.MinPrice
	}
	if row.MaxPrice != nil {
		pr.Max = *row.MaxPrice
	}
	if pr.Min == pr.Max {
		pr.Min = 0
	}
	return pr, nil
}

// Related products from the same category, newest first.
func (r *GormProductRepository) Related(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	var items []domain.Product
	err := r.preload(r.db.WithContext(ctx)).
		Where("category_id = ? AND id <> ?", p.CategoryID, p.ID).
		Order("id DESC").Limit(limit).
		Find(&items).Error
	return items, errors.Wrap(err, "related products")
}

package domain

import (
	"errors"
	"time"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderUnisex = "U"

	// MaxProductImages is the most images a single product may carry
	MaxProductImages = 3
)

var (
	ErrNegativePrice  = errors.New("price must be a non-negative value")
	ErrNegativeSales  = errors.New("sales must be a non-negative value")
	ErrSalesOverPrice = errors.New("sales cannot be greater than the price")
	ErrTooManyImages  = errors.New("cannot have more than 3 images for a product")
)

// ValidGender reports whether g is one of M, F or U.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnisex:
		return true
	}
	return false
}

// Product catalog item. Price and Sales are whole currency units; Sales is an
// absolute discount, 0 meaning no discount.
type Product struct {
	ID                int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             Localized          `gorm:"not null" json:"title"`
	Description       Localized          `json:"description"`
	Price             int64              `gorm:"not null;index" json:"price"`
	Sales             int64              `gorm:"not null" json:"sales"`
	IsAvailable       bool               `gorm:"not null" json:"is_available"`
	StockID           *int64             `gorm:"index" json:"stock_id"`
	SubCategoryID     int64              `gorm:"index;not null" json:"sub_category_id"`
	CategoryID        int64              `gorm:"index;not null" json:"category_id"`
	IndexCategoryID   *int64             `gorm:"index" json:"index_category_id"`
	BrandID           *int64             `gorm:"index" json:"brand_id"`
	Slug              string             `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Gender            string             `gorm:"size:1;not null" json:"gender"`
	Images            []Image            `gorm:"many2many:product_image_link;" json:"images"`
	ShortDescriptions []ShortDescription `gorm:"foreignKey:ProductID" json:"short_descriptions"`
	CreatedAt         time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// CheckPricing enforces 0 <= sales <= price.
func (p *Product) CheckPricing() error {
	switch {
	case p.Price < 0:
		return ErrNegativePrice
	case p.Sales < 0:
		return ErrNegativeSales
	case p.Sales > p.Price:
		return ErrSalesOverPrice
	}
	return nil
}

// UnitPrice is the price a customer pays for one item.
func (p *Product) UnitPrice() int64 {
	if p.Sales > 0 {
		return p.Price - p.Sales
	}
	return p.Price
}

// Image uploaded product picture; Path is relative to the media root
type Image struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"size:512;not null" json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func (Image) TableName() string {
	return "product_image"
}

// ShortDescription localized key/value spec line shown on the product card
type ShortDescription struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       Localized `gorm:"not null" json:"key"`
	Value     Localized `gorm:"not null" json:"value"`
	ProductID int64     `gorm:"index;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShortDescription) TableName() string {
	return "short_description"
}

// ProductRating customer review with a 1..5 star score
type ProductRating struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"index;not null" json:"product_id"`
	Star      int       `gorm:"not null;index" json:"star"`
	Name      string    `gorm:"size:255" json:"name"`
	Comment   string    `gorm:"size:2000" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductRating) TableName() string {
	return "product_rating"
}

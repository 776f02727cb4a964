package domain

import "time"

// Catalog taxonomy models

// Category top level of the two-level product taxonomy
type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     Localized `gorm:"not null" json:"title"`
	IsIndex   bool      `gorm:"not null;index" json:"is_index"`
	Image     string    `gorm:"size:512" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}

// SubCategory always belongs to exactly one Category
type SubCategory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      Localized `gorm:"not null" json:"title"`
	CategoryID int64     `gorm:"index;not null" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SubCategory) TableName() string {
	return "sub_category"
}

type Brand struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     Localized `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Brand) TableName() string {
	return "brand"
}

// Stock promotional batch label, e.g. "Black Friday"
type Stock struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     Localized `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Stock) TableName() string {
	return "stock"
}

// IndexCategory featured tile on the home page, optionally pointing at a
// category, sub-category or stock.
type IndexCategory struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         Localized `json:"title"`
	Image         string    `gorm:"size:512" json:"image"`
	CategoryID    *int64    `gorm:"index" json:"category_id"`
	SubCategoryID *int64    `gorm:"index" json:"sub_category_id"`
	StockID       *int64    `gorm:"index" json:"stock_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (IndexCategory) TableName() string {
	return "index_category"
}

// Banner promotional web/responsive image pair
type Banner struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WebImage        string    `gorm:"size:512" json:"web_image"`
	RspImage        string    `gorm:"size:512" json:"rsp_image"`
	IsAdvertisement bool      `gorm:"not null;index" json:"is_advertisement"`
	CategoryID      *int64    `gorm:"index" json:"category_id"`
	SubCategoryID   *int64    `gorm:"index" json:"sub_category_id"`
	StockID         *int64    `gorm:"index" json:"stock_id"`
	ProductID       *int64    `gorm:"index" json:"product_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Banner) TableName() string {
	return "banner"
}

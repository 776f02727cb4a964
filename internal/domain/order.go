package domain

import "time"

// OrderUser one guest checkout: who ordered and the aggregate total.
// Rows are written once and never updated.
type OrderUser struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference  string    `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	Name       string    `gorm:"size:255" json:"name"`
	Phone      string    `gorm:"size:255;index;not null" json:"phone"`
	Address    string    `gorm:"size:255" json:"address"`
	TotalPrice int64     `gorm:"not null" json:"total_price"`
	Lines      []Order   `gorm:"foreignKey:OrderUserID" json:"order"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName Specify table name
func (OrderUser) TableName() string {
	return "order_user"
}

// ItemCount sums the quantity of every line.
func (u *OrderUser) ItemCount() int {
	n := 0
	for _, l := range u.Lines {
		n += l.Count
	}
	return n
}

// Order one line of a checkout. ProductID is cleared when the product is
// deleted; ProductTitle and UnitPrice keep what the customer saw.
type Order struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    *int64    `gorm:"index" json:"product_id"`
	ProductTitle string    `gorm:"size:255" json:"product_title"`
	Count        int       `gorm:"not null" json:"count"`
	UnitPrice    int64     `gorm:"not null" json:"unit_price"`
	OrderUserID  int64     `gorm:"index;not null" json:"order_user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "product_order"
}

func (o Order) LineTotal() int64 {
	return o.UnitPrice * int64(o.Count)
}

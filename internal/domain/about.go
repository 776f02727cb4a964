package domain

import "time"

// About module models, read by the storefront footer and contact page

type Contact struct {
	ID        int64     `json:"id"`
	Address   Localized `json:"address"`
	Phone1    string    `gorm:"size:17" json:"phone_1"`
	Phone2    string    `gorm:"size:17" json:"phone_2"`
	Email     string    `gorm:"size:255" json:"email"`
	Map       string    `gorm:"size:400" json:"map"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Contact) TableName() string {
	return "about_contact"
}

type Social struct {
	ID        int64     `json:"id"`
	Instagram string    `gorm:"size:255" json:"instagram"`
	Facebook  string    `gorm:"size:255" json:"facebook"`
	Telegram  string    `gorm:"size:255" json:"telegram"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Social) TableName() string {
	return "about_social"
}

type Service struct {
	ID        int64     `json:"id"`
	Title     Localized `json:"title"`
	SubTitle  Localized `json:"sub_title"`
	Image     string    `gorm:"size:512" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Service) TableName() string {
	return "about_service"
}

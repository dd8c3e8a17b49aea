package model

import "github.com/shopspring/decimal"

// Car is a rentable vehicle in the catalog.
type Car struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Make        string          `json:"make" gorm:"size:100;not null"`
	Model       string          `json:"model" gorm:"size:100;not null"`
	Year        int             `json:"year" gorm:"not null"`
	PricePerDay decimal.Decimal `json:"price_per_day" gorm:"type:decimal(10,2);not null"`
	Type        string          `json:"type" gorm:"size:50;index"` // free-text category
	ImageURL    string          `json:"imageUrl,omitempty" gorm:"size:512"`
}

package model

import "github.com/shopspring/decimal"

// CartItem is one car in a user's cart. Subtotal is computed by the backend.
type CartItem struct {
	CartItemID uint            `json:"cartItemId" gorm:"primaryKey;column:cart_item_id"`
	UserID     uint            `json:"-" gorm:"not null;uniqueIndex:idx_cart_user_car"`
	CarID      uint            `json:"-" gorm:"not null;uniqueIndex:idx_cart_user_car"`
	Car        Car             `json:"car" gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE"`
	Days       int             `json:"days" gorm:"not null"`
	DailyRate  decimal.Decimal `json:"dailyRate" gorm:"type:decimal(10,2);not null"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"-"`
}

// Cart is the server-owned set of items with its total.
type Cart struct {
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Find returns the item for carID, if present.
func (c *Cart) Find(carID uint) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.Car.ID == carID {
			return item, true
		}
	}
	return CartItem{}, false
}

// ItemCount is the number of rental days across all items.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Days
	}
	return total
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

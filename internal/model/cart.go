package model

import "time"

// CartItem is one server-side cart line. (user, product, color, size) is unique.
type CartItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_cart_line"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_line"`
	Color     string    `json:"color" gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_cart_line"`
	Size      string    `json:"size" gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_cart_line"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WishlistItem marks a product saved by a user. (user, product) is unique.
type WishlistItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_wishlist_line"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_wishlist_line"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `json:"created_at"`
}

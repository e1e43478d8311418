package model

// All returns every entity managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&VerificationToken{},
		&Category{},
		&Product{},
		&Address{},
		&DiscountCode{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&CartItem{},
		&WishlistItem{},
		&Review{},
		&ContactMessage{},
		&NewsletterSubscription{},
	}
}

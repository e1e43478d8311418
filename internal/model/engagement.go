package model

import "time"

// Review is one user's rating of a product
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_review_author"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_review_author;index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactMessage is submitted through the public contact form
type ContactMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null"`
	Subject   string    `json:"subject" gorm:"type:varchar(255)"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Read      bool      `json:"read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// NewsletterSubscription tracks a mailing-list address and its welcome code
type NewsletterSubscription struct {
	ID               uint          `json:"id" gorm:"primaryKey"`
	Email            string        `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Locale           string        `json:"locale" gorm:"type:varchar(8);not null;default:'bg'"`
	Active           bool          `json:"active" gorm:"not null"`
	UnsubscribeToken string        `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	DiscountCodeID   *uint         `json:"discount_code_id,omitempty"`
	DiscountCode     *DiscountCode `json:"discount_code,omitempty" gorm:"foreignKey:DiscountCodeID;constraint:OnDelete:SET NULL"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

package model

import "time"

// DiscountSource records who minted a code.
type DiscountSource string

const (
	SourceAdmin      DiscountSource = "ADMIN"
	SourceNewsletter DiscountSource = "NEWSLETTER"
)

// DiscountCode is a percentage promotion. CurrentUses only ever grows.
type DiscountCode struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Code        string         `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	Percentage  int            `json:"percentage" gorm:"not null"`
	Active      bool           `json:"active" gorm:"not null"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	MaxUses     *int           `json:"max_uses,omitempty"`
	CurrentUses int            `json:"current_uses" gorm:"not null;default:0"`
	Source      DiscountSource `json:"source" gorm:"type:varchar(16);not null;default:'ADMIN'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsExpired reports whether the code expired before now.
func (d *DiscountCode) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// IsExhausted reports whether the usage cap has been reached.
func (d *DiscountCode) IsExhausted() bool {
	return d.MaxUses != nil && d.CurrentUses >= *d.MaxUses
}

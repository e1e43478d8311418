package model

import "time"

// TokenPurpose distinguishes what a verification token unlocks.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "VERIFY_EMAIL"
	PurposeResetPassword TokenPurpose = "RESET_PASSWORD"
)

// VerificationToken is a single-use, hashed token mailed to Identifier (an email address).
type VerificationToken struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	Identifier string       `json:"identifier" gorm:"type:varchar(255);index;not null"`
	Purpose    TokenPurpose `json:"purpose" gorm:"type:varchar(32);not null"`
	TokenHash  string       `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Expires    time.Time    `json:"expires"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsExpired checks if the token is expired
func (t *VerificationToken) IsExpired() bool {
	return time.Now().After(t.Expires)
}

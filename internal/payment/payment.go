// Package payment wraps the payment providers used at checkout.
package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

// Provider names.
const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

// ErrNotConfigured is returned by providers without credentials.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Intent asks a provider to prepare a charge.
type Intent struct {
	Amount       decimal.Decimal
	Currency     string
	UserID       uint
	DiscountCode string
	Description  string
	ReturnURL    string
	CancelURL    string
}

// Session is what the client needs to finish paying.
type Session struct {
	PaymentID    string `json:"paymentId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	ApprovalURL  string `json:"approvalUrl,omitempty"`
}

// Capture is a confirmed, settled payment. UserID is the account the payment was
// created for, zero when the provider did not report it.
type Capture struct {
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
	UserID    uint
}

// Provider creates, confirms and refunds payments.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, intent Intent) (*Session, error)
	// Capture confirms the money has been taken; it fails when the payment is not complete.
	Capture(ctx context.Context, paymentID string) (*Capture, error)
	Refund(ctx context.Context, paymentID string) error
}

// minorUnits converts an amount to integer cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// parseUserID reads the user id stored on a payment; malformed values read as zero.
func parseUserID(v string) uint {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

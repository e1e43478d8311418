package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Fake is an in-memory Provider. Payments are captured for the amount they were
// created with unless CaptureAmount overrides it.
type Fake struct {
	ProviderName string
	CaptureErr   error
	CreateErr    error
	// CaptureAmount, when set, is reported instead of the created amount.
	CaptureAmount *decimal.Decimal
	// CaptureCurrency, when set, is reported instead of the created currency.
	CaptureCurrency string

	mu       sync.Mutex
	seq      int
	amounts  map[string]decimal.Decimal
	currency map[string]string
	users    map[string]uint
	refunded []string
	captures int
}

func NewFake(name string) *Fake {
	return &Fake{ProviderName: name, amounts: map[string]decimal.Decimal{}, currency: map[string]string{}, users: map[string]uint{}}
}

func (f *Fake) Name() string { return f.ProviderName }

func (f *Fake) CreatePayment(_ context.Context, intent Intent) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.seq++
	id := fmt.Sprintf("%s_%d", f.ProviderName, f.seq)
	f.amounts[id] = intent.Amount
	f.currency[id] = intent.Currency
	f.users[id] = intent.UserID
	return &Session{PaymentID: id, ClientSecret: id + "_secret", ApprovalURL: "https://pay.example/" + id}, nil
}

func (f *Fake) Capture(_ context.Context, paymentID string) (*Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	amount, ok := f.amounts[paymentID]
	if !ok {
		return nil, fmt.Errorf("unknown payment %s", paymentID)
	}
	if f.CaptureAmount != nil {
		amount = *f.CaptureAmount
	}
	currency := f.currency[paymentID]
	if f.CaptureCurrency != "" {
		currency = f.CaptureCurrency
	}
	return &Capture{PaymentID: paymentID, Amount: amount, Currency: currency, UserID: f.users[paymentID]}, nil
}

func (f *Fake) Refund(_ context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, paymentID)
	return nil
}

// Refunded lists refunded payment ids.
func (f *Fake) Refunded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunded...)
}

// Captures counts Capture calls.
func (f *Fake) Captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront-service/pkg/config"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// Stripe charges cards and wallets (Apple Pay) through PaymentIntents.
type Stripe struct {
	api *client.API
}

// NewStripe returns nil when no secret key is configured.
func NewStripe(cfg *config.StripeConfig) *Stripe {
	if cfg.SecretKey == "" {
		return nil
	}
	return newStripe(cfg.SecretKey, nil)
}

// newStripe uses the default Stripe backends when backends is nil.
func newStripe(key string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(key, backends)
	return &Stripe{api: api}
}

func (s *Stripe) Name() string { return ProviderStripe }

func (s *Stripe) CreatePayment(ctx context.Context, intent Intent) (*Session, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(intent.Amount)),
		Currency: stripe.String(strings.ToLower(intent.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if intent.Description != "" {
		params.Description = stripe.String(intent.Description)
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatUint(uint64(intent.UserID), 10))
	if intent.DiscountCode != "" {
		params.AddMetadata("discount_code", intent.DiscountCode)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &Session{PaymentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) Capture(ctx context.Context, paymentID string) (*Capture, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("stripe: payment intent %s is %s", pi.ID, pi.Status)
	}
	return &Capture{
		PaymentID: pi.ID,
		Amount:    fromMinorUnits(pi.AmountReceived),
		Currency:  strings.ToUpper(string(pi.Currency)),
		UserID:    parseUserID(pi.Metadata["user_id"]),
	}, nil
}

func (s *Stripe) Refund(ctx context.Context, paymentID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentID)}
	params.Context = ctx
	if _, err := s.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe: refund %s: %w", paymentID, err)
	}
	return nil
}

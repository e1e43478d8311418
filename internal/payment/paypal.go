package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront-service/pkg/config"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

// PayPal charges through PayPal Checkout orders.
type PayPal struct {
	client *paypal.Client
}

// NewPayPal returns nil when no client id is configured.
func NewPayPal(cfg *config.PayPalConfig) (*PayPal, error) {
	if cfg.ClientID == "" {
		return nil, nil
	}
	base := paypal.APIBaseSandBox
	if cfg.Mode == "live" {
		base = paypal.APIBaseLive
	}
	return newPayPal(cfg.ClientID, cfg.Secret, base)
}

func newPayPal(clientID, secret, base string) (*PayPal, error) {
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("paypal: create client: %w", err)
	}
	return &PayPal{client: c}, nil
}

func (p *PayPal) Name() string { return ProviderPayPal }

func (p *PayPal) CreatePayment(ctx context.Context, intent Intent) (*Session, error) {
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(intent.Currency),
			Value:    intent.Amount.StringFixed(2),
		},
		CustomID:    strconv.FormatUint(uint64(intent.UserID), 10),
		Description: intent.Description,
	}}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: intent.ReturnURL,
		CancelURL: intent.CancelURL,
	}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, fmt.Errorf("paypal: create order: %w", err)
	}

	session := &Session{PaymentID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			session.ApprovalURL = link.Href
		}
	}
	return session, nil
}

func (p *PayPal) Capture(ctx context.Context, paymentID string) (*Capture, error) {
	res, err := p.client.CaptureOrder(ctx, paymentID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal: capture order: %w", err)
	}
	if res.Status != "COMPLETED" {
		return nil, fmt.Errorf("paypal: order %s is %s", paymentID, res.Status)
	}

	captured := &Capture{PaymentID: paymentID, Amount: decimal.Zero}
	for _, unit := range res.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, c := range unit.Payments.Captures {
			if captured.UserID == 0 {
				captured.UserID = parseUserID(c.CustomID)
			}
			if c.Amount == nil {
				continue
			}
			v, err := decimal.NewFromString(c.Amount.Value)
			if err != nil {
				return nil, fmt.Errorf("paypal: parse captured amount %q: %w", c.Amount.Value, err)
			}
			captured.Amount = captured.Amount.Add(v)
			captured.Currency = c.Amount.Currency
		}
	}
	return captured, nil
}

func (p *PayPal) Refund(ctx context.Context, paymentID string) error {
	order, err := p.client.GetOrder(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("paypal: get order: %w", err)
	}
	for _, unit := range order.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, c := range unit.Payments.Captures {
			if _, err := p.client.RefundCapture(ctx, c.ID, paypal.RefundCaptureRequest{}); err != nil {
				return fmt.Errorf("paypal: refund capture %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

package payment

import (
	"context"
	"testing"

	"storefront-service/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(7500), minorUnits(decimal.RequireFromString("75")))
	assert.Equal(t, int64(300), minorUnits(decimal.RequireFromString("2.9985")))
	assert.True(t, fromMinorUnits(1999).Equal(decimal.RequireFromString("19.99")))
}

func TestProvidersNeedCredentials(t *testing.T) {
	assert.Nil(t, NewStripe(&config.StripeConfig{}))
	assert.NotNil(t, NewStripe(&config.StripeConfig{SecretKey: "sk_test_123"}))

	pp, err := NewPayPal(&config.PayPalConfig{})
	require.NoError(t, err)
	assert.Nil(t, pp)
}

func TestFakeRoundTrip(t *testing.T) {
	f := NewFake(ProviderStripe)
	ctx := context.Background()

	s, err := f.CreatePayment(ctx, Intent{Amount: decimal.RequireFromString("75.00"), Currency: "EUR", UserID: 3})
	require.NoError(t, err)

	c, err := f.Capture(ctx, s.PaymentID)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("75")))
	assert.Equal(t, uint(3), c.UserID)

	require.NoError(t, f.Refund(ctx, s.PaymentID))
	assert.Equal(t, []string{s.PaymentID}, f.Refunded())
}

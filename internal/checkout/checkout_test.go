package checkout

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/discount"
	"storefront-service/internal/inventory"
	"storefront-service/internal/model"
	"storefront-service/internal/payment"
	"storefront-service/internal/testutil"
	"storefront-service/pkg/mailer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *Service
	stripe   *payment.Fake
	mail     *mailer.Recorder
	discount *discount.Service
	buyer    *model.User
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	stripe := payment.NewFake(payment.ProviderStripe)
	mail := &mailer.Recorder{}
	disc := discount.NewService(db)
	svc := NewService(db, inventory.NewService(db), disc,
		map[string]payment.Provider{payment.ProviderStripe: stripe}, mail, "EUR", "https://shop.example")
	return &fixture{
		db:       db,
		svc:      svc,
		stripe:   stripe,
		mail:     mail,
		discount: disc,
		buyer:    testutil.CreateUser(t, db, "buyer@example.com", model.RoleUser),
	}
}

func (f *fixture) prepare(t *testing.T, req PrepareRequest) *PrepareResult {
	res, err := f.svc.Prepare(context.Background(), f.buyer.ID, payment.ProviderStripe, req)
	require.NoError(t, err)
	return res
}

func (f *fixture) orderCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func TestCompleteCreatesOrderWithDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testutil.CreateProduct(t, f.db, "case", "50.00", testutil.IntPtr(5))
	_, err := f.discount.Create(ctx, discount.CreateInput{Code: "SUMMER25", Percentage: 25}, model.SourceAdmin)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&model.CartItem{UserID: f.buyer.ID, ProductID: p.ID, Quantity: 2}).Error)

	items := []LineItem{{ProductID: p.ID, Quantity: 2, Color: "black"}}
	prep := f.prepare(t, PrepareRequest{Items: items, DiscountCode: "summer25"})
	assert.True(t, prep.Subtotal.Equal(decimal.RequireFromString("100")))
	assert.True(t, prep.Discount.Equal(decimal.RequireFromString("25")))
	assert.True(t, prep.Total.Equal(decimal.RequireFromString("75")))
	assert.NotEmpty(t, prep.ClientSecret)

	res, err := f.svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, CompleteRequest{
		PaymentID:       prep.PaymentID,
		PaymentType:     model.PaymentApplePay,
		Items:           items,
		DiscountCode:    "SUMMER25",
		ShippingAddress: &AddressInput{FullName: "Ana", Line1: "1 Vitosha", City: "Sofia", Country: "BG"},
		Locale:          "en",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^SO-\d{8}-[0-9A-F]{8}$`, res.OrderNumber)

	var order model.Order
	require.NoError(t, f.db.Preload("Items").Preload("StatusHistory").First(&order, res.OrderID).Error)
	assert.Equal(t, model.StatusProcessing, order.Status)
	assert.Equal(t, model.PaymentApplePay, order.PaymentType)
	assert.True(t, order.Total.Equal(order.Subtotal.Sub(order.Discount)))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("75")))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "black", order.Items[0].Color)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, f.buyer.ID, order.StatusHistory[0].ChangedBy)
	require.NotNil(t, order.ShippingAddressID)
	require.NotNil(t, order.DiscountCodeID)

	var product model.Product
	require.NoError(t, f.db.First(&product, p.ID).Error)
	assert.Equal(t, 3, *product.Stock)

	var dc model.DiscountCode
	require.NoError(t, f.db.First(&dc, *order.DiscountCodeID).Error)
	assert.Equal(t, 1, dc.CurrentUses)

	var cartRows int64
	require.NoError(t, f.db.Model(&model.CartItem{}).Where("user_id = ?", f.buyer.ID).Count(&cartRows).Error)
	assert.Zero(t, cartRows)

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "buyer@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, order.Number)
}

func TestCompleteIsIdempotentPerPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, "cable", "10.00", testutil.IntPtr(5))

	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})
	req := CompleteRequest{PaymentID: prep.PaymentID, Items: items}

	first, err := f.svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, req)
	require.NoError(t, err)
	second, err := f.svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, req)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, int64(1), f.orderCount(t))
	assert.Equal(t, 1, f.stripe.Captures())

	var product model.Product
	require.NoError(t, f.db.First(&product, p.ID).Error)
	assert.Equal(t, 4, *product.Stock, "stock is decremented once")

	other := testutil.CreateUser(t, f.db, "other@example.com", model.RoleUser)
	_, err = f.svc.Complete(ctx, other.ID, payment.ProviderStripe, req)
	assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
}

func TestPrepareRejectsOutOfStockWithoutOrder(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "sold-out", "10.00", testutil.IntPtr(0))
	ok := testutil.CreateProduct(t, f.db, "fine", "10.00", testutil.IntPtr(3))

	_, err := f.svc.Prepare(context.Background(), f.buyer.ID, payment.ProviderStripe, PrepareRequest{
		Items: []LineItem{{ProductID: p.ID, Quantity: 1}, {ProductID: ok.ID, Quantity: 4}},
	})
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.OutOfStock, appErr.Kind)
	assert.Len(t, appErr.StockErrors, 2)
	assert.Equal(t, p.ID, appErr.StockErrors[0].ProductID)
	assert.Zero(t, f.orderCount(t))
}

func TestCompleteRefundsWhenStockLostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, "last-one", "30.00", testutil.IntPtr(1))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}

	prep := f.prepare(t, PrepareRequest{Items: items})

	// another buyer takes the last unit between prepare and complete
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"stock": 0, "in_stock": false}).Error)

	_, err := f.svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	require.Error(t, err)
	assert.Equal(t, apperror.OutOfStock, apperror.KindOf(err))
	assert.Equal(t, []string{prep.PaymentID}, f.stripe.Refunded())
	assert.Zero(t, f.orderCount(t))
}

func TestCompleteRefundsWhenDiscountExhaustedAtCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, "charger", "40.00", nil)
	dc, err := f.discount.Create(ctx, discount.CreateInput{Code: "ONCE", Percentage: 10, MaxUses: testutil.IntPtr(1)}, model.SourceAdmin)
	require.NoError(t, err)

	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items, DiscountCode: "ONCE"})
	require.NoError(t, f.db.Model(dc).UpdateColumn("current_uses", 1).Error)

	_, err = f.svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items, DiscountCode: "ONCE"})
	assert.Equal(t, apperror.UsageExceeded, apperror.KindOf(err))
	assert.Len(t, f.stripe.Refunded(), 1)
	assert.Zero(t, f.orderCount(t))
}

func TestCompleteRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "glass", "12.00", testutil.IntPtr(3))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})

	// the buyer adds a second unit after paying for one
	short := decimal.RequireFromString("12.00")
	f.stripe.CaptureAmount = &short
	_, err := f.svc.Complete(context.Background(), f.buyer.ID, payment.ProviderStripe,
		CompleteRequest{PaymentID: prep.PaymentID, Items: []LineItem{{ProductID: p.ID, Quantity: 2}}})

	assert.Equal(t, apperror.PaymentFailed, apperror.KindOf(err))
	assert.Len(t, f.stripe.Refunded(), 1)
	assert.Zero(t, f.orderCount(t))
}

// racingProvider completes the same payment from a second request while the first
// one is inside Capture.
type racingProvider struct {
	*payment.Fake
	raced  bool
	during func()
}

func (p *racingProvider) Capture(ctx context.Context, paymentID string) (*payment.Capture, error) {
	if !p.raced {
		p.raced = true
		p.during()
	}
	return p.Fake.Capture(ctx, paymentID)
}

func TestConcurrentCompleteDoesNotRefundCommittedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, "single", "25.00", testutil.IntPtr(1))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})
	req := CompleteRequest{PaymentID: prep.PaymentID, Items: items}

	racing := &racingProvider{Fake: f.stripe}
	svc := NewService(f.db, inventory.NewService(f.db), f.discount,
		map[string]payment.Provider{payment.ProviderStripe: racing}, f.mail, "EUR", "https://shop.example")

	var inner *CompleteResult
	racing.during = func() {
		var err error
		inner, err = svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, req)
		require.NoError(t, err)
	}

	outer, err := svc.Complete(ctx, f.buyer.ID, payment.ProviderStripe, req)
	require.NoError(t, err)
	require.NotNil(t, inner)
	assert.Equal(t, inner.OrderID, outer.OrderID)
	assert.Empty(t, f.stripe.Refunded(), "the committed order keeps its payment")
	assert.Equal(t, int64(1), f.orderCount(t))

	var product model.Product
	require.NoError(t, f.db.First(&product, p.ID).Error)
	assert.Equal(t, 0, *product.Stock)
}

func TestCompleteRejectsPaymentOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "dock", "15.00", testutil.IntPtr(3))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})

	other := testutil.CreateUser(t, f.db, "thief@example.com", model.RoleUser)
	_, err := f.svc.Complete(context.Background(), other.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	assert.Equal(t, apperror.Forbidden, apperror.KindOf(err))
	assert.Empty(t, f.stripe.Refunded(), "the owner's payment is left alone")
	assert.Zero(t, f.orderCount(t))

	res, err := f.svc.Complete(context.Background(), f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)
}

func TestCompleteRefundsCurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "hub", "20.00", testutil.IntPtr(3))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})

	f.stripe.CaptureCurrency = "USD"
	_, err := f.svc.Complete(context.Background(), f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	assert.Equal(t, apperror.PaymentFailed, apperror.KindOf(err))
	assert.Equal(t, []string{prep.PaymentID}, f.stripe.Refunded())
	assert.Zero(t, f.orderCount(t))
}

func TestCompleteCaptureFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "stand", "8.00", testutil.IntPtr(3))
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})

	f.stripe.CaptureErr = errors.New("card declined")
	_, err := f.svc.Complete(context.Background(), f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	assert.Equal(t, apperror.PaymentFailed, apperror.KindOf(err))
	assert.Empty(t, f.stripe.Refunded())
	assert.Zero(t, f.orderCount(t))
}

func TestEmailFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = errors.New("smtp down")
	p := testutil.CreateProduct(t, f.db, "mount", "8.00", nil)
	items := []LineItem{{ProductID: p.ID, Quantity: 1}}
	prep := f.prepare(t, PrepareRequest{Items: items})

	_, err := f.svc.Complete(context.Background(), f.buyer.ID, payment.ProviderStripe, CompleteRequest{PaymentID: prep.PaymentID, Items: items})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.orderCount(t))
}

func TestPrepareRequiresUserAndProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Prepare(context.Background(), 0, payment.ProviderStripe, PrepareRequest{})
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))

	_, err = f.svc.Prepare(context.Background(), f.buyer.ID, payment.ProviderPayPal, PrepareRequest{})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

// Package checkout turns a buyer's cart into a paid order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/discount"
	"storefront-service/internal/inventory"
	"storefront-service/internal/model"
	"storefront-service/internal/payment"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/mailer"
	"storefront-service/prometheus"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LineItem is one requested cart line.
type LineItem struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
	Color     string `json:"color" validate:"max=64"`
	Size      string `json:"size" validate:"max=64"`
}

// AddressInput is the shipping address captured at checkout.
type AddressInput struct {
	FullName   string `json:"fullName" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"max=64"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postalCode" validate:"max=32"`
	Country    string `json:"country" validate:"required,max=64"`
}

// PrepareRequest starts a payment for a cart.
type PrepareRequest struct {
	Items        []LineItem `json:"items" validate:"required,min=1,dive"`
	DiscountCode string     `json:"discountCode" validate:"max=64"`
}

// PrepareResult carries the provider session and the amounts it was created for.
type PrepareResult struct {
	Provider string          `json:"provider"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	payment.Session
}

// CompleteRequest finalizes a payment the buyer has approved.
type CompleteRequest struct {
	PaymentID       string            `json:"paymentId" validate:"required,max=128"`
	PaymentType     model.PaymentType `json:"paymentType"`
	Items           []LineItem        `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *AddressInput     `json:"shippingAddress"`
	DiscountCode    string            `json:"discountCode" validate:"max=64"`
	Locale          string            `json:"locale"`
}

// CompleteResult identifies the created order.
type CompleteResult struct {
	OrderID     uint   `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// Quote is a priced cart.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	DiscountCode *model.DiscountCode
	Products     map[uint]*model.Product
}

// Service orchestrates stock, discounts, payment providers and order creation.
type Service struct {
	db        *gorm.DB
	inventory *inventory.Service
	discounts *discount.Service
	providers map[string]payment.Provider
	mail      mailer.Sender
	currency  string
	publicURL string
	log       *zap.Logger
}

func NewService(db *gorm.DB, inv *inventory.Service, discounts *discount.Service, providers map[string]payment.Provider,
	mail mailer.Sender, currency, publicURL string) *Service {
	return &Service{
		db:        db,
		inventory: inv,
		discounts: discounts,
		providers: providers,
		mail:      mail,
		currency:  currency,
		publicURL: publicURL,
		log:       logger.GetLogger(),
	}
}

func (s *Service) provider(name string) (payment.Provider, error) {
	p, ok := s.providers[name]
	if !ok || p == nil {
		return nil, apperror.Newf(apperror.Validation, "payment provider %s is not available", name)
	}
	return p, nil
}

func lines(items []LineItem) []inventory.Line {
	out := make([]inventory.Line, len(items))
	for i, it := range items {
		out[i] = inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

// QuoteCart verifies stock and prices the cart from current catalog prices.
// The discount code, when present, must be usable right now.
func (s *Service) QuoteCart(ctx context.Context, items []LineItem, code string) (*Quote, error) {
	if len(items) == 0 {
		return nil, apperror.New(apperror.Validation, "cart is empty")
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, apperror.New(apperror.Validation, "quantity must be at least 1")
		}
	}

	stockErrors, products, err := s.inventory.PreCheck(ctx, lines(items))
	if err != nil {
		return nil, err
	}
	if len(stockErrors) > 0 {
		return nil, apperror.StockUnavailable(stockErrors)
	}

	q := &Quote{Subtotal: decimal.Zero, Discount: decimal.Zero, Products: products}
	for _, it := range items {
		q.Subtotal = q.Subtotal.Add(products[it.ProductID].Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if strings.TrimSpace(code) != "" {
		dc, err := s.discounts.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		q.DiscountCode = dc
		q.Discount = discount.Amount(q.Subtotal, dc.Percentage)
	}
	q.Total = q.Subtotal.Sub(q.Discount)
	return q, nil
}

// Prepare prices the cart and opens a provider payment for the total. Nothing is written.
func (s *Service) Prepare(ctx context.Context, userID uint, providerName string, req PrepareRequest) (*PrepareResult, error) {
	if userID == 0 {
		return nil, apperror.New(apperror.Unauthorized, "sign in to check out")
	}
	provider, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	q, err := s.QuoteCart(ctx, req.Items, req.DiscountCode)
	if err != nil {
		prometheus.RecordCheckout(providerName, "rejected")
		return nil, err
	}
	if !q.Total.IsPositive() {
		return nil, apperror.New(apperror.Validation, "order total must be greater than zero")
	}

	code := ""
	if q.DiscountCode != nil {
		code = q.DiscountCode.Code
	}
	session, err := provider.CreatePayment(ctx, payment.Intent{
		Amount:       q.Total.Round(2),
		Currency:     s.currency,
		UserID:       userID,
		DiscountCode: code,
		Description:  "Storefront order",
		ReturnURL:    s.publicURL + "/checkout/success",
		CancelURL:    s.publicURL + "/checkout",
	})
	if err != nil {
		prometheus.RecordCheckout(providerName, "failed")
		return nil, apperror.Wrap(apperror.PaymentFailed, "payment could not be started, please try again", err)
	}

	prometheus.RecordCheckout(providerName, "prepared")
	return &PrepareResult{
		Provider: providerName,
		Subtotal: q.Subtotal,
		Discount: q.Discount,
		Total:    q.Total,
		Currency: s.currency,
		Session:  *session,
	}, nil
}

// Complete captures the payment and records the order. Calling it again for the same
// payment returns the existing order. If the order cannot be committed after the money
// was captured, the payment is refunded.
func (s *Service) Complete(ctx context.Context, userID uint, providerName string, req CompleteRequest) (*CompleteResult, error) {
	if userID == 0 {
		return nil, apperror.New(apperror.Unauthorized, "sign in to check out")
	}
	provider, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	if existing, err := s.findByPayment(ctx, req.PaymentID); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.UserID != userID {
			return nil, apperror.New(apperror.Conflict, "payment already belongs to another order")
		}
		return &CompleteResult{OrderID: existing.ID, OrderNumber: existing.Number}, nil
	}

	captured, err := provider.Capture(ctx, req.PaymentID)
	if err != nil {
		prometheus.RecordCheckout(providerName, "failed")
		s.log.Warn("Payment capture failed", zap.String("provider", providerName), zap.String("payment_id", req.PaymentID), zap.Error(err))
		return nil, apperror.Wrap(apperror.PaymentFailed, "payment was not completed, please try again", err)
	}

	// a payment created for another account is never recorded or refunded here
	if captured.UserID != 0 && captured.UserID != userID {
		prometheus.RecordCheckout(providerName, "failed")
		s.log.Warn("Payment belongs to another user",
			zap.String("provider", providerName),
			zap.String("payment_id", req.PaymentID),
			zap.Uint("user_id", userID),
			zap.Uint("payment_user_id", captured.UserID))
		return nil, apperror.New(apperror.Forbidden, "payment does not belong to this account")
	}

	order, err := s.commit(ctx, userID, providerName, req, captured)
	if err != nil {
		// a concurrent Complete for the same payment may have committed first; its
		// order keeps the money, so only refund once no order holds the payment
		existing, findErr := s.findByPayment(context.WithoutCancel(ctx), req.PaymentID)
		switch {
		case findErr != nil:
			prometheus.RecordCheckout(providerName, "refund_failed")
			s.log.Error("Order lookup failed after commit error, manual action required",
				zap.String("provider", providerName),
				zap.String("payment_id", req.PaymentID),
				zap.NamedError("commit_error", err),
				zap.Error(findErr))
			return nil, apperror.Wrap(apperror.Internal, "failed to record order", err)
		case existing != nil && existing.UserID == userID:
			return &CompleteResult{OrderID: existing.ID, OrderNumber: existing.Number}, nil
		case existing != nil:
			return nil, apperror.New(apperror.Conflict, "payment already belongs to another order")
		}
		s.refund(ctx, provider, req.PaymentID, err)
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to record order", err)
	}

	prometheus.RecordCheckout(providerName, "completed")
	s.log.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.Uint("user_id", userID),
		zap.String("provider", providerName),
		zap.String("total", order.Total.StringFixed(2)))

	s.sendConfirmation(ctx, userID, order, req.Locale)
	return &CompleteResult{OrderID: order.ID, OrderNumber: order.Number}, nil
}

func (s *Service) commit(ctx context.Context, userID uint, providerName string, req CompleteRequest, captured *payment.Capture) (*model.Order, error) {
	defer prometheus.TrackDBOperation("checkout")(time.Now())

	q, err := s.QuoteCart(ctx, req.Items, req.DiscountCode)
	if err != nil {
		return nil, err
	}
	if captured.Currency != "" && !strings.EqualFold(captured.Currency, s.currency) {
		return nil, apperror.Newf(apperror.PaymentFailed, "payment currency %s does not match store currency %s", captured.Currency, s.currency)
	}
	if !captured.Amount.Equal(q.Total.Round(2)) {
		return nil, apperror.New(apperror.PaymentFailed,
			fmt.Sprintf("captured amount %s does not match order total %s", captured.Amount.StringFixed(2), q.Total.StringFixed(2)))
	}

	order := &model.Order{
		Number:      NewOrderNumber(time.Now()),
		UserID:      userID,
		Subtotal:    q.Subtotal,
		Discount:    q.Discount,
		Total:       q.Total,
		Status:      model.StatusProcessing,
		PaymentType: paymentType(providerName, req.PaymentType),
		PaymentID:   req.PaymentID,
		StatusHistory: []model.OrderStatusHistory{{
			Status:    model.StatusProcessing,
			Notes:     "payment captured via " + providerName,
			ChangedBy: userID,
		}},
	}
	for _, it := range req.Items {
		p := q.Products[it.ProductID]
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   it.ProductID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price,
			Color:       validation.Sanitize(it.Color),
			Size:        validation.Sanitize(it.Size),
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.inventory.Decrement(ctx, tx, lines(req.Items)); err != nil {
			return err
		}
		if q.DiscountCode != nil {
			if err := s.discounts.ApplyTx(ctx, tx, q.DiscountCode.ID); err != nil {
				return err
			}
			order.DiscountCodeID = &q.DiscountCode.ID
		}
		if a := req.ShippingAddress; a != nil {
			addr := &model.Address{
				UserID:     userID,
				FullName:   validation.Sanitize(a.FullName),
				Phone:      validation.Sanitize(a.Phone),
				Line1:      validation.Sanitize(a.Line1),
				Line2:      validation.Sanitize(a.Line2),
				City:       validation.Sanitize(a.City),
				PostalCode: validation.Sanitize(a.PostalCode),
				Country:    validation.Sanitize(a.Country),
			}
			if err := tx.Create(addr).Error; err != nil {
				return err
			}
			order.ShippingAddressID = &addr.ID
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) refund(ctx context.Context, provider payment.Provider, paymentID string, cause error) {
	s.log.Warn("Refunding payment after failed order commit",
		zap.String("provider", provider.Name()),
		zap.String("payment_id", paymentID),
		zap.Error(cause))

	// the buyer's request may already be cancelled; the refund must still go out
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := provider.Refund(refundCtx, paymentID); err != nil {
		prometheus.RecordCheckout(provider.Name(), "refund_failed")
		s.log.Error("Refund failed, manual action required",
			zap.String("provider", provider.Name()),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return
	}
	prometheus.RecordCheckout(provider.Name(), "refunded")
}

func (s *Service) findByPayment(ctx context.Context, paymentID string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&order).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to look up order", err)
	}
	return &order, nil
}

func (s *Service) sendConfirmation(ctx context.Context, userID uint, order *model.Order, locale string) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, userID).Error; err != nil {
		s.log.Warn("Skipping order confirmation, buyer not found", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	type line struct {
		Quantity int
		Name     string
		Price    string
	}
	items := make([]line, len(order.Items))
	for i, it := range order.Items {
		items[i] = line{Quantity: it.Quantity, Name: it.ProductName, Price: it.LineTotal().StringFixed(2)}
	}

	msg, err := mailer.Render(mailer.TemplateOrderConfirmation, locale, user.Email, map[string]any{
		"Number":   order.Number,
		"Items":    items,
		"Total":    order.Total.StringFixed(2),
		"Currency": s.currency,
	})
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	prometheus.RecordEmail(mailer.TemplateOrderConfirmation, err)
	if err != nil {
		s.log.Error("Order confirmation email failed", zap.String("order_number", order.Number), zap.Error(err))
	}
}

func paymentType(providerName string, requested model.PaymentType) model.PaymentType {
	if providerName == payment.ProviderPayPal {
		return model.PaymentPayPal
	}
	if requested == model.PaymentApplePay {
		return model.PaymentApplePay
	}
	return model.PaymentStripe
}

// NewOrderNumber builds the public order reference, e.g. SO-20240131-1A2B3C4D.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SO-%s-%s", now.UTC().Format("20060102"), suffix)
}

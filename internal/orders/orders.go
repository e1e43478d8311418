// Package orders serves order reads and admin status changes.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/mailer"
	"storefront-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// transitions lists the statuses reachable from each status.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusPending:    {model.StatusProcessing, model.StatusCancelled},
	model.StatusProcessing: {model.StatusShipped, model.StatusCancelled},
	model.StatusShipped:    {model.StatusDelivered, model.StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatusRequest is the admin status change payload.
type UpdateStatusRequest struct {
	OrderID           uint       `json:"orderId" validate:"required"`
	Status            string     `json:"status" validate:"required"`
	Notes             string     `json:"notes" validate:"max=2000"`
	TrackingNumber    string     `json:"trackingNumber" validate:"max=128"`
	CourierService    string     `json:"courierService" validate:"max=128"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	Locale            string     `json:"locale"`
}

// ListFilter pages the admin order list.
type ListFilter struct {
	Status   string
	Page     int
	PageSize int
}

// Page is one page of orders.
type Page struct {
	Orders   []model.Order `json:"orders"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// Service owns order reads and transitions.
type Service struct {
	db   *gorm.DB
	mail mailer.Sender
	now  func() time.Time
	log  *zap.Logger
}

func NewService(db *gorm.DB, mail mailer.Sender) *Service {
	return &Service{db: db, mail: mail, now: time.Now, log: logger.GetLogger()}
}

func notFound() error {
	return apperror.New(apperror.NotFound, "order not found")
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("ShippingAddress").
		Preload("DiscountCode")
}

// UpdateStatus moves an order along the status graph and appends a history row.
func (s *Service) UpdateStatus(ctx context.Context, adminID uint, req UpdateStatusRequest) (*model.Order, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	to := model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !to.Valid() {
		return nil, apperror.Newf(apperror.InvalidStatus, "unknown status %q", req.Status)
	}

	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, req.OrderID).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound()
			}
			return err
		}
		from := order.Status
		if !CanTransition(from, to) {
			return apperror.Newf(apperror.InvalidStatus, "cannot move order from %s to %s", from, to)
		}

		now := s.now()
		notes := validation.Sanitize(req.Notes)
		updates := map[string]interface{}{"status": to}
		if req.TrackingNumber != "" {
			updates["tracking_number"] = validation.Sanitize(req.TrackingNumber)
		}
		if req.CourierService != "" {
			updates["courier_service"] = validation.Sanitize(req.CourierService)
		}
		if req.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *req.EstimatedDelivery
		}
		switch to {
		case model.StatusDelivered:
			updates["actual_delivery"] = now
		case model.StatusCancelled:
			updates["cancelled_at"] = now
			updates["cancel_reason"] = notes
		}

		// the status guard makes concurrent transitions from the same state mutually exclusive
		res := tx.Model(&model.Order{}).Where("id = ? AND status = ?", order.ID, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.InvalidStatus, "order status changed concurrently, reload and retry")
		}

		return tx.Create(&model.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    to,
			Notes:     notes,
			ChangedBy: adminID,
		}).Error
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to update order status", err)
	}

	prometheus.RecordStatusTransition(string(to))
	s.log.Info("Order status updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(to)),
		zap.Uint("admin_id", adminID))

	updated, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, req.Locale)
	return updated, nil
}

func (s *Service) notify(ctx context.Context, order *model.Order, locale string) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, order.UserID).Error; err != nil {
		s.log.Warn("Skipping status notification, customer not found", zap.Uint("order_id", order.ID), zap.Error(err))
		return
	}
	msg, err := mailer.Render(mailer.TemplateOrderStatus, locale, user.Email, map[string]any{
		"Number":         order.Number,
		"Status":         string(order.Status),
		"TrackingNumber": order.TrackingNumber,
		"Courier":        order.CourierService,
	})
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	prometheus.RecordEmail(mailer.TemplateOrderStatus, err)
	if err != nil {
		s.log.Error("Order status email failed", zap.Uint("order_id", order.ID), zap.Error(err))
	}
}

// ListForUser returns the buyer's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]model.Order, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var orders []model.Order
	if err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list orders", err)
	}
	return orders, nil
}

// GetForUser returns one of the buyer's orders with items and history.
func (s *Service) GetForUser(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var order model.Order
	err := withDetails(s.db.WithContext(ctx)).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound()
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load order", err)
	}
	return &order, nil
}

// Track looks an order up by its public number and the buyer's email.
func (s *Service) Track(ctx context.Context, number, email string) (*model.Order, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	number = strings.ToUpper(strings.TrimSpace(number))
	email = validation.NormalizeEmail(email)
	if number == "" || email == "" {
		return nil, apperror.New(apperror.Validation, "order number and email are required")
	}

	var order model.Order
	err := s.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Joins("JOIN users ON users.id = orders.user_id").
		Where("orders.number = ? AND users.email = ?", number, email).
		First(&order).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound()
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to track order", err)
	}
	return &order, nil
}

// List pages all orders for the back-office.
func (s *Service) List(ctx context.Context, f ListFilter) (*Page, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}

	q := s.db.WithContext(ctx).Model(&model.Order{})
	if f.Status != "" {
		status := model.OrderStatus(strings.ToUpper(f.Status))
		if !status.Valid() {
			return nil, apperror.Newf(apperror.InvalidStatus, "unknown status %q", f.Status)
		}
		q = q.Where("status = ?", status)
	}

	q = q.Session(&gorm.Session{})

	page := &Page{Page: f.Page, PageSize: f.PageSize}
	if err := q.Count(&page.Total).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to count orders", err)
	}
	if err := q.Preload("User").Preload("Items").Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&page.Orders).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list orders", err)
	}
	return page, nil
}

// Get returns any order with its details.
func (s *Service) Get(ctx context.Context, orderID uint) (*model.Order, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var order model.Order
	if err := withDetails(s.db.WithContext(ctx)).Preload("User").First(&order, orderID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound()
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load order", err)
	}
	return &order, nil
}

// Delete removes an order together with its items and history.
func (s *Service) Delete(ctx context.Context, orderID uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Order{}, orderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound()
		}
		return nil
	})
	var appErr *apperror.Error
	if err != nil && !errors.As(err, &appErr) {
		return apperror.Wrap(apperror.Internal, "failed to delete order", err)
	}
	return err
}

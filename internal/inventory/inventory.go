// Package inventory verifies and decrements product stock for checkout.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/pkg/database"
	"storefront-service/prometheus"

	"gorm.io/gorm"
)

// Line is a requested product quantity.
type Line struct {
	ProductID uint
	Quantity  int
}

// Service checks and mutates stock.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// aggregate sums quantities per product in ascending id order.
func aggregate(lines []Line) ([]uint, map[uint]int) {
	qty := make(map[uint]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}
	ids := make([]uint, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, qty
}

// PreCheck reports every line that cannot be fulfilled from current stock, along with
// the products it loaded. An empty error list means the order can proceed to payment.
func (s *Service) PreCheck(ctx context.Context, lines []Line) ([]model.StockError, map[uint]*model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	ids, qty := aggregate(lines)

	var products []model.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, nil, apperror.Wrap(apperror.Internal, "failed to load products", err)
	}
	byID := make(map[uint]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var stockErrors []model.StockError
	for _, id := range ids {
		if se := check(byID[id], id, qty[id]); se != nil {
			stockErrors = append(stockErrors, *se)
		}
	}
	if len(stockErrors) > 0 {
		prometheus.RecordStockErrors(len(stockErrors))
	}
	return stockErrors, byID, nil
}

func check(p *model.Product, id uint, requested int) *model.StockError {
	switch {
	case p == nil:
		return &model.StockError{ProductID: id, Requested: requested, Message: "product is no longer available"}
	case !p.InStock:
		zero := 0
		return &model.StockError{ProductID: id, Name: p.Name, Requested: requested, Available: &zero,
			Message: fmt.Sprintf("%s is out of stock", p.Name)}
	case p.Stock != nil && *p.Stock < requested:
		available := *p.Stock
		return &model.StockError{ProductID: id, Name: p.Name, Requested: requested, Available: &available,
			Message: fmt.Sprintf("only %d of %s left in stock", available, p.Name)}
	}
	return nil
}

// Decrement takes the requested quantities out of tracked stock inside tx. Each product
// is changed by one conditional update that only succeeds while enough stock remains, so
// stock never goes negative. Untracked products are left alone. Any line that lost a
// race fails the whole call with an itemized OutOfStock error.
func (s *Service) Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	ids, qty := aggregate(lines)
	tx = tx.WithContext(ctx)

	var stockErrors []model.StockError
	for _, id := range ids {
		q := qty[id]
		res := tx.Model(&model.Product{}).
			Where("id = ? AND stock IS NOT NULL AND stock >= ?", id, q).
			UpdateColumn("stock", gorm.Expr("stock - ?", q))
		if res.Error != nil {
			return apperror.Wrap(apperror.Internal, "failed to decrement stock", res.Error)
		}

		if res.RowsAffected == 0 {
			var p model.Product
			err := tx.Select("id", "name", "stock", "in_stock").First(&p, id).Error
			if err != nil && !database.IsNotFound(err) {
				return apperror.Wrap(apperror.Internal, "failed to load product", err)
			}
			if err == nil && p.Stock == nil {
				continue
			}
			var found *model.Product
			if err == nil {
				found = &p
			}
			if se := check(found, id, q); se != nil {
				stockErrors = append(stockErrors, *se)
			} else {
				stockErrors = append(stockErrors, model.StockError{ProductID: id, Name: p.Name, Requested: q, Message: "stock changed during checkout"})
			}
			continue
		}

		if err := tx.Model(&model.Product{}).
			Where("id = ? AND stock IS NOT NULL AND stock <= 0", id).
			UpdateColumn("in_stock", false).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to update stock flag", err)
		}
	}

	if len(stockErrors) > 0 {
		prometheus.RecordStockErrors(len(stockErrors))
		return apperror.StockUnavailable(stockErrors)
	}
	return nil
}

// Package cart stores each signed-in buyer's cart lines.
package cart

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/prometheus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// Item is a cart line as sent by the client.
type Item struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
	Color     string `json:"color" validate:"max=64"`
	Size      string `json:"size" validate:"max=64"`
}

// Service manages server-side cart rows.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) productExists(ctx context.Context, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperror.Wrap(apperror.Internal, "failed to look up product", err)
	}
	if n == 0 {
		return apperror.New(apperror.NotFound, "product not found")
	}
	return nil
}

// List returns the user's cart lines with their products.
func (s *Service) List(ctx context.Context, userID uint) ([]model.CartItem, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var items []model.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load cart", err)
	}
	return items, nil
}

// Add upserts a line keyed by product, color and size. An existing line takes the new quantity.
func (s *Service) Add(ctx context.Context, userID uint, in Item) (*model.CartItem, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	if in.Quantity < 1 || in.Quantity > MaxQuantity {
		return nil, apperror.New(apperror.Validation, "quantity must be between 1 and 99")
	}
	if err := s.productExists(ctx, in.ProductID); err != nil {
		return nil, err
	}

	item := &model.CartItem{
		UserID:    userID,
		ProductID: in.ProductID,
		Color:     validation.Sanitize(in.Color),
		Size:      validation.Sanitize(in.Size),
		Quantity:  in.Quantity,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "color"}, {Name: "size"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to add to cart", err)
	}

	var stored model.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ? AND product_id = ? AND color = ? AND size = ?", userID, item.ProductID, item.Color, item.Size).
		First(&stored).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to reload cart line", err)
	}
	return &stored, nil
}

// UpdateQuantity sets the quantity of one of the user's lines.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*model.CartItem, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	if quantity < 1 || quantity > MaxQuantity {
		return nil, apperror.New(apperror.Validation, "quantity must be between 1 and 99")
	}
	res := s.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to update cart line", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.New(apperror.NotFound, "cart item not found")
	}

	var item model.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").First(&item, itemID).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to reload cart line", err)
	}
	return &item, nil
}

// Remove deletes one of the user's lines.
func (s *Service) Remove(ctx context.Context, userID, itemID uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&model.CartItem{})
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to remove cart line", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "cart item not found")
	}
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		return apperror.Wrap(apperror.Internal, "failed to clear cart", err)
	}
	return nil
}

func toRows(userID uint, items []Item) []model.CartItem {
	rows := make([]model.CartItem, 0, len(items))
	for _, in := range items {
		if in.ProductID == 0 || in.Quantity < 1 {
			continue
		}
		if in.Quantity > MaxQuantity {
			in.Quantity = MaxQuantity
		}
		rows = append(rows, model.CartItem{
			UserID:    userID,
			ProductID: in.ProductID,
			Color:     validation.Sanitize(in.Color),
			Size:      validation.Sanitize(in.Size),
			Quantity:  in.Quantity,
		})
	}
	return rows
}

// dedupe keeps the last row per variant, in first-seen order.
func dedupe(rows []model.CartItem) []model.CartItem {
	type key struct {
		productID   uint
		color, size string
	}
	index := make(map[key]int, len(rows))
	out := make([]model.CartItem, 0, len(rows))
	for _, r := range rows {
		k := key{r.ProductID, r.Color, r.Size}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// knownOnly drops rows whose product does not exist.
func (s *Service) knownOnly(ctx context.Context, db *gorm.DB, rows []model.CartItem) ([]model.CartItem, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	var existing []uint
	if err := db.WithContext(ctx).Model(&model.Product{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up products", err)
	}
	known := make(map[uint]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	valid := rows[:0]
	for _, r := range rows {
		if known[r.ProductID] {
			valid = append(valid, r)
		}
	}
	return valid, nil
}

// Replace makes the server cart exactly items. Later duplicates of a variant win.
func (s *Service) Replace(ctx context.Context, userID uint, items []Item) ([]model.CartItem, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.knownOnly(ctx, tx, toRows(userID, items))
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		rows = dedupe(rows)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to replace cart", err)
	}
	return s.List(ctx, userID)
}

// Merge unions client-held lines into the server cart. Lines already on the server win;
// nothing is removed. Merging the same set twice changes nothing.
func (s *Service) Merge(ctx context.Context, userID uint, items []Item) ([]model.CartItem, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	rows, err := s.knownOnly(ctx, s.db, toRows(userID, items))
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			if !database.IsDuplicate(err) {
				return nil, apperror.Wrap(apperror.Internal, "failed to merge cart", err)
			}
		}
	}
	return s.List(ctx, userID)
}

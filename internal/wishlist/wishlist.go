// Package wishlist stores products a buyer saved for later.
package wishlist

import (
	"context"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/prometheus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, userID uint) ([]model.WishlistItem, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var items []model.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Product").Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load wishlist", err)
	}
	return items, nil
}

// Add saves a product. Adding one that is already saved returns the existing entry.
func (s *Service) Add(ctx context.Context, userID, productID uint) (*model.WishlistItem, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up product", err)
	}
	if n == 0 {
		return nil, apperror.New(apperror.NotFound, "product not found")
	}

	item := &model.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to add to wishlist", err)
	}

	var stored model.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ? AND product_id = ?", userID, productID).First(&stored).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to reload wishlist entry", err)
	}
	return &stored, nil
}

// Remove deletes the saved product.
func (s *Service) Remove(ctx context.Context, userID, productID uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	res := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&model.WishlistItem{})
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to remove from wishlist", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "product is not in the wishlist")
	}
	return nil
}

// Merge adds every known product in productIDs and returns the full wishlist.
func (s *Service) Merge(ctx context.Context, userID uint, productIDs []uint) ([]model.WishlistItem, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	if len(productIDs) > 0 {
		var existing []uint
		if err := s.db.WithContext(ctx).Model(&model.Product{}).Where("id IN ?", productIDs).Pluck("id", &existing).Error; err != nil {
			return nil, apperror.Wrap(apperror.Internal, "failed to look up products", err)
		}
		rows := make([]model.WishlistItem, 0, len(existing))
		for _, id := range existing {
			rows = append(rows, model.WishlistItem{UserID: userID, ProductID: id})
		}
		if len(rows) > 0 {
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return nil, apperror.Wrap(apperror.Internal, "failed to merge wishlist", err)
			}
		}
	}
	return s.List(ctx, userID)
}

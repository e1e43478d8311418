// Package reviews stores one rating per user and product.
package reviews

import (
	"context"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/prometheus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Input is a rating with an optional comment.
type Input struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Summary is a product's reviews with their average rating.
type Summary struct {
	Reviews []model.Review `json:"reviews"`
	Count   int            `json:"count"`
	Average float64        `json:"average"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ForProduct lists reviews newest first.
func (s *Service) ForProduct(ctx context.Context, productID uint) (*Summary, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var list []model.Review
	err := s.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").Find(&list).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load reviews", err)
	}

	out := &Summary{Reviews: list, Count: len(list)}
	if len(list) > 0 {
		total := 0
		for _, r := range list {
			total += r.Rating
		}
		out.Average = float64(total) / float64(len(list))
	}
	return out, nil
}

// Upsert creates the user's review of a product or replaces it.
func (s *Service) Upsert(ctx context.Context, userID, productID uint, in Input) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.New(apperror.Validation, "rating must be between 1 and 5")
	}

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&model.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up product", err)
	}
	if n == 0 {
		return nil, apperror.New(apperror.NotFound, "product not found")
	}

	review := &model.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Comment:   validation.Sanitize(in.Comment),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(review).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to save review", err)
	}

	var saved model.Review
	if err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&saved).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load review", err)
	}
	return &saved, nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Review{}, id)
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "review not found")
	}
	return nil
}

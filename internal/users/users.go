// Package users is the admin view of accounts.
package users

import (
	"context"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: logger.GetLogger().Named("users")}
}

// List returns every account, newest first.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list users", err)
	}
	return out, nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, actorID, userID uint, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.Newf(apperror.Validation, "unknown role %q", role)
	}
	if actorID == userID && role != model.RoleAdmin {
		return nil, apperror.New(apperror.Forbidden, "you cannot remove your own admin role")
	}

	var user model.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to update role", err)
	}
	user.Role = role
	s.log.Info("User role changed",
		zap.Uint("user_id", userID),
		zap.Uint("changed_by", actorID),
		zap.String("role", string(role)))
	return &user, nil
}

// Delete soft-deletes an account and drops its cart and wishlist. Orders are kept.
func (s *Service) Delete(ctx context.Context, actorID, userID uint) error {
	if actorID == userID {
		return apperror.New(apperror.Forbidden, "you cannot delete your own account")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.User{}, userID)
		if res.Error != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete user", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.NotFound, "user not found")
		}
		for _, m := range []interface{}{&model.CartItem{}, &model.WishlistItem{}} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return apperror.Wrap(apperror.Internal, "failed to delete user", err)
			}
		}
		return nil
	})
}

// CreateAdmin creates a verified admin account, or promotes and resets the password
// of an existing one with the same email.
func (s *Service) CreateAdmin(ctx context.Context, email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.New(apperror.Validation, "email is required")
	}
	if len(password) < 8 {
		return nil, apperror.New(apperror.Validation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}
	hashed := string(hash)
	now := time.Now()

	var user model.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.Role = model.RoleAdmin
		user.PasswordHash = &hashed
		if user.EmailVerified == nil {
			user.EmailVerified = &now
		}
		err = s.db.WithContext(ctx).Save(&user).Error
	case database.IsNotFound(err):
		user = model.User{Email: email, Name: email, Role: model.RoleAdmin, PasswordHash: &hashed, EmailVerified: &now}
		err = s.db.WithContext(ctx).Create(&user).Error
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to save admin", err)
	}

	s.log.Info("Admin account ready", zap.Uint("user_id", user.ID), zap.String("email", email))
	return &user, nil
}

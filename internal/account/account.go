// Package account implements registration, email verification, login and password resets.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/jwtutil"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/mailer"
	"storefront-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	VerifyTokenTTL = 24 * time.Hour
	ResetTokenTTL  = time.Hour
	tokenBytes     = 32
)

// RegisterRequest creates a new USER account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=255"`
	Locale   string `json:"locale"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// Session is a signed-in user and the token that identifies them.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Service owns the user table and verification tokens.
type Service struct {
	db        *gorm.DB
	jwt       *jwtutil.JWTUtil
	mail      mailer.Sender
	publicURL string
	log       *zap.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, jwt *jwtutil.JWTUtil, mail mailer.Sender, publicURL string) *Service {
	return &Service{
		db:        db,
		jwt:       jwt,
		mail:      mail,
		publicURL: publicURL,
		log:       logger.GetLogger().Named("account"),
		now:       time.Now,
	}
}

// Register creates an unverified account and mails a verification link.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := validation.NormalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		prometheus.RecordAuthError("password_hash_failed")
		return nil, apperror.Wrap(apperror.Internal, "registration failed", err)
	}
	hashed := string(hash)

	user := &model.User{
		Email:        email,
		Name:         validation.Sanitize(req.Name),
		PasswordHash: &hashed,
		Role:         model.RoleUser,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsDuplicate(err) {
			prometheus.RecordAuthError("email_already_exists")
			return nil, apperror.New(apperror.Conflict, "email already registered")
		}
		return nil, apperror.Wrap(apperror.Internal, "registration failed", err)
	}

	s.sendVerification(ctx, user, req.Locale)
	s.log.Info("User registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := validation.NormalizeEmail(req.Email)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if database.IsNotFound(err) {
		prometheus.RecordAuthError("user_not_found")
		return nil, apperror.New(apperror.Unauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "login failed", err)
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		prometheus.RecordAuthError("invalid_password")
		return nil, apperror.New(apperror.Unauthorized, "invalid credentials")
	}
	if user.EmailVerified == nil {
		prometheus.RecordAuthError("email_not_verified")
		return nil, apperror.New(apperror.Forbidden, "email address is not verified")
	}

	token, expires, err := s.jwt.GenerateToken(user.Email, user.ID, string(user.Role), req.RememberMe)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return nil, apperror.Wrap(apperror.Internal, "token error", err)
	}

	s.log.Info("User logged in", zap.Uint("user_id", user.ID), zap.Bool("remember_me", req.RememberMe))
	return &Session{Token: token, ExpiresAt: expires, User: &user}, nil
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.Unauthorized, "account no longer exists")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load account", err)
	}
	return &user, nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	vt, err := s.consume(ctx, token, model.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	now := s.now()
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", vt.Identifier).Update("email_verified", &now)
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to verify email", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "account not found")
	}
	return nil
}

// ResendVerification mails a fresh link for unverified accounts. Unknown or verified
// addresses are ignored so the response does not reveal which accounts exist.
func (s *Service) ResendVerification(ctx context.Context, email, locale string) error {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", validation.NormalizeEmail(email)).First(&user).Error
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apperror.Wrap(apperror.Internal, "failed to load account", err)
	}
	if user.EmailVerified != nil {
		return nil
	}
	s.sendVerification(ctx, &user, locale)
	return nil
}

// ForgotPassword mails a reset link when the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email, locale string) error {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", validation.NormalizeEmail(email)).First(&user).Error
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apperror.Wrap(apperror.Internal, "failed to load account", err)
	}

	token, err := s.issue(ctx, user.Email, model.PurposeResetPassword, ResetTokenTTL)
	if err != nil {
		return err
	}
	s.send(ctx, mailer.TemplateResetPassword, locale, user.Email, map[string]any{
		"Name": user.Name,
		"Link": fmt.Sprintf("%s/reset-password?token=%s", s.publicURL, token),
	})
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 8 {
		return apperror.New(apperror.Validation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}

	vt, err := s.consume(ctx, token, model.PurposeResetPassword)
	if err != nil {
		return err
	}
	// a reset link proves ownership of the address as well
	now := s.now()
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", vt.Identifier).Updates(map[string]interface{}{
		"password_hash":  string(hash),
		"email_verified": gorm.Expr("COALESCE(email_verified, ?)", now),
	})
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to reset password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "account not found")
	}
	return nil
}

// ChangePassword replaces the password of a signed-in user after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < 8 {
		return apperror.New(apperror.Validation, "password must be at least 8 characters")
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(current)) != nil {
		prometheus.RecordAuthError("invalid_password")
		return apperror.New(apperror.Validation, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return apperror.Wrap(apperror.Internal, "failed to change password", err)
	}
	return nil
}

// issue stores a hashed token for identifier and returns the raw value to mail out.
// Earlier tokens for the same purpose are dropped.
func (s *Service) issue(ctx context.Context, identifier string, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", apperror.Wrap(apperror.Internal, "failed to create token", err)
	}
	token := hex.EncodeToString(raw)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identifier = ? AND purpose = ?", identifier, purpose).
			Delete(&model.VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.VerificationToken{
			Identifier: identifier,
			Purpose:    purpose,
			TokenHash:  HashToken(token),
			Expires:    s.now().Add(ttl),
		}).Error
	})
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, "failed to store token", err)
	}
	return token, nil
}

// consume looks up and deletes a token. Expired tokens are deleted too.
func (s *Service) consume(ctx context.Context, token string, purpose model.TokenPurpose) (*model.VerificationToken, error) {
	db := s.db.WithContext(ctx)

	var vt model.VerificationToken
	err := db.Where("token_hash = ? AND purpose = ?", HashToken(token), purpose).First(&vt).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.Validation, "invalid or already used token")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to look up token", err)
	}

	res := db.Delete(&vt)
	if res.Error != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to consume token", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.New(apperror.Validation, "invalid or already used token")
	}
	if s.now().After(vt.Expires) {
		return nil, apperror.New(apperror.Expired, "token has expired")
	}
	return &vt, nil
}

func (s *Service) sendVerification(ctx context.Context, user *model.User, locale string) {
	token, err := s.issue(ctx, user.Email, model.PurposeVerifyEmail, VerifyTokenTTL)
	if err != nil {
		s.log.Error("Failed to issue verification token", zap.Uint("user_id", user.ID), zap.Error(err))
		return
	}
	s.send(ctx, mailer.TemplateVerifyEmail, locale, user.Email, map[string]any{
		"Name": user.Name,
		"Link": fmt.Sprintf("%s/verify-email?token=%s", s.publicURL, token),
	})
}

func (s *Service) send(ctx context.Context, template, locale, to string, data map[string]any) {
	msg, err := mailer.Render(template, locale, to, data)
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	prometheus.RecordEmail(template, err)
	if err != nil {
		s.log.Warn("Failed to send email", zap.String("template", template), zap.Error(err))
	}
}

// HashToken returns the stored form of a mailed token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}


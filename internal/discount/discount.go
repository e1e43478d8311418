// Package discount validates, applies and administers percentage discount codes.
package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/pkg/database"
	"storefront-service/prometheus"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Result is the outcome of a successful eligibility check.
type Result struct {
	Code       string `json:"code"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// Service owns discount code state.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Normalize trims and uppercases a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Amount is subtotal * percentage / 100, unrounded.
func Amount(subtotal decimal.Decimal, percentage int) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100))
}

// SuccessMessage is the confirmation shown to the buyer.
func SuccessMessage(percentage int, locale string) string {
	if locale == "en" {
		return fmt.Sprintf("Discount code applied: %d%% off", percentage)
	}
	return fmt.Sprintf("Кодът за отстъпка е приложен: %d%% намаление", percentage)
}

// Check returns the reason code is not usable at now, or nil.
func Check(code *model.DiscountCode, now time.Time) error {
	switch {
	case !code.Active:
		return apperror.New(apperror.InvalidState, "discount code is not active")
	case code.IsExpired(now):
		return apperror.New(apperror.Expired, "discount code has expired")
	case code.IsExhausted():
		return apperror.New(apperror.UsageExceeded, "discount code usage limit reached")
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, db *gorm.DB, code string) (*model.DiscountCode, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	normalized := Normalize(code)
	if normalized == "" {
		return nil, apperror.New(apperror.Validation, "discount code is required")
	}

	var dc model.DiscountCode
	if err := db.WithContext(ctx).Where("code = ?", normalized).First(&dc).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.New(apperror.NotFound, "discount code not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to look up discount code", err)
	}
	return &dc, nil
}

// Get returns an eligible code without changing it.
func (s *Service) Get(ctx context.Context, code string) (*model.DiscountCode, error) {
	dc, err := s.lookup(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if err := Check(dc, s.now()); err != nil {
		return nil, err
	}
	return dc, nil
}

// Validate is a read-only eligibility check.
func (s *Service) Validate(ctx context.Context, code, locale string) (*Result, error) {
	dc, err := s.Get(ctx, code)
	if err != nil {
		prometheus.RecordDiscountOperation("validate", string(apperror.KindOf(err)))
		return nil, err
	}
	prometheus.RecordDiscountOperation("validate", "ok")
	return &Result{Code: dc.Code, Percentage: dc.Percentage, Message: SuccessMessage(dc.Percentage, locale)}, nil
}

// Apply checks the code and consumes one use.
func (s *Service) Apply(ctx context.Context, code, locale string) (*model.DiscountCode, *Result, error) {
	dc, err := s.lookup(ctx, s.db, code)
	if err == nil {
		err = Check(dc, s.now())
	}
	if err == nil {
		err = s.ApplyTx(ctx, s.db, dc.ID)
	}
	if err != nil {
		prometheus.RecordDiscountOperation("apply", string(apperror.KindOf(err)))
		return nil, nil, err
	}

	if err := s.db.WithContext(ctx).First(dc, dc.ID).Error; err != nil {
		return nil, nil, apperror.Wrap(apperror.Internal, "failed to reload discount code", err)
	}
	prometheus.RecordDiscountOperation("apply", "ok")
	return dc, &Result{Code: dc.Code, Percentage: dc.Percentage, Message: SuccessMessage(dc.Percentage, locale)}, nil
}

// ApplyTx consumes one use of the code inside tx. The increment only happens while the
// code is active, unexpired and under its cap, so concurrent callers never overshoot.
func (s *Service) ApplyTx(ctx context.Context, tx *gorm.DB, codeID uint) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	now := s.now()
	res := tx.WithContext(ctx).Model(&model.DiscountCode{}).
		Where("id = ? AND active = ?", codeID, true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Where("(max_uses IS NULL OR current_uses < max_uses)").
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to apply discount code", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var dc model.DiscountCode
	if err := tx.WithContext(ctx).First(&dc, codeID).Error; err != nil {
		if database.IsNotFound(err) {
			return apperror.New(apperror.NotFound, "discount code not found")
		}
		return apperror.Wrap(apperror.Internal, "failed to look up discount code", err)
	}
	if err := Check(&dc, now); err != nil {
		return err
	}
	return apperror.New(apperror.UsageExceeded, "discount code usage limit reached")
}

// CreateInput describes a new code.
type CreateInput struct {
	Code       string     `json:"code" validate:"required,max=64"`
	Percentage int        `json:"percentage" validate:"required,min=1,max=100"`
	Active     *bool      `json:"active"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	MaxUses    *int       `json:"maxUses" validate:"omitempty,min=1"`
}

// Create inserts a code. Duplicate codes are a Conflict.
func (s *Service) Create(ctx context.Context, in CreateInput, source model.DiscountSource) (*model.DiscountCode, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	code := Normalize(in.Code)
	if code == "" {
		return nil, apperror.New(apperror.Validation, "code is required")
	}
	if in.Percentage < 1 || in.Percentage > 100 {
		return nil, apperror.New(apperror.Validation, "percentage must be between 1 and 100")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return nil, apperror.New(apperror.Validation, "maxUses must be at least 1")
	}

	dc := &model.DiscountCode{
		Code:       code,
		Percentage: in.Percentage,
		Active:     in.Active == nil || *in.Active,
		MaxUses:    in.MaxUses,
		Source:     source,
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		dc.ExpiresAt = &exp
	}

	if err := s.db.WithContext(ctx).Create(dc).Error; err != nil {
		if database.IsDuplicate(err) {
			return nil, apperror.Newf(apperror.Conflict, "discount code %s already exists", code)
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to create discount code", err)
	}
	return dc, nil
}

// GeneratePromo mints a code PREFIX-XXXXXX valid for validFor. maxUses nil means unlimited.
func (s *Service) GeneratePromo(ctx context.Context, prefix string, percentage int, validFor time.Duration, maxUses *int) (*model.DiscountCode, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		expires := s.now().Add(validFor)
		dc, err := s.Create(ctx, CreateInput{
			Code:       Normalize(prefix) + "-" + suffix,
			Percentage: percentage,
			ExpiresAt:  &expires,
			MaxUses:    maxUses,
		}, model.SourceNewsletter)
		if err == nil {
			return dc, nil
		}
		if !apperror.Is(err, apperror.Conflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// List returns every code, newest first.
func (s *Service) List(ctx context.Context) ([]model.DiscountCode, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var codes []model.DiscountCode
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&codes).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list discount codes", err)
	}
	return codes, nil
}

// UpdateInput changes admin-editable fields. Nil fields are left as they are.
type UpdateInput struct {
	Percentage  *int       `json:"percentage" validate:"omitempty,min=1,max=100"`
	Active      *bool      `json:"active"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	ClearExpiry bool       `json:"clearExpiry"`
	MaxUses     *int       `json:"maxUses" validate:"omitempty,min=1"`
	ClearMax    bool       `json:"clearMaxUses"`
}

// Update edits a code. CurrentUses is never changed here.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*model.DiscountCode, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	var dc model.DiscountCode
	if err := s.db.WithContext(ctx).First(&dc, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.New(apperror.NotFound, "discount code not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load discount code", err)
	}

	updates := map[string]interface{}{}
	if in.Percentage != nil {
		if *in.Percentage < 1 || *in.Percentage > 100 {
			return nil, apperror.New(apperror.Validation, "percentage must be between 1 and 100")
		}
		updates["percentage"] = *in.Percentage
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	switch {
	case in.ClearExpiry:
		updates["expires_at"] = nil
	case in.ExpiresAt != nil:
		updates["expires_at"] = in.ExpiresAt.UTC()
	}
	switch {
	case in.ClearMax:
		updates["max_uses"] = nil
	case in.MaxUses != nil:
		updates["max_uses"] = *in.MaxUses
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&dc).Updates(updates).Error; err != nil {
			return nil, apperror.Wrap(apperror.Internal, "failed to update discount code", err)
		}
	}
	if err := s.db.WithContext(ctx).First(&dc, id).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to reload discount code", err)
	}
	return &dc, nil
}

// Delete removes a code. Orders that used it keep their amounts and lose the reference.
func (s *Service) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Order{}).Where("discount_code_id = ?", id).Update("discount_code_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.NewsletterSubscription{}).Where("discount_code_id = ?", id).Update("discount_code_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.DiscountCode{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.NotFound, "discount code not found")
		}
		return nil
	})
	var appErr *apperror.Error
	if err != nil && !errors.As(err, &appErr) {
		return apperror.Wrap(apperror.Internal, "failed to delete discount code", err)
	}
	return err
}

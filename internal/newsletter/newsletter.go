// Package newsletter manages mailing-list subscriptions and discount campaigns.
package newsletter

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"storefront-service/internal/apperror"
	"storefront-service/internal/discount"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/mailer"
	"storefront-service/prometheus"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	WelcomePrefix     = "WELCOME"
	WelcomePercentage = 10
	WelcomeValidFor   = 30 * 24 * time.Hour
	CampaignPrefix    = "PROMO"

	// campaignConcurrency bounds parallel SMTP sessions.
	campaignConcurrency = 5
)

// CampaignRequest is an admin mail-out with one shared code.
type CampaignRequest struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	Percentage int    `json:"percentage" validate:"required,min=1,max=100"`
	ValidDays  int    `json:"validDays" validate:"required,min=1,max=365"`
}

// CampaignResult reports how the mail-out went.
type CampaignResult struct {
	Code   string `json:"code"`
	Sent   int64  `json:"sent"`
	Failed int64  `json:"failed"`
}

type Service struct {
	db        *gorm.DB
	discounts *discount.Service
	mail      mailer.Sender
	publicURL string
	log       *zap.Logger
}

func NewService(db *gorm.DB, discounts *discount.Service, mail mailer.Sender, publicURL string) *Service {
	return &Service{
		db:        db,
		discounts: discounts,
		mail:      mail,
		publicURL: publicURL,
		log:       logger.GetLogger().Named("newsletter"),
	}
}

func newUnsubscribeToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Subscribe adds or reactivates an address. The first activation of an address mints a
// single-use welcome code and mails it.
func (s *Service) Subscribe(ctx context.Context, email, locale string) (*model.NewsletterSubscription, error) {
	email = validation.NormalizeEmail(email)
	if locale != "en" {
		locale = "bg"
	}
	db := s.db.WithContext(ctx)

	var sub model.NewsletterSubscription
	err := db.Where("email = ?", email).First(&sub).Error
	switch {
	case database.IsNotFound(err):
		sub = model.NewsletterSubscription{
			Email:            email,
			Locale:           locale,
			Active:           true,
			UnsubscribeToken: newUnsubscribeToken(),
		}
		if err := db.Create(&sub).Error; err != nil {
			if database.IsDuplicate(err) {
				return nil, apperror.New(apperror.Conflict, "subscription already in progress")
			}
			return nil, apperror.Wrap(apperror.Internal, "failed to subscribe", err)
		}
	case err != nil:
		return nil, apperror.Wrap(apperror.Internal, "failed to subscribe", err)
	case sub.Active:
		return &sub, nil
	default:
		if err := db.Model(&sub).Updates(map[string]interface{}{"active": true, "locale": locale}).Error; err != nil {
			return nil, apperror.Wrap(apperror.Internal, "failed to subscribe", err)
		}
		sub.Active = true
		sub.Locale = locale
	}

	if sub.DiscountCodeID != nil {
		return &sub, nil
	}

	single := 1
	code, err := s.discounts.GeneratePromo(ctx, WelcomePrefix, WelcomePercentage, WelcomeValidFor, &single)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&sub).Update("discount_code_id", code.ID).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to attach welcome code", err)
	}
	sub.DiscountCodeID = &code.ID
	sub.DiscountCode = code

	s.send(ctx, mailer.TemplateWelcomeDiscount, &sub, map[string]any{
		"Code":            code.Code,
		"Percentage":      code.Percentage,
		"UnsubscribeLink": s.unsubscribeLink(&sub),
	})
	s.log.Info("Newsletter subscription", zap.Uint("subscription_id", sub.ID), zap.String("code", code.Code))
	return &sub, nil
}

// Unsubscribe deactivates the subscription owning token.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperror.New(apperror.Validation, "token is required")
	}
	res := s.db.WithContext(ctx).Model(&model.NewsletterSubscription{}).
		Where("unsubscribe_token = ?", token).Update("active", false)
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to unsubscribe", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "subscription not found")
	}
	return nil
}

// List returns every subscription, newest first.
func (s *Service) List(ctx context.Context) ([]model.NewsletterSubscription, error) {
	var subs []model.NewsletterSubscription
	if err := s.db.WithContext(ctx).Preload("DiscountCode").Order("created_at DESC, id DESC").Find(&subs).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list subscriptions", err)
	}
	return subs, nil
}

// Campaign mints one shared code with unlimited uses and mails it to every active subscriber.
// Individual delivery failures are counted, not returned.
func (s *Service) Campaign(ctx context.Context, req CampaignRequest) (*CampaignResult, error) {
	if req.Percentage < 1 || req.Percentage > 100 || req.ValidDays < 1 {
		return nil, apperror.New(apperror.Validation, "percentage must be 1..100 and validDays at least 1")
	}

	var subs []model.NewsletterSubscription
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load subscribers", err)
	}

	validFor := time.Duration(req.ValidDays) * 24 * time.Hour
	code, err := s.discounts.GeneratePromo(ctx, CampaignPrefix, req.Percentage, validFor, nil)
	if err != nil {
		return nil, err
	}
	expires := code.ExpiresAt.Format("2006-01-02")
	subject := validation.Sanitize(req.Subject)

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(campaignConcurrency)
	for i := range subs {
		sub := &subs[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			ok := s.send(gctx, mailer.TemplateCampaign, sub, map[string]any{
				"Subject":         subject,
				"Code":            code.Code,
				"Percentage":      code.Percentage,
				"Expires":         expires,
				"UnsubscribeLink": s.unsubscribeLink(sub),
			})
			if ok {
				sent.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &CampaignResult{Code: code.Code, Sent: sent.Load(), Failed: failed.Load()}
	s.log.Info("Newsletter campaign sent",
		zap.String("code", result.Code),
		zap.Int64("sent", result.Sent),
		zap.Int64("failed", result.Failed))
	return result, nil
}

func (s *Service) unsubscribeLink(sub *model.NewsletterSubscription) string {
	return fmt.Sprintf("%s/newsletter/unsubscribe?token=%s", s.publicURL, sub.UnsubscribeToken)
}

func (s *Service) send(ctx context.Context, template string, sub *model.NewsletterSubscription, data map[string]any) bool {
	msg, err := mailer.Render(template, sub.Locale, sub.Email, data)
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	prometheus.RecordEmail(template, err)
	if err != nil {
		s.log.Warn("Failed to send newsletter email",
			zap.String("template", template),
			zap.Uint("subscription_id", sub.ID),
			zap.Error(err))
		return false
	}
	return true
}

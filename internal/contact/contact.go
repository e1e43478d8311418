// Package contact stores messages sent through the public contact form.
package contact

import (
	"context"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"

	"gorm.io/gorm"
)

// Input is a contact form submission.
type Input struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Submit stores a sanitized message.
func (s *Service) Submit(ctx context.Context, in Input) (*model.ContactMessage, error) {
	msg := &model.ContactMessage{
		Name:    validation.Sanitize(in.Name),
		Email:   validation.NormalizeEmail(in.Email),
		Subject: validation.Sanitize(in.Subject),
		Message: validation.Sanitize(in.Message),
	}
	if msg.Name == "" || msg.Message == "" {
		return nil, apperror.New(apperror.Validation, "name and message are required")
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to save message", err)
	}
	return msg, nil
}

// List returns messages newest first, optionally only unread ones.
func (s *Service) List(ctx context.Context, unreadOnly bool) ([]model.ContactMessage, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if unreadOnly {
		q = q.Where(map[string]interface{}{"read": false})
	}
	var out []model.ContactMessage
	if err := q.Find(&out).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list messages", err)
	}
	return out, nil
}

// MarkRead flags a message as handled.
func (s *Service) MarkRead(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&model.ContactMessage{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to update message", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "message not found")
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.ContactMessage{}, id)
	if res.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "message not found")
	}
	return nil
}

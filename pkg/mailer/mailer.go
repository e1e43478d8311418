// Package mailer sends transactional and campaign email.
package mailer

import (
	"context"
	"fmt"
	"sync"

	"storefront-service/pkg/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is a rendered email ready to send.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Template string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the SMTP sender when mail is enabled and a logging no-op otherwise.
func New(cfg *config.MailConfig, log *zap.Logger) Sender {
	if !cfg.Enabled {
		return &Nop{log: log}
	}
	return NewSMTP(cfg)
}

// SMTP sends mail through the configured relay.
type SMTP struct {
	cfg *config.MailConfig
}

func NewSMTP(cfg *config.MailConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// Nop logs messages instead of sending them.
type Nop struct {
	log *zap.Logger
}

func (n *Nop) Send(_ context.Context, msg Message) error {
	if n.log != nil {
		n.log.Info("Mail delivery disabled, message dropped",
			zap.String("to", msg.To),
			zap.String("template", msg.Template),
			zap.String("subject", msg.Subject))
	}
	return nil
}

// Recorder keeps sent messages in memory. Err, when set, is returned from every Send.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

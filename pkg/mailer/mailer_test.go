package mailer

import (
	"context"
	"errors"
	"testing"

	"storefront-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderLocalizedTemplate(t *testing.T) {
	msg, err := Render(TemplateWelcomeDiscount, "en", "ana@example.com", map[string]any{
		"Code":            "WELCOME-AB12CD",
		"Percentage":      10,
		"UnsubscribeLink": "https://shop.example/unsubscribe?token=t",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Welcome! Here is 10% off", msg.Subject)
	assert.Contains(t, msg.HTML, "WELCOME-AB12CD")
	assert.Equal(t, TemplateWelcomeDiscount, msg.Template)
}

func TestRenderFallsBackToBulgarian(t *testing.T) {
	msg, err := Render(TemplateResetPassword, "de", "ana@example.com", map[string]any{"Link": "https://x/reset"})
	require.NoError(t, err)
	assert.Equal(t, "Смяна на парола", msg.Subject)
}

func TestRenderEscapesBody(t *testing.T) {
	msg, err := Render(TemplateVerifyEmail, "en", "a@b.c", map[string]any{
		"Name": "<script>x</script>",
		"Link": "https://x/verify",
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("nope", "en", "a@b.c", nil)
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), Message{To: "a@b.c"}))
	assert.Len(t, r.Sent(), 1)

	r.Err = errors.New("smtp down")
	assert.Error(t, r.Send(context.Background(), Message{To: "a@b.c"}))
	assert.Len(t, r.Sent(), 1)
}

func TestNewReturnsNopWhenDisabled(t *testing.T) {
	s := New(&config.MailConfig{Enabled: false}, zap.NewNop())
	assert.IsType(t, &Nop{}, s)
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@b.c"}))

	assert.IsType(t, &SMTP{}, New(&config.MailConfig{Enabled: true}, zap.NewNop()))
}

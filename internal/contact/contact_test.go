package contact

import (
	"context"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactLifecycle(t *testing.T) {
	s := NewService(testutil.NewDB(t))
	ctx := context.Background()

	msg, err := s.Submit(ctx, Input{
		Name:    "Ivan <img src=x onerror=alert(1)>",
		Email:   "IVAN@example.com",
		Subject: "Order",
		Message: "Where is <b>my</b> order?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ivan", msg.Name)
	assert.Equal(t, "ivan@example.com", msg.Email)
	assert.Equal(t, "Where is my order?", msg.Message)

	_, err = s.Submit(ctx, Input{Name: "<b></b>", Email: "x@example.com", Message: "hi"})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))

	unread, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, s.MarkRead(ctx, msg.ID))
	unread, err = s.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Delete(ctx, msg.ID))
	assert.Equal(t, apperror.NotFound, apperror.KindOf(s.MarkRead(ctx, msg.ID)))
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	base := New(NotFound, "discount code not found")
	wrapped := fmt.Errorf("apply: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, Internal))
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:  http.StatusUnauthorized,
		Forbidden:     http.StatusForbidden,
		NotFound:      http.StatusNotFound,
		Conflict:      http.StatusBadRequest,
		RateLimited:   http.StatusTooManyRequests,
		OutOfStock:    http.StatusBadRequest,
		UsageExceeded: http.StatusBadRequest,
		Internal:      http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), string(kind))
	}
}

func TestStatusOverride(t *testing.T) {
	err := &Error{Kind: PaymentFailed, Message: "provider unavailable", Status: http.StatusInternalServerError}
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, http.StatusBadRequest, StatusOf(New(PaymentFailed, "declined")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
}

func TestStockUnavailableKeepsItems(t *testing.T) {
	err := StockUnavailable([]model.StockError{{ProductID: 3, Name: "Case", Message: "out of stock"}})
	assert.Equal(t, OutOfStock, err.Kind)
	assert.Len(t, err.StockErrors, 1)
	assert.Contains(t, err.Error(), "out_of_stock")
}

package validation

import (
	"testing"

	"storefront-service/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&signupRequest{Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "password must be at least 8")
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&signupRequest{Email: "ana@example.com", Password: "long-enough", Rating: 5}))
}

func TestSanitizeStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("  <b>hello</b> <script>alert(1)</script>world "))
	assert.Equal(t, "plain", Sanitize("plain"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

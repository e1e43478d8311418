package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/model"
	"storefront-service/internal/testutil"
	"storefront-service/pkg/cache"
	"storefront-service/pkg/config"
	"storefront-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "middleware-test-key", ExpirationHours: 1, RememberMeHours: 2})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthCookieAndBearer(t *testing.T) {
	jwt := newJWT()
	auth := NewAuth(jwt, nil)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "email": Email(c)})
	}, auth.RequireAuth)

	token, _, err := jwt.GenerateToken("ana@example.com", 7, "USER", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(e, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)
}

func TestRequireAdminUsesCurrentRole(t *testing.T) {
	db := testutil.NewDB(t)
	jwt := newJWT()
	auth := NewAuth(jwt, db)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "user@example.com", model.RoleUser)

	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, auth.RequireAdmin)

	call := func(u *model.User, claimedRole string) int {
		token, _, err := jwt.GenerateToken(u.Email, u.ID, claimedRole, false)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(e, req).Code
	}

	assert.Equal(t, http.StatusNoContent, call(admin, "ADMIN"))
	assert.Equal(t, http.StatusForbidden, call(user, "USER"))
	assert.Equal(t, http.StatusForbidden, call(user, "ADMIN"), "stale admin claim is not trusted")

	require.NoError(t, db.Delete(admin).Error)
	assert.Equal(t, http.StatusUnauthorized, call(admin, "ADMIN"))
}

func TestCSRFRejectsMissingHeader(t *testing.T) {
	e := echo.New()
	g := e.Group("/api", CSRF(false))
	g.GET("/csrf", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"token": CSRFToken(c)}) })
	g.POST("/contact", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CSRFCookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Contains(t, rec.Body.String(), cookie.Value)

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.AddCookie(cookie)
	rec = serve(e, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "csrf_invalid")

	req = httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, "forged")
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, cookie.Value)
	assert.Equal(t, http.StatusCreated, serve(e, req).Code)
}

func TestRateLimitReturns429AfterBudget(t *testing.T) {
	store := cache.NewMemory(100, time.Hour)
	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(store, ScopeAuth, 5, 15*time.Minute))
	e.POST("/api/auth/register", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(store, ScopeAuth, 5, 15*time.Minute))

	login := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		return serve(e, req)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, login("10.0.0.1").Code)
	}
	rec := login("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusOK, login("10.0.0.2").Code, "other clients are unaffected")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	assert.Equal(t, http.StatusOK, serve(e, req).Code, "limits are per route")
}

func TestResponseCacheServesHitsAndInvalidates(t *testing.T) {
	store := cache.NewMemory(100, time.Hour)
	calls := 0

	e := echo.New()
	e.GET("/api/products", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, ResponseCache(store, time.Minute))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/products?page=1", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/products?page=1", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"calls":1}`, strings.TrimSpace(rec.Body.String()))
	assert.Equal(t, 1, calls)

	InvalidateResponses(context.Background(), store, "/api/products")
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/products?page=1", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	assert.Equal(t, "abc", serve(e, req).Header().Get("X-Request-ID"))
	assert.NotEmpty(t, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Request-ID"))
}

func TestRequestIDRejectsUnsafeValues(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, bad := range []string{"has space", strings.Repeat("x", 65), "tab\tinside"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", bad)
		got := serve(e, req).Header().Get("X-Request-ID")
		assert.NotEqual(t, bad, got)
		assert.Len(t, got, 36)
	}
}

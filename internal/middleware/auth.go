package middleware

import (
	"net/http"
	"strings"

	"storefront-service/internal/model"
	"storefront-service/pkg/jwtutil"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthCookieName is the httpOnly cookie holding the session token.
const AuthCookieName = "auth-token"

const (
	userIDKey = "user_id"
	emailKey  = "email"
	roleKey   = "user_role"
)

// Auth resolves the caller from the session cookie or a Bearer token.
type Auth struct {
	jwt *jwtutil.JWTUtil
	db  *gorm.DB
}

// NewAuth creates the auth middleware set. When db is set the user row is re-read
// on every request so deleted accounts and role changes take effect immediately.
func NewAuth(jwt *jwtutil.JWTUtil, db *gorm.DB) *Auth {
	return &Auth{jwt: jwt, db: db}
}

func tokenFromRequest(c echo.Context) string {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate attaches the caller to the context when a valid token is present.
// Anonymous requests pass through.
func (a *Auth) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			return next(c)
		}

		log := logger.FromContext(c)
		claims, err := a.jwt.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Ignoring invalid session token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return next(c)
		}

		role := claims.Role
		if a.db != nil {
			var user model.User
			if err := a.db.WithContext(c.Request().Context()).Select("id", "role").First(&user, claims.UserID).Error; err != nil {
				log.Debug("Session user no longer exists", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("unknown_user")
				return next(c)
			}
			role = string(user.Role)
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Set(roleKey, role)
		return next(c)
	}
}

// RequireAuth rejects anonymous callers with 401.
func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return a.Authenticate(func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			logger.FromContext(c).Warn("Unauthenticated request rejected", zap.String("path", c.Path()))
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
		}
		return next(c)
	})
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
func (a *Auth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return a.RequireAuth(func(c echo.Context) error {
		if !IsAdmin(c) {
			userID, _ := UserID(c)
			logger.FromContext(c).Warn("Non-admin request to admin route", zap.Uint("user_id", userID))
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "admin access required"})
		}
		return next(c)
	})
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok && id != 0
}

// Email returns the authenticated user's email.
func Email(c echo.Context) string {
	email, _ := c.Get(emailKey).(string)
	return email
}

// IsAdmin reports whether the caller has the admin role.
func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(roleKey).(string)
	return model.Role(role) == model.RoleAdmin
}

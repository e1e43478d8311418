package handler

import (
	"net/http"
	"time"

	"storefront-service/internal/account"
	"storefront-service/internal/apperror"
	"storefront-service/internal/middleware"
	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type tokenRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

type emailRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Locale string `json:"locale"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (h *Handler) setSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account and mails a verification link.
func (h *Handler) Register(c echo.Context) error {
	var req account.RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}

	user, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful, check your email to verify your address",
		"user":    user,
	})
}

// Login issues the session cookie and returns the token for non-browser clients.
func (h *Handler) Login(c echo.Context) error {
	var req account.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	session, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	h.setSessionCookie(c, session.Token, session.ExpiresAt)

	logger.FromContext(c).Info("Session started", zap.Uint("user_id", session.User.ID))
	return c.JSON(http.StatusOK, session)
}

// Logout clears the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if err := h.accounts.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

func (h *Handler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	if err := h.accounts.ResendVerification(c.Request().Context(), req.Email, req.Locale); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists and is unverified, a new link was sent"})
}

// ForgotPassword always answers 200 so it cannot reveal which accounts exist.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	if err := h.accounts.ForgotPassword(c.Request().Context(), req.Email, req.Locale); err != nil {
		logger.FromContext(c).Error("Failed to start password reset", zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset link was sent"})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if err := h.accounts.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me returns the signed-in account.
func (h *Handler) Me(c echo.Context) error {
	user, err := h.accounts.Me(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.CurrentPassword == req.NewPassword {
		return h.respondError(c, apperror.New(apperror.Validation, "new password must differ from the current one"))
	}
	if err := h.accounts.ChangePassword(c.Request().Context(), currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// CSRFToken hands the double-submit token to clients that cannot read the cookie.
func (h *Handler) CSRFToken(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"csrfToken": middleware.CSRFToken(c)})
}

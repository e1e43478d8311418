package handler

import (
	"net/http"
	"strconv"

	"storefront-service/internal/contact"
	"storefront-service/internal/model"
	"storefront-service/internal/newsletter"

	"github.com/labstack/echo/v4"
)

type roleRequest struct {
	Role model.Role `json:"role" validate:"required,oneof=USER ADMIN"`
}

// Subscribe adds an address to the newsletter.
func (h *Handler) Subscribe(c echo.Context) error {
	var req emailRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	if _, err := h.newsletter.Subscribe(c.Request().Context(), req.Email, req.Locale); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "subscribed"})
}

func (h *Handler) Unsubscribe(c echo.Context) error {
	var req tokenRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if err := h.newsletter.Unsubscribe(c.Request().Context(), req.Token); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "unsubscribed"})
}

func (h *Handler) ListSubscribers(c echo.Context) error {
	subs, err := h.newsletter.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribers": subs})
}

// SendCampaign mails one shared promo code to every active subscriber.
func (h *Handler) SendCampaign(c echo.Context) error {
	var req newsletter.CampaignRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	result, err := h.newsletter.Campaign(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// SubmitContact stores a contact form message.
func (h *Handler) SubmitContact(c echo.Context) error {
	var req contact.Input
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if _, err := h.contact.Submit(c.Request().Context(), req); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}

func (h *Handler) ListContactMessages(c echo.Context) error {
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	messages, err := h.contact.List(c.Request().Context(), unread)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

func (h *Handler) MarkContactRead(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.contact.MarkRead(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteContactMessage(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.contact.Delete(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUsers(c echo.Context) error {
	list, err := h.users.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": list})
}

func (h *Handler) SetUserRole(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req roleRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	user, err := h.users.SetRole(c.Request().Context(), currentUser(c), id, req.Role)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.users.Delete(c.Request().Context(), currentUser(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

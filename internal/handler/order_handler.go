package handler

import (
	"net/http"

	"storefront-service/internal/orders"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ListMyOrders(c echo.Context) error {
	list, err := h.orders.ListForUser(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": list})
}

func (h *Handler) GetMyOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	order, err := h.orders.GetForUser(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// TrackOrder is the public lookup by order number and buyer email.
func (h *Handler) TrackOrder(c echo.Context) error {
	order, err := h.orders.Track(c.Request().Context(), c.QueryParam("number"), c.QueryParam("email"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) AdminListOrders(c echo.Context) error {
	page, err := h.orders.List(c.Request().Context(), orders.ListFilter{
		Status:   c.QueryParam("status"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) AdminGetOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	order, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) AdminDeleteOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.orders.Delete(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateOrderStatus moves an order along the status graph.
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	var req orders.UpdateStatusRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	order, err := h.orders.UpdateStatus(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

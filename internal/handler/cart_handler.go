package handler

import (
	"net/http"

	"storefront-service/internal/cart"

	"github.com/labstack/echo/v4"
)

type cartItemsRequest struct {
	Items []cart.Item `json:"items" validate:"max=200,dive"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

type wishlistRequest struct {
	ProductID uint `json:"productId" validate:"required"`
}

type wishlistMergeRequest struct {
	ProductIDs []uint `json:"productIds" validate:"max=500"`
}

func (h *Handler) GetCart(c echo.Context) error {
	items, err := h.carts.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AddToCart upserts a line by product, color and size.
func (h *Handler) AddToCart(c echo.Context) error {
	var req cart.Item
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	item, err := h.carts.Add(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// ReplaceCart makes the server cart exactly the submitted lines.
func (h *Handler) ReplaceCart(c echo.Context) error {
	var req cartItemsRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	items, err := h.carts.Replace(c.Request().Context(), currentUser(c), req.Items)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *Handler) UpdateCartItem(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req quantityRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	item, err := h.carts.UpdateQuantity(c.Request().Context(), currentUser(c), id, req.Quantity)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveCartItem(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.carts.Remove(c.Request().Context(), currentUser(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearCart(c echo.Context) error {
	if err := h.carts.Clear(c.Request().Context(), currentUser(c)); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MergeCart unions a client cart into the server cart.
func (h *Handler) MergeCart(c echo.Context) error {
	var req cartItemsRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	items, err := h.carts.Merge(c.Request().Context(), currentUser(c), req.Items)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *Handler) GetWishlist(c echo.Context) error {
	items, err := h.wishlists.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *Handler) AddToWishlist(c echo.Context) error {
	var req wishlistRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	item, err := h.wishlists.Add(c.Request().Context(), currentUser(c), req.ProductID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveFromWishlist(c echo.Context) error {
	id, err := idParam(c, "productId")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.wishlists.Remove(c.Request().Context(), currentUser(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MergeWishlist(c echo.Context) error {
	var req wishlistMergeRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	items, err := h.wishlists.Merge(c.Request().Context(), currentUser(c), req.ProductIDs)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

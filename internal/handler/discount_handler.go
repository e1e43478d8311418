package handler

import (
	"net/http"

	"storefront-service/internal/discount"
	"storefront-service/internal/model"

	"github.com/labstack/echo/v4"
)

type codeRequest struct {
	Code   string `json:"code" validate:"required,max=64"`
	Locale string `json:"locale"`
}

func discountResponse(r *discount.Result) echo.Map {
	return echo.Map{
		"success":    true,
		"code":       r.Code,
		"percentage": r.Percentage,
		"message":    r.Message,
	}
}

// ValidateDiscount checks a code without consuming it.
func (h *Handler) ValidateDiscount(c echo.Context) error {
	var req codeRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	result, err := h.discounts.Validate(c.Request().Context(), req.Code, req.Locale)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, discountResponse(result))
}

// ApplyDiscount consumes one use of a code.
func (h *Handler) ApplyDiscount(c echo.Context) error {
	var req codeRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	_, result, err := h.discounts.Apply(c.Request().Context(), req.Code, req.Locale)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, discountResponse(result))
}

func (h *Handler) ListDiscountCodes(c echo.Context) error {
	codes, err := h.discounts.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"codes": codes})
}

func (h *Handler) CreateDiscountCode(c echo.Context) error {
	var req discount.CreateInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	code, err := h.discounts.Create(c.Request().Context(), req, model.SourceAdmin)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, code)
}

func (h *Handler) UpdateDiscountCode(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req discount.UpdateInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	code, err := h.discounts.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) DeleteDiscountCode(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.discounts.Delete(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"
	"strconv"

	"storefront-service/internal/catalog"
	"storefront-service/internal/middleware"
	"storefront-service/internal/reviews"

	"github.com/labstack/echo/v4"
)

// catalogPaths are the cached public prefixes touched by catalog writes.
var catalogPaths = []string{"/api/products", "/api/categories"}

func (h *Handler) invalidateCatalog(c echo.Context) {
	middleware.InvalidateResponses(c.Request().Context(), h.cache, catalogPaths...)
}

func productFilter(c echo.Context) catalog.Filter {
	featured, _ := strconv.ParseBool(c.QueryParam("featured"))
	inStock, _ := strconv.ParseBool(c.QueryParam("in_stock"))
	return catalog.Filter{
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
		Featured: featured,
		InStock:  inStock,
		Sort:     c.QueryParam("sort"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", catalog.DefaultPageSize),
	}
}

// ListProducts handles retrieving products with optional filtering
func (h *Handler) ListProducts(c echo.Context) error {
	page, err := h.catalog.ListProducts(c.Request().Context(), productFilter(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct handles retrieving a single product by slug
func (h *Handler) GetProduct(c echo.Context) error {
	product, err := h.catalog.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) ListCategories(c echo.Context) error {
	categories, err := h.catalog.Categories(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

func (h *Handler) ListReviews(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	summary, err := h.reviews.ForProduct(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// SaveReview creates or replaces the caller's review.
func (h *Handler) SaveReview(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req reviews.Input
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	review, err := h.reviews.Upsert(c.Request().Context(), currentUser(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.reviews.Delete(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminListProducts lists the whole catalog without caching.
func (h *Handler) AdminListProducts(c echo.Context) error {
	return h.ListProducts(c)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	var req catalog.ProductInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	product, err := h.catalog.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req catalog.ProductInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	product, err := h.catalog.UpdateProduct(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LowStock(c echo.Context) error {
	products, err := h.catalog.LowStock(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req catalog.CategoryInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	category, err := h.catalog.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req catalog.CategoryInput
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	category, err := h.catalog.UpdateCategory(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.catalog.DeleteCategory(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	h.invalidateCatalog(c)
	return c.NoContent(http.StatusNoContent)
}

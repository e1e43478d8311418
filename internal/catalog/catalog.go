// Package catalog serves products and categories and lets admins maintain them.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/validation"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Sort orders for product listings.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

// Filter narrows a public product listing.
type Filter struct {
	Category string
	Query    string
	Featured bool
	InStock  bool
	Sort     string
	Page     int
	PageSize int
}

// Page is one page of products.
type Page struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// ProductInput creates or replaces a product.
type ProductInput struct {
	Name              string           `json:"name" validate:"required,max=255"`
	NameBG            string           `json:"name_bg" validate:"max=255"`
	Slug              string           `json:"slug" validate:"max=255"`
	Description       string           `json:"description"`
	DescriptionBG     string           `json:"description_bg"`
	Price             decimal.Decimal  `json:"price"`
	OldPrice          *decimal.Decimal `json:"old_price"`
	DiscountPercent   *int             `json:"discount_percent" validate:"omitempty,min=0,max=100"`
	Stock             *int             `json:"stock" validate:"omitempty,min=0"`
	InStock           *bool            `json:"in_stock"`
	LowStockThreshold *int             `json:"low_stock_threshold" validate:"omitempty,min=0"`
	CategoryID        *uint            `json:"category_id"`
	ImageURL          string           `json:"image_url" validate:"omitempty,max=512"`
	Colors            string           `json:"colors" validate:"max=512"`
	Sizes             string           `json:"sizes" validate:"max=512"`
	Featured          bool             `json:"featured"`
}

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	NameBG      string `json:"name_bg" validate:"max=255"`
	Slug        string `json:"slug" validate:"max=255"`
	Description string `json:"description"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: logger.GetLogger().Named("catalog")}
}

// Slugify turns a name into a lowercase, dash separated slug.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ListProducts returns a filtered, sorted page of products.
func (s *Service) ListProducts(ctx context.Context, f Filter) (*Page, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&model.Product{})
	if f.Category != "" {
		q = q.Where("category_id IN (?)", db.Model(&model.Category{}).Select("id").Where("slug = ?", f.Category))
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(name_bg) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if f.Featured {
		q = q.Where("featured = ?", true)
	}
	if f.InStock {
		q = q.Where("in_stock = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to count products", err)
	}

	var products []model.Product
	err := q.Preload("Category").Order(orderBy(f.Sort)).
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&products).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list products", err)
	}
	return &Page{Products: products, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func orderBy(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC, id ASC"
	case SortPriceDesc:
		return "price DESC, id ASC"
	case SortName:
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// GetBySlug returns one product.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).Preload("Category").Where("slug = ?", slug).First(&p).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.NotFound, "product not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load product", err)
	}
	return &p, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).Preload("Category").First(&p, id).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.NotFound, "product not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load product", err)
	}
	return &p, nil
}

// Categories lists every category by name.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list categories", err)
	}
	return out, nil
}

// CreateProduct inserts a product. A taken slug is a Conflict.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	p := &model.Product{}
	if err := s.fill(ctx, p, in); err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, s.writeError("create product", err)
	}
	s.log.Info("Product created", zap.Uint("product_id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, p, in); err != nil {
		return nil, err
	}
	p.Category = nil

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := s.db.WithContext(ctx).Omit("Category").Save(p).Error; err != nil {
		return nil, s.writeError("update product", err)
	}
	s.log.Info("Product updated", zap.Uint("product_id", p.ID))
	return p, nil
}

// fill copies input onto p and keeps InStock consistent with tracked stock.
func (s *Service) fill(ctx context.Context, p *model.Product, in ProductInput) error {
	if !in.Price.IsPositive() {
		return apperror.New(apperror.Validation, "price must be greater than 0")
	}
	if in.OldPrice != nil && in.OldPrice.IsNegative() {
		return apperror.New(apperror.Validation, "old_price must not be negative")
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return apperror.New(apperror.Validation, "slug is required")
	}
	if in.CategoryID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", *in.CategoryID).Count(&n).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to look up category", err)
		}
		if n == 0 {
			return apperror.New(apperror.Validation, "category does not exist")
		}
	}

	p.Name = validation.Sanitize(in.Name)
	p.NameBG = validation.Sanitize(in.NameBG)
	p.Slug = slug
	p.Description = validation.Sanitize(in.Description)
	p.DescriptionBG = validation.Sanitize(in.DescriptionBG)
	p.Price = in.Price
	p.OldPrice = in.OldPrice
	p.DiscountPercent = in.DiscountPercent
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.Colors = in.Colors
	p.Sizes = in.Sizes
	p.Featured = in.Featured
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	} else if p.LowStockThreshold == 0 {
		p.LowStockThreshold = 5
	}

	if p.Stock != nil {
		p.SyncInStock()
	} else if in.InStock != nil {
		p.InStock = *in.InStock
	} else if p.ID == 0 {
		p.InStock = true
	}
	return nil
}

func (s *Service) writeError(op string, err error) error {
	if database.IsDuplicate(err) {
		return apperror.New(apperror.Conflict, "slug is already in use")
	}
	return apperror.Wrap(apperror.Internal, "failed to "+op, err)
}

// DeleteProduct removes a product from the catalog. Past orders keep their snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Product{}, id)
		if res.Error != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete product", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.NotFound, "product not found")
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.CartItem{}).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete product", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.WishlistItem{}).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete product", err)
		}
		return nil
	})
}

// LowStock lists tracked products at or below their low-stock threshold, emptiest first.
func (s *Service) LowStock(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := s.db.WithContext(ctx).
		Where("stock IS NOT NULL AND stock <= low_stock_threshold").
		Order("stock ASC, id ASC").Find(&out).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load low-stock report", err)
	}
	return out, nil
}

// CreateCategory inserts a category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	c := &model.Category{}
	if err := fillCategory(c, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, s.writeError("create category", err)
	}
	return c, nil
}

// UpdateCategory replaces a category's fields.
func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	var c model.Category
	err := s.db.WithContext(ctx).First(&c, id).Error
	if database.IsNotFound(err) {
		return nil, apperror.New(apperror.NotFound, "category not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load category", err)
	}
	if err := fillCategory(&c, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, s.writeError("update category", err)
	}
	return &c, nil
}

func fillCategory(c *model.Category, in CategoryInput) error {
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return apperror.New(apperror.Validation, "slug is required")
	}
	c.Name = validation.Sanitize(in.Name)
	c.NameBG = validation.Sanitize(in.NameBG)
	c.Slug = slug
	c.Description = validation.Sanitize(in.Description)
	return nil
}

// DeleteCategory removes a category and detaches its products.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete category", err)
		}
		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete category", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.NotFound, "category not found")
		}
		return nil
	})
}

package catalog

import (
	"context"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestSlugify(t *testing.T) {
	assert.Equal(t, "iphone-15-case", Slugify("  iPhone 15 -- Case! "))
	assert.Equal(t, "калъф-за-телефон", Slugify("Калъф за телефон"))
	assert.Equal(t, "", Slugify("***"))
}

func TestCreateProductKeepsStockConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, ProductInput{
		Name:    "Leather Case",
		Price:   decimal.RequireFromString("24.90"),
		Stock:   testutil.IntPtr(0),
		InStock: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "leather-case", p.Slug)
	assert.False(t, p.InStock, "zero tracked stock is never in stock")
	assert.Equal(t, 5, p.LowStockThreshold)

	p, err = s.UpdateProduct(ctx, p.ID, ProductInput{
		Name:  "Leather Case",
		Price: decimal.RequireFromString("22.00"),
		Stock: testutil.IntPtr(3),
	})
	require.NoError(t, err)
	assert.True(t, p.InStock)

	var stored model.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("22.00")))
	assert.Equal(t, 3, *stored.Stock)

	untracked, err := s.CreateProduct(ctx, ProductInput{Name: "Sticker", Price: decimal.NewFromInt(2), InStock: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, untracked.InStock)
	assert.Nil(t, untracked.Stock)
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	s := NewService(testutil.NewDB(t))
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, ProductInput{Name: "Free", Price: decimal.Zero})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))

	missing := uint(99)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Orphan", Price: decimal.NewFromInt(1), CategoryID: &missing})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))

	_, err = s.CreateProduct(ctx, ProductInput{Name: "Cable", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Cable", Price: decimal.NewFromInt(6)})
	assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
}

func TestListProductsFilters(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	cases, err := s.CreateCategory(ctx, CategoryInput{Name: "Cases"})
	require.NoError(t, err)
	assert.Equal(t, "cases", cases.Slug)

	_, err = s.CreateProduct(ctx, ProductInput{Name: "Clear Case", Price: decimal.NewFromInt(10), CategoryID: &cases.ID, Featured: true})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Armor Case", Price: decimal.NewFromInt(30), CategoryID: &cases.ID, Stock: testutil.IntPtr(0)})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "USB-C Cable", Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	page, err := s.ListProducts(ctx, Filter{Category: "cases", Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Armor Case", page.Products[0].Name)
	require.NotNil(t, page.Products[0].Category)
	assert.Equal(t, "Cases", page.Products[0].Category.Name)

	page, err = s.ListProducts(ctx, Filter{Query: "CASE", InStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = s.ListProducts(ctx, Filter{Featured: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "clear-case", page.Products[0].Slug)

	page, err = s.ListProducts(ctx, Filter{Sort: SortPriceAsc, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Armor Case", page.Products[0].Name)

	got, err := s.GetBySlug(ctx, "usb-c-cable")
	require.NoError(t, err)
	assert.Equal(t, "USB-C Cable", got.Name)

	_, err = s.GetBySlug(ctx, "nope")
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
}

func TestLowStockAndDeletes(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	low := testutil.CreateProduct(t, db, "low", "5.00", testutil.IntPtr(2))
	testutil.CreateProduct(t, db, "plenty", "5.00", testutil.IntPtr(50))
	testutil.CreateProduct(t, db, "untracked", "5.00", nil)
	empty := testutil.CreateProduct(t, db, "empty", "5.00", testutil.IntPtr(0))

	report, err := s.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, empty.ID, report[0].ID)
	assert.Equal(t, low.ID, report[1].ID)

	user := testutil.CreateUser(t, db, "buyer@example.com", model.RoleUser)
	require.NoError(t, db.Create(&model.CartItem{UserID: user.ID, ProductID: low.ID, Quantity: 1}).Error)

	require.NoError(t, s.DeleteProduct(ctx, low.ID))
	assert.Equal(t, apperror.NotFound, apperror.KindOf(s.DeleteProduct(ctx, low.ID)))

	var n int64
	db.Model(&model.CartItem{}).Count(&n)
	assert.Zero(t, n)

	cat, err := s.CreateCategory(ctx, CategoryInput{Name: "Chargers"})
	require.NoError(t, err)
	p, err := s.CreateProduct(ctx, ProductInput{Name: "Charger", Price: decimal.NewFromInt(20), CategoryID: &cat.ID})
	require.NoError(t, err)

	cat, err = s.UpdateCategory(ctx, cat.ID, CategoryInput{Name: "Chargers", NameBG: "Зарядни", Slug: "power"})
	require.NoError(t, err)
	assert.Equal(t, "power", cat.Slug)

	require.NoError(t, s.DeleteCategory(ctx, cat.ID))
	reloaded, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)
}

package main

import (
	"context"
	"fmt"

	"storefront-service/internal/apperror"
	"storefront-service/internal/catalog"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	name, nameBG, price, colors string
	stock                       *int
	featured                    bool
}

var seedCatalog = []struct {
	category catalog.CategoryInput
	products []seedProduct
}{
	{
		category: catalog.CategoryInput{Name: "Cases", NameBG: "Калъфи"},
		products: []seedProduct{
			{name: "Silicone Case", nameBG: "Силиконов калъф", price: "24.90", colors: "black,blue,red", stock: intPtr(40), featured: true},
			{name: "Leather Folio", nameBG: "Кожен калъф тип книга", price: "49.00", colors: "brown,black", stock: intPtr(12)},
		},
	},
	{
		category: catalog.CategoryInput{Name: "Chargers", NameBG: "Зарядни"},
		products: []seedProduct{
			{name: "20W USB-C Charger", nameBG: "Зарядно USB-C 20W", price: "29.00", stock: intPtr(25), featured: true},
			{name: "MagSafe Charger", nameBG: "Зарядно MagSafe", price: "59.00", stock: intPtr(4)},
		},
	},
	{
		category: catalog.CategoryInput{Name: "Screen Protection", NameBG: "Протектори"},
		products: []seedProduct{
			{name: "Tempered Glass", nameBG: "Закалено стъкло", price: "14.90"},
		},
	},
}

func intPtr(v int) *int { return &v }

// seed inserts the demo catalog. Entries whose slug already exists are skipped.
func seed(ctx context.Context, svc *catalog.Service) error {
	existing, err := svc.Categories(ctx)
	if err != nil {
		return err
	}
	bySlug := map[string]uint{}
	for _, c := range existing {
		bySlug[c.Slug] = c.ID
	}

	for _, group := range seedCatalog {
		slug := catalog.Slugify(group.category.Name)
		id, ok := bySlug[slug]
		if !ok {
			c, err := svc.CreateCategory(ctx, group.category)
			if err != nil {
				return fmt.Errorf("category %s: %w", group.category.Name, err)
			}
			id = c.ID
		}

		for _, p := range group.products {
			categoryID := id
			_, err := svc.CreateProduct(ctx, catalog.ProductInput{
				Name:       p.name,
				NameBG:     p.nameBG,
				Price:      decimal.RequireFromString(p.price),
				Stock:      p.stock,
				CategoryID: &categoryID,
				Colors:     p.colors,
				Featured:   p.featured,
			})
			if apperror.Is(err, apperror.Conflict) {
				continue
			}
			if err != nil {
				return fmt.Errorf("product %s: %w", p.name, err)
			}
		}
	}
	fmt.Println("seed complete")
	return nil
}

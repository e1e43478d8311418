package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products in the catalog
type Category struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	NameBG      string         `json:"name_bg" gorm:"type:varchar(255)"`
	Slug        string         `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Product represents a sellable accessory. A nil Stock means the quantity is not tracked.
type Product struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	Name              string           `json:"name" gorm:"type:varchar(255);not null"`
	NameBG            string           `json:"name_bg" gorm:"type:varchar(255)"`
	Slug              string           `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description       string           `json:"description" gorm:"type:text"`
	DescriptionBG     string           `json:"description_bg" gorm:"type:text"`
	Price             decimal.Decimal  `json:"price" gorm:"type:decimal(10,2);not null"`
	OldPrice          *decimal.Decimal `json:"old_price,omitempty" gorm:"type:decimal(10,2)"`
	DiscountPercent   *int             `json:"discount_percent,omitempty"`
	Stock             *int             `json:"stock"`
	InStock           bool             `json:"in_stock" gorm:"not null"`
	LowStockThreshold int              `json:"low_stock_threshold" gorm:"not null;default:5"`
	CategoryID        *uint            `json:"category_id" gorm:"index"`
	Category          *Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ImageURL          string           `json:"image_url" gorm:"type:varchar(512)"`
	Colors            string           `json:"colors" gorm:"type:varchar(512)"`
	Sizes             string           `json:"sizes" gorm:"type:varchar(512)"`
	Featured          bool             `json:"featured" gorm:"not null;default:false"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `json:"-" gorm:"index"`
}

// IsTracked reports whether stock is counted for this product.
func (p *Product) IsTracked() bool {
	return p.Stock != nil
}

// IsLowStock reports whether tracked stock has fallen to the low-stock threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock != nil && *p.Stock <= p.LowStockThreshold
}

// SyncInStock derives InStock from tracked stock.
func (p *Product) SyncInStock() {
	if p.Stock != nil {
		p.InStock = *p.Stock > 0
	}
}

// ColorList returns the configured color options.
func (p *Product) ColorList() []string {
	return splitList(p.Colors)
}

// SizeList returns the configured size options.
func (p *Product) SizeList() []string {
	return splitList(p.Sizes)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

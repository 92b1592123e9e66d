package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID        int              `gorm:"primary_key" json:"id"`
	Name      string           `gorm:"size:255;not null" json:"name"`
	Sku       string           `gorm:"size:100;index" json:"sku"`
	Price     decimal.Decimal  `gorm:"type:decimal(20,2);not null;default:0" json:"price"`
	IsActive  *bool            `gorm:"not null;default:true" json:"is_active"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductId" json:"variants,omitempty"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductVariant struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Sku       string          `gorm:"size:100;index" json:"sku"`
	Price     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// productDisplayNames resolves "Product" or "Product - Variant" for the given
// (product, variant) pairs with two queries.
func productDisplayNames(ctx context.Context, db *gorm.DB, productIds []int, variantIds []int) (map[int]string, map[int]string, error) {
	products := make(map[int]string)
	variants := make(map[int]string)
	if len(productIds) > 0 {
		var rows []Product
		if err := db.WithContext(ctx).Select("id, name").Where("id IN ?", productIds).Find(&rows).Error; err != nil {
			return nil, nil, err
		}
		for _, p := range rows {
			products[p.ID] = p.Name
		}
	}
	if len(variantIds) > 0 {
		var rows []ProductVariant
		if err := db.WithContext(ctx).Select("id, name").Where("id IN ?", variantIds).Find(&rows).Error; err != nil {
			return nil, nil, err
		}
		for _, v := range rows {
			variants[v.ID] = v.Name
		}
	}
	return products, variants, nil
}

func displayName(products, variants map[int]string, productId int, variantId *int) string {
	name := products[productId]
	if variantId != nil {
		if v, ok := variants[*variantId]; ok && v != "" {
			return name + " - " + v
		}
	}
	return name
}

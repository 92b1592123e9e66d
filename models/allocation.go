package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvestorProductAllocation is a batch of stock financed by one investor at a
// fixed purchase price. quantity_remaining + quantity_sold == quantity.
type InvestorProductAllocation struct {
	ID                int             `gorm:"primary_key" json:"id"`
	InvestorId        int             `gorm:"index;not null" json:"investor_id"`
	ProductId         int             `gorm:"index:idx_allocation_fifo,priority:1;not null" json:"product_id"`
	VariantId         *int            `gorm:"index:idx_allocation_fifo,priority:2" json:"variant_id"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	QuantityRemaining int             `gorm:"not null" json:"quantity_remaining"`
	QuantitySold      int             `gorm:"not null;default:0" json:"quantity_sold"`
	PurchasePrice     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"purchase_price"`
	ProfitGenerated   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"profit_generated"`
	CapitalReturned   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"capital_returned"`
	AllocatedAt       time.Time       `gorm:"index:idx_allocation_fifo,priority:3;not null" json:"allocated_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAllocation struct {
	InvestorId    int             `json:"investor_id" validate:"required,gt=0"`
	ProductId     int             `json:"product_id" validate:"required,gt=0"`
	VariantId     *int            `json:"variant_id"`
	Quantity      int             `json:"quantity" validate:"gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	AllocatedAt   time.Time       `json:"allocated_at"`
}

// CreateAllocation records a new allocation and adds its cost to the
// investor's total_invested in one transaction.
func CreateAllocation(ctx context.Context, db *gorm.DB, input *NewAllocation) (*InvestorProductAllocation, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.PurchasePrice.IsNegative() {
		return nil, errors.New("purchase price cannot be negative")
	}
	allocatedAt := input.AllocatedAt
	if allocatedAt.IsZero() {
		allocatedAt = time.Now().UTC()
	}

	allocation := InvestorProductAllocation{
		InvestorId:        input.InvestorId,
		ProductId:         input.ProductId,
		VariantId:         input.VariantId,
		Quantity:          input.Quantity,
		QuantityRemaining: input.Quantity,
		PurchasePrice:     input.PurchasePrice,
		ProfitGenerated:   decimal.Zero,
		CapitalReturned:   decimal.Zero,
		AllocatedAt:       allocatedAt,
	}
	invested := input.PurchasePrice.Mul(decimal.NewFromInt(int64(input.Quantity)))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[Investor](ctx, tx, input.InvestorId); err != nil {
			return errors.New("investor not found")
		}
		if err := tx.Create(&allocation).Error; err != nil {
			return err
		}
		return tx.Model(&Investor{}).Where("id = ?", input.InvestorId).
			Update("total_invested", gorm.Expr("total_invested + ?", invested)).Error
	})
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// LockAllocationsForItem returns the open allocations an order item can draw
// from, oldest first, locked FOR UPDATE. A variant-less item matches every
// allocation of the product.
func LockAllocationsForItem(tx *gorm.DB, productId int, variantId *int) ([]InvestorProductAllocation, error) {
	var allocations []InvestorProductAllocation
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND quantity_remaining > 0", productId)
	if variantId != nil {
		q = q.Where("variant_id = ?", *variantId)
	}
	if err := q.Order("allocated_at ASC, id ASC").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// ApplySale moves take units from remaining to sold and accrues the returns.
func (a *InvestorProductAllocation) ApplySale(tx *gorm.DB, take int, profitShare, capital decimal.Decimal) error {
	a.QuantitySold += take
	a.QuantityRemaining -= take
	a.ProfitGenerated = a.ProfitGenerated.Add(profitShare)
	a.CapitalReturned = a.CapitalReturned.Add(capital)
	return tx.Model(&InvestorProductAllocation{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"quantity_sold":      a.QuantitySold,
		"quantity_remaining": a.QuantityRemaining,
		"profit_generated":   a.ProfitGenerated,
		"capital_returned":   a.CapitalReturned,
	}).Error
}

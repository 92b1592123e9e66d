package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitDistribution is the append-only record of one allocation slice sold
// through one order item.
type ProfitDistribution struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrderId         int             `gorm:"index;not null" json:"order_id"`
	OrderItemId     int             `gorm:"not null;index:uniq_distribution_slice,unique,priority:2" json:"order_item_id"`
	InvestorId      int             `gorm:"index;not null" json:"investor_id"`
	AllocationId    int             `gorm:"not null;index:uniq_distribution_slice,unique,priority:1" json:"allocation_id"`
	ProductId       int             `gorm:"not null" json:"product_id"`
	VariantId       *int            `json:"variant_id"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"purchase_price"`
	Revenue         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"revenue"`
	Cost            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"cost"`
	GrossProfit     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"gross_profit"`
	CompanyShare    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"company_share"`
	InvestorShare   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"investor_share"`
	CapitalReturned decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"capital_returned"`
	CorrelationId   string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestorTransaction is the investor-facing ledger line. Balance columns are
// snapshots taken right after the credit was applied.
type InvestorTransaction struct {
	ID                 int                     `gorm:"primary_key" json:"id"`
	InvestorId         int                     `gorm:"index;not null" json:"investor_id"`
	OrderId            int                     `gorm:"index;not null" json:"order_id"`
	DistributionId     int                     `gorm:"index;not null" json:"distribution_id"`
	Type               InvestorTransactionType `gorm:"size:30;not null" json:"type"`
	Amount             decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"amount"`
	CapitalAmount      decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"capital_amount"`
	ProfitAmount       decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"profit_amount"`
	CashBalanceAfter   decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"cash_balance_after"`
	ProfitBalanceAfter decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"profit_balance_after"`
	TotalProfitAfter   decimal.Decimal         `gorm:"type:decimal(20,2);not null" json:"total_profit_after"`
	Description        string                  `gorm:"size:255" json:"description"`
	CorrelationId      string                  `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt          time.Time               `gorm:"autoCreateTime" json:"created_at"`
}

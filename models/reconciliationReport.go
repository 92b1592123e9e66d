package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	ReconciliationCheckAllocationQuantity = "ALLOCATION_QUANTITY"
	ReconciliationCheckAllocationLedger   = "ALLOCATION_LEDGER"
	ReconciliationCheckInvestorLedger     = "INVESTOR_LEDGER"
)

// Drift detection output (nightly/admin-triggered).
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"`  // e.g. ALLOCATION_QUANTITY
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"` // e.g. InvestorProductAllocation, Investor
	EntityId      int       `gorm:"index;not null" json:"entity_id"`
	Details       string    `gorm:"type:text" json:"details"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func ListReconciliationReports(ctx context.Context, db *gorm.DB, correlationId string) ([]ReconciliationReport, error) {
	var reports []ReconciliationReport
	err := db.WithContext(ctx).Where("correlation_id = ?", correlationId).Order("id ASC").Find(&reports).Error
	return reports, err
}

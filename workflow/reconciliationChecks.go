package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/models"
	"gorm.io/gorm"
)

// RunAllocationReconciliation writes mismatch rows to reconciliation_reports
// and returns them. It only reads settlement data, never repairs it.
// Run on a schedule (nightly) or via an admin trigger.
func RunAllocationReconciliation(ctx context.Context, db *gorm.DB, logger *logrus.Logger) (string, []models.ReconciliationReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return "", nil, fmt.Errorf("db is nil")
	}
	cid := models.CorrelationIdFromContextOrNew(ctx)
	now := time.Now().UTC()

	var issues []models.ReconciliationReport
	report := func(checkType, entityType string, entityId int, details string) {
		issues = append(issues, models.ReconciliationReport{
			CheckType:     checkType,
			EntityType:    entityType,
			EntityId:      entityId,
			Details:       details,
			CorrelationId: cid,
			CreatedAt:     now,
		})
	}

	// 1) quantity conservation
	var allocations []models.InvestorProductAllocation
	if err := db.WithContext(ctx).Order("id ASC").Find(&allocations).Error; err != nil {
		return cid, nil, err
	}
	for _, a := range allocations {
		if a.QuantityRemaining < 0 || a.QuantityRemaining+a.QuantitySold != a.Quantity {
			report(models.ReconciliationCheckAllocationQuantity, "InvestorProductAllocation", a.ID,
				fmt.Sprintf("quantity=%d remaining=%d sold=%d", a.Quantity, a.QuantityRemaining, a.QuantitySold))
		}
	}

	// 2) allocation running totals vs profit_distributions
	type sliceRow struct {
		AllocationId    int
		Quantity        int
		InvestorShare   decimal.Decimal
		CapitalReturned decimal.Decimal
	}
	var slices []sliceRow
	if err := db.WithContext(ctx).Model(&models.ProfitDistribution{}).
		Select("allocation_id, quantity, investor_share, capital_returned").
		Scan(&slices).Error; err != nil {
		return cid, nil, err
	}
	type ledgerTotals struct {
		quantity int
		profit   decimal.Decimal
		capital  decimal.Decimal
	}
	totals := make(map[int]*ledgerTotals)
	for _, s := range slices {
		t, ok := totals[s.AllocationId]
		if !ok {
			t = &ledgerTotals{}
			totals[s.AllocationId] = t
		}
		t.quantity += s.Quantity
		t.profit = t.profit.Add(s.InvestorShare)
		t.capital = t.capital.Add(s.CapitalReturned)
	}
	for _, a := range allocations {
		t, ok := totals[a.ID]
		if !ok {
			t = &ledgerTotals{}
		}
		if !a.ProfitGenerated.Equal(t.profit) || !a.CapitalReturned.Equal(t.capital) || a.QuantitySold != t.quantity {
			report(models.ReconciliationCheckAllocationLedger, "InvestorProductAllocation", a.ID,
				fmt.Sprintf("sold=%d profit_generated=%s capital_returned=%s != distributions sold=%d profit=%s capital=%s",
					a.QuantitySold, a.ProfitGenerated.StringFixed(2), a.CapitalReturned.StringFixed(2),
					t.quantity, t.profit.StringFixed(2), t.capital.StringFixed(2)))
		}
	}

	// 3) investor balances vs latest ledger snapshot
	var investors []models.Investor
	if err := db.WithContext(ctx).Order("id ASC").Find(&investors).Error; err != nil {
		return cid, nil, err
	}
	for _, inv := range investors {
		var latest models.InvestorTransaction
		res := db.WithContext(ctx).Where("investor_id = ?", inv.ID).Order("id DESC").Limit(1).Find(&latest)
		if res.Error != nil {
			return cid, nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		if !latest.CashBalanceAfter.Equal(inv.CashBalance) ||
			!latest.ProfitBalanceAfter.Equal(inv.ProfitBalance) ||
			!latest.TotalProfitAfter.Equal(inv.TotalProfit) {
			report(models.ReconciliationCheckInvestorLedger, "Investor", inv.ID,
				fmt.Sprintf("balances cash=%s profit=%s total=%s != transaction #%d cash=%s profit=%s total=%s",
					inv.CashBalance.StringFixed(2), inv.ProfitBalance.StringFixed(2), inv.TotalProfit.StringFixed(2),
					latest.ID, latest.CashBalanceAfter.StringFixed(2), latest.ProfitBalanceAfter.StringFixed(2), latest.TotalProfitAfter.StringFixed(2)))
		}
	}

	if len(issues) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(&issues, 100).Error; err != nil {
			return cid, nil, err
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":          "ReconciliationChecks",
			"correlation_id": cid,
			"allocations":    len(allocations),
			"investors":      len(investors),
			"issues":         len(issues),
		}).Info("allocation reconciliation completed")
	}
	return cid, issues, nil
}

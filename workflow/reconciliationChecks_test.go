package workflow

import (
	"context"
	"testing"

	"github.com/stitchline/store_backend/models"
	"gorm.io/gorm"
)

func TestAllocationReconciliationCleanAfterSettlement(t *testing.T) {
	db := newSettlementDB(t)
	ctx := context.Background()

	inv := mustInvestor(t, db, "Rita")
	p := mustProduct(t, db, "Bag")
	mustAllocation(t, db, inv.ID, p.ID, nil, 4, "6", 0)
	mustAllocation(t, db, inv.ID, p.ID, nil, 4, "6", 1)
	order := mustOrder(t, db, item(p.ID, 6, "10"))
	if _, err := CompleteOrder(ctx, db, quietLogger(), order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	cid, issues, err := RunAllocationReconciliation(ctx, db, quietLogger())
	if err != nil {
		t.Fatalf("RunAllocationReconciliation: %v", err)
	}
	if cid == "" {
		t.Fatalf("missing correlation id")
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
}

func TestAllocationReconciliationReportsDrift(t *testing.T) {
	db := newSettlementDB(t)
	ctx := context.Background()

	inv := mustInvestor(t, db, "Rex")
	p := mustProduct(t, db, "Boot")
	alloc := mustAllocation(t, db, inv.ID, p.ID, nil, 5, "6", 0)
	order := mustOrder(t, db, item(p.ID, 2, "10"))
	if _, err := CompleteOrder(ctx, db, quietLogger(), order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	if err := db.Model(&models.InvestorProductAllocation{}).Where("id = ?", alloc.ID).
		Update("quantity_sold", gorm.Expr("quantity_sold + 1")).Error; err != nil {
		t.Fatalf("tamper allocation: %v", err)
	}
	if err := db.Model(&models.Investor{}).Where("id = ?", inv.ID).
		Update("cash_balance", dec("999")).Error; err != nil {
		t.Fatalf("tamper investor: %v", err)
	}

	cid, issues, err := RunAllocationReconciliation(ctx, db, quietLogger())
	if err != nil {
		t.Fatalf("RunAllocationReconciliation: %v", err)
	}
	found := map[string]bool{}
	for _, issue := range issues {
		found[issue.CheckType] = true
	}
	for _, check := range []string{
		models.ReconciliationCheckAllocationQuantity,
		models.ReconciliationCheckAllocationLedger,
		models.ReconciliationCheckInvestorLedger,
	} {
		if !found[check] {
			t.Fatalf("missing %s in %+v", check, issues)
		}
	}

	stored, err := models.ListReconciliationReports(ctx, db, cid)
	if err != nil {
		t.Fatalf("ListReconciliationReports: %v", err)
	}
	if len(stored) != len(issues) {
		t.Fatalf("stored=%d issues=%d", len(stored), len(issues))
	}

	// reconciliation never repairs
	if got := reloadInvestor(t, db, inv.ID); !got.CashBalance.Equal(dec("999")) {
		t.Fatalf("cash balance repaired: %s", got.CashBalance)
	}
}

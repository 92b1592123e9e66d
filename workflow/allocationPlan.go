package workflow

import (
	"github.com/shopspring/decimal"
	"github.com/stitchline/store_backend/models"
)

var two = decimal.NewFromInt(2)

// AllocationSlice is the part of one order item drawn from one allocation.
// Unprofitable slices carry Profitable=false and zero money amounts.
type AllocationSlice struct {
	AllocationId    int
	InvestorId      int
	Take            int
	UnitPrice       decimal.Decimal
	PurchasePrice   decimal.Decimal
	UnitProfit      decimal.Decimal
	Revenue         decimal.Decimal
	Cost            decimal.Decimal
	GrossProfit     decimal.Decimal
	CompanyShare    decimal.Decimal
	InvestorShare   decimal.Decimal
	CapitalReturned decimal.Decimal
	Profitable      bool
}

// SplitProfit halves total profit. The investor half is truncated to cents,
// so any odd cent stays with the company.
func SplitProfit(totalProfit decimal.Decimal) (companyShare, investorShare decimal.Decimal) {
	investorShare = totalProfit.Div(two).Truncate(2)
	companyShare = totalProfit.Sub(investorShare)
	return companyShare, investorShare
}

// PlanItemSettlement walks allocations in the given (FIFO) order and returns
// the slices an item of quantity units at unitPrice consumes, plus the
// quantity left unsettled once allocations run out.
//
// A slice whose purchase price is not below unitPrice is reported but moves
// no money and, when applied, leaves the allocation counters untouched. Its
// units still count against the item.
func PlanItemSettlement(quantity int, unitPrice decimal.Decimal, allocations []models.InvestorProductAllocation) ([]AllocationSlice, int) {
	remaining := quantity
	var slices []AllocationSlice

	for _, allocation := range allocations {
		if remaining <= 0 {
			break
		}
		take := min(remaining, allocation.QuantityRemaining)
		if take <= 0 {
			continue
		}

		unitProfit := unitPrice.Sub(allocation.PurchasePrice)
		slice := AllocationSlice{
			AllocationId:  allocation.ID,
			InvestorId:    allocation.InvestorId,
			Take:          take,
			UnitPrice:     unitPrice,
			PurchasePrice: allocation.PurchasePrice,
			UnitProfit:    unitProfit,
		}
		if unitProfit.IsPositive() {
			qty := decimal.NewFromInt(int64(take))
			slice.Profitable = true
			slice.Revenue = unitPrice.Mul(qty)
			slice.Cost = allocation.PurchasePrice.Mul(qty)
			slice.GrossProfit = unitProfit.Mul(qty)
			slice.CompanyShare, slice.InvestorShare = SplitProfit(slice.GrossProfit)
			slice.CapitalReturned = slice.Cost
		}
		slices = append(slices, slice)
		remaining -= take
	}
	return slices, max(remaining, 0)
}

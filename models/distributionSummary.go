package models

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DistributionSummary is the per-slice view returned to the caller that
// completed an order.
type DistributionSummary struct {
	DistributionId  int             `json:"distribution_id"`
	InvestorId      int             `json:"investor_id"`
	InvestorName    string          `json:"investor_name"`
	AllocationId    int             `json:"allocation_id"`
	OrderItemId     int             `json:"order_item_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	CapitalReturned decimal.Decimal `json:"capital_returned"`
	ProfitShare     decimal.Decimal `json:"profit_share"`
	TotalReturned   decimal.Decimal `json:"total_returned"`
}

// SummarizeDistributions resolves investor and product names for the given
// distribution rows, preserving their order.
func SummarizeDistributions(ctx context.Context, db *gorm.DB, rows []ProfitDistribution) ([]DistributionSummary, error) {
	summaries := make([]DistributionSummary, 0, len(rows))
	if len(rows) == 0 {
		return summaries, nil
	}

	var investorIds, productIds, variantIds []int
	for _, r := range rows {
		investorIds = append(investorIds, r.InvestorId)
		productIds = append(productIds, r.ProductId)
		if r.VariantId != nil {
			variantIds = append(variantIds, *r.VariantId)
		}
	}

	var investors []Investor
	if err := db.WithContext(ctx).Select("id, name").Where("id IN ?", investorIds).Find(&investors).Error; err != nil {
		return nil, err
	}
	investorNames := make(map[int]string, len(investors))
	for _, inv := range investors {
		investorNames[inv.ID] = inv.Name
	}
	products, variants, err := productDisplayNames(ctx, db, productIds, variantIds)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		summaries = append(summaries, DistributionSummary{
			DistributionId:  r.ID,
			InvestorId:      r.InvestorId,
			InvestorName:    investorNames[r.InvestorId],
			AllocationId:    r.AllocationId,
			OrderItemId:     r.OrderItemId,
			ProductName:     displayName(products, variants, r.ProductId, r.VariantId),
			Quantity:        r.Quantity,
			CapitalReturned: r.CapitalReturned,
			ProfitShare:     r.InvestorShare,
			TotalReturned:   r.CapitalReturned.Add(r.InvestorShare),
		})
	}
	return summaries, nil
}

func GetDistributionsByOrder(ctx context.Context, db *gorm.DB, orderId int) ([]ProfitDistribution, error) {
	var rows []ProfitDistribution
	err := db.WithContext(ctx).Where("order_id = ?", orderId).Order("id ASC").Find(&rows).Error
	return rows, err
}

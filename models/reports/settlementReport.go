package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
)

type OrderDistributionReport struct {
	Order         *models.Order                `json:"order"`
	Distributions []models.DistributionSummary `json:"distributions"`
	TotalCapital  decimal.Decimal              `json:"total_capital"`
	TotalProfit   decimal.Decimal              `json:"total_profit"`
	TotalReturned decimal.Decimal              `json:"total_returned"`
}

/*
caches:
	OrderDistributionReport:$orderId (delivered orders only)
*/

func orderReportCacheKey(orderId int) string {
	return fmt.Sprintf("OrderDistributionReport:%d", orderId)
}

// GetOrderDistributions lists what each investor received for the order.
// An order that was never settled yields an empty list.
func GetOrderDistributions(ctx context.Context, orderId int) ([]models.DistributionSummary, error) {
	report, err := GetOrderDistributionReport(ctx, orderId)
	if err != nil {
		return nil, err
	}
	return report.Distributions, nil
}

// GetOrderDistributionReport is cached once the order is Delivered, since a
// settled order's distributions never change.
func GetOrderDistributionReport(ctx context.Context, orderId int) (*OrderDistributionReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "OrderDistributionReport", started, map[string]any{"order_id": orderId})

	var cached OrderDistributionReport
	if ok, err := cacheGet(orderReportCacheKey(orderId), &cached); err == nil && ok {
		return &cached, nil
	}

	db := config.GetDB()
	order, err := models.GetOrder(ctx, db, orderId)
	if err != nil {
		return nil, err
	}
	rows, err := models.GetDistributionsByOrder(ctx, db, orderId)
	if err != nil {
		return nil, err
	}
	summaries, err := models.SummarizeDistributions(ctx, db, rows)
	if err != nil {
		return nil, fmt.Errorf("summarize distributions: %w", err)
	}

	report := OrderDistributionReport{
		Order:         order,
		Distributions: summaries,
		TotalCapital:  decimal.Zero,
		TotalProfit:   decimal.Zero,
		TotalReturned: decimal.Zero,
	}
	for _, s := range summaries {
		report.TotalCapital = report.TotalCapital.Add(s.CapitalReturned)
		report.TotalProfit = report.TotalProfit.Add(s.ProfitShare)
		report.TotalReturned = report.TotalReturned.Add(s.TotalReturned)
	}

	if order.Status == models.OrderStatusDelivered {
		if err := cacheSet(orderReportCacheKey(orderId), &report); err != nil {
			config.LogError(config.GetLogger(), "reports", "GetOrderDistributionReport", "cache report", orderId, err)
		}
	}
	return &report, nil
}

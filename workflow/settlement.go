package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/stitchline/store_backend/workflow")

type SettlementResult struct {
	Order         *models.Order                `json:"order"`
	Distributions []models.DistributionSummary `json:"distributions"`
}

// OrderSettledEvent is the outbox payload for ORDER_SETTLED.
type OrderSettledEvent struct {
	OrderId       int                          `json:"order_id"`
	OrderNumber   string                       `json:"order_number"`
	DeliveredAt   time.Time                    `json:"delivered_at"`
	Distributions []models.DistributionSummary `json:"distributions"`
}

// CompleteOrder marks the order Delivered and distributes the proceeds of
// every item across investor allocations, oldest allocation first, all in
// one transaction.
//
// Returns models.ErrOrderNotFound, models.ErrOrderAlreadyCompleted, or a
// *models.SettlementFailedError; in every error case nothing is persisted.
func CompleteOrder(ctx context.Context, db *gorm.DB, logger *logrus.Logger, orderId int) (*SettlementResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.CompleteOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order.id", orderId))

	correlationId := models.CorrelationIdFromContextOrNew(ctx)
	ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

	var result *SettlementResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) (txErr error) {
		defer func() {
			if r := recover(); r != nil {
				txErr = fmt.Errorf("panic during settlement: %v", r)
			}
		}()

		order, err := models.LockOrderForSettlement(tx, orderId)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusDelivered {
			return models.ErrOrderAlreadyCompleted
		}

		var distributions []models.ProfitDistribution
		for _, item := range order.Items {
			itemDistributions, err := settleOrderItem(tx, logger, order, item, correlationId)
			if err != nil {
				return err
			}
			distributions = append(distributions, itemDistributions...)
		}

		if err := models.MarkOrderDelivered(tx, order, time.Now().UTC()); err != nil {
			return err
		}

		summaries, err := models.SummarizeDistributions(ctx, tx, distributions)
		if err != nil {
			return err
		}

		if _, err := models.AppendOutboxMessage(ctx, tx, models.OutboxEventOrderSettled, models.OutboxReferenceOrder, order.ID, OrderSettledEvent{
			OrderId:       order.ID,
			OrderNumber:   order.OrderNumber,
			DeliveredAt:   *order.DeliveredAt,
			Distributions: summaries,
		}); err != nil {
			return err
		}

		result = &SettlementResult{Order: order, Distributions: summaries}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) || errors.Is(err, models.ErrOrderAlreadyCompleted) {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		config.LogError(logger, "workflow", "CompleteOrder", "settlement transaction", map[string]interface{}{
			"order_id":       orderId,
			"correlation_id": correlationId,
		}, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		return nil, &models.SettlementFailedError{OrderId: orderId, Err: err}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":          "CompleteOrder",
			"order_id":       orderId,
			"distributions":  len(result.Distributions),
			"correlation_id": correlationId,
		}).Info("order settled")
	}
	span.SetAttributes(attribute.Int("settlement.distributions", len(result.Distributions)))
	return result, nil
}

// settleOrderItem applies the FIFO plan of one item and returns the
// distribution rows it created.
func settleOrderItem(tx *gorm.DB, logger *logrus.Logger, order *models.Order, item models.OrderItem, correlationId string) ([]models.ProfitDistribution, error) {
	if item.Quantity <= 0 {
		return nil, nil
	}
	allocations, err := models.LockAllocationsForItem(tx, item.ProductId, item.VariantId)
	if err != nil {
		return nil, err
	}
	byId := make(map[int]*models.InvestorProductAllocation, len(allocations))
	for i := range allocations {
		byId[allocations[i].ID] = &allocations[i]
	}

	slices, unsettled := PlanItemSettlement(item.Quantity, item.UnitPrice, allocations)

	var distributions []models.ProfitDistribution
	for _, slice := range slices {
		if !slice.Profitable {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"field":          "CompleteOrder",
					"order_id":       order.ID,
					"order_item_id":  item.ID,
					"allocation_id":  slice.AllocationId,
					"quantity":       slice.Take,
					"unit_price":     slice.UnitPrice.String(),
					"purchase_price": slice.PurchasePrice.String(),
				}).Warn("unprofitable allocation slice skipped; allocation counters not advanced")
			}
			continue
		}

		distribution, err := applySlice(tx, order, item, byId[slice.AllocationId], slice, correlationId)
		if err != nil {
			return nil, err
		}
		distributions = append(distributions, *distribution)
	}

	if unsettled > 0 && logger != nil {
		logger.WithFields(logrus.Fields{
			"field":         "CompleteOrder",
			"order_id":      order.ID,
			"order_item_id": item.ID,
			"unsettled":     unsettled,
		}).Info("allocations exhausted before item quantity was settled")
	}
	return distributions, nil
}

func applySlice(tx *gorm.DB, order *models.Order, item models.OrderItem, allocation *models.InvestorProductAllocation, slice AllocationSlice, correlationId string) (*models.ProfitDistribution, error) {
	if allocation == nil {
		return nil, fmt.Errorf("allocation %d missing from locked set", slice.AllocationId)
	}
	investor, err := models.LockInvestor(tx, slice.InvestorId)
	if err != nil {
		return nil, fmt.Errorf("investor %d for allocation %d: %w", slice.InvestorId, slice.AllocationId, err)
	}

	if err := allocation.ApplySale(tx, slice.Take, slice.InvestorShare, slice.CapitalReturned); err != nil {
		return nil, err
	}
	if err := investor.CreditSettlement(tx, slice.CapitalReturned, slice.InvestorShare); err != nil {
		return nil, err
	}

	distribution := models.ProfitDistribution{
		OrderId:         order.ID,
		OrderItemId:     item.ID,
		InvestorId:      slice.InvestorId,
		AllocationId:    slice.AllocationId,
		ProductId:       item.ProductId,
		VariantId:       item.VariantId,
		Quantity:        slice.Take,
		UnitPrice:       slice.UnitPrice,
		PurchasePrice:   slice.PurchasePrice,
		Revenue:         slice.Revenue,
		Cost:            slice.Cost,
		GrossProfit:     slice.GrossProfit,
		CompanyShare:    slice.CompanyShare,
		InvestorShare:   slice.InvestorShare,
		CapitalReturned: slice.CapitalReturned,
		CorrelationId:   correlationId,
	}
	if err := tx.Create(&distribution).Error; err != nil {
		return nil, err
	}

	transaction := models.InvestorTransaction{
		InvestorId:         investor.ID,
		OrderId:            order.ID,
		DistributionId:     distribution.ID,
		Type:               models.InvestorTransactionTypeProfitDistribution,
		Amount:             slice.CapitalReturned.Add(slice.InvestorShare),
		CapitalAmount:      slice.CapitalReturned,
		ProfitAmount:       slice.InvestorShare,
		CashBalanceAfter:   investor.CashBalance,
		ProfitBalanceAfter: investor.ProfitBalance,
		TotalProfitAfter:   investor.TotalProfit,
		Description:        fmt.Sprintf("Order %s: %d unit(s) from allocation #%d", order.OrderNumber, slice.Take, slice.AllocationId),
		CorrelationId:      correlationId,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return nil, err
	}
	return &distribution, nil
}

package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/testutil"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newSettlementDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.OpenSQLite(t, models.AutoMigrate)
}

func mustInvestor(t *testing.T, db *gorm.DB, name string) *models.Investor {
	t.Helper()
	investor, err := models.CreateInvestor(context.Background(), db, &models.NewInvestor{
		Name:  name,
		Email: strings.ToLower(name) + "@example.com",
	})
	if err != nil {
		t.Fatalf("CreateInvestor(%s): %v", name, err)
	}
	return investor
}

func mustProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := models.Product{Name: name, Sku: strings.ToUpper(name)}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return &product
}

func mustVariant(t *testing.T, db *gorm.DB, productId int, name string) *models.ProductVariant {
	t.Helper()
	variant := models.ProductVariant{ProductId: productId, Name: name}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return &variant
}

var fixtureEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// mustAllocation allocates qty units; day orders allocations oldest first.
func mustAllocation(t *testing.T, db *gorm.DB, investorId, productId int, variantId *int, qty int, price string, day int) *models.InvestorProductAllocation {
	t.Helper()
	allocation, err := models.CreateAllocation(context.Background(), db, &models.NewAllocation{
		InvestorId:    investorId,
		ProductId:     productId,
		VariantId:     variantId,
		Quantity:      qty,
		PurchasePrice: dec(price),
		AllocatedAt:   fixtureEpoch.AddDate(0, 0, day),
	})
	if err != nil {
		t.Fatalf("CreateAllocation: %v", err)
	}
	return allocation
}

var orderSeq int

func mustOrder(t *testing.T, db *gorm.DB, items ...models.NewOrderItem) *models.Order {
	t.Helper()
	orderSeq++
	order, err := models.CreateOrder(context.Background(), db, &models.NewOrder{
		OrderNumber:   fmt.Sprintf("SO-%05d", orderSeq),
		CustomerName:  "Walk-in",
		CustomerEmail: "buyer@example.com",
		Items:         items,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func item(productId, qty int, price string) models.NewOrderItem {
	return models.NewOrderItem{ProductId: productId, Quantity: qty, UnitPrice: dec(price)}
}

func reloadAllocation(t *testing.T, db *gorm.DB, id int) models.InvestorProductAllocation {
	t.Helper()
	var a models.InvestorProductAllocation
	if err := db.First(&a, id).Error; err != nil {
		t.Fatalf("reload allocation %d: %v", id, err)
	}
	return a
}

func reloadInvestor(t *testing.T, db *gorm.DB, id int) models.Investor {
	t.Helper()
	inv, err := models.GetInvestor(context.Background(), db, id)
	if err != nil {
		t.Fatalf("reload investor %d: %v", id, err)
	}
	return *inv
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

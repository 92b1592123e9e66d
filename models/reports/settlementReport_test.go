package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/testutil"
	"github.com/stitchline/store_backend/workflow"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func settledOrder(t *testing.T) (*gorm.DB, *models.Order) {
	t.Helper()
	db := testutil.OpenSQLite(t, models.AutoMigrate)
	ctx := context.Background()

	inv, err := models.CreateInvestor(ctx, db, &models.NewInvestor{Name: "Hana", Email: "hana@example.com"})
	if err != nil {
		t.Fatalf("CreateInvestor: %v", err)
	}
	product := models.Product{Name: "Apron"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := models.CreateAllocation(ctx, db, &models.NewAllocation{
		InvestorId:    inv.ID,
		ProductId:     product.ID,
		Quantity:      1000,
		PurchasePrice: decimal.RequireFromString("6"),
	}); err != nil {
		t.Fatalf("CreateAllocation: %v", err)
	}
	order, err := models.CreateOrder(ctx, db, &models.NewOrder{
		OrderNumber: "SO-900",
		Items: []models.NewOrderItem{
			{ProductId: product.ID, Quantity: 250, UnitPrice: decimal.RequireFromString("10")},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if _, err := workflow.CompleteOrder(ctx, db, logger, order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	return db, order
}

func TestGetOrderDistributionReportTotals(t *testing.T) {
	_, order := settledOrder(t)

	report, err := GetOrderDistributionReport(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrderDistributionReport: %v", err)
	}
	if len(report.Distributions) != 1 {
		t.Fatalf("distributions = %+v", report.Distributions)
	}
	if !report.TotalCapital.Equal(decimal.RequireFromString("1500")) ||
		!report.TotalProfit.Equal(decimal.RequireFromString("500")) ||
		!report.TotalReturned.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("totals capital=%s profit=%s returned=%s", report.TotalCapital, report.TotalProfit, report.TotalReturned)
	}

	if _, err := GetOrderDistributions(context.Background(), order.ID+1); !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatalf("missing order err=%v", err)
	}
}

func TestExportOrderDistributions(t *testing.T) {
	t.Setenv("CURRENCY_SYMBOL", "$")
	_, order := settledOrder(t)

	f, err := ExportOrderDistributions(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ExportOrderDistributions: %v", err)
	}
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(distributionSheet, axis)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", axis, err)
		}
		return v
	}
	if got := cell("A1"); got != "Order SO-900" {
		t.Fatalf("A1 = %q", got)
	}
	if got := cell("A3"); got != "Investor" {
		t.Fatalf("A3 = %q", got)
	}
	if got := cell("A4"); got != "Hana" {
		t.Fatalf("A4 = %q", got)
	}
	if got := cell("C4"); got != "250" {
		t.Fatalf("C4 = %q", got)
	}
	if got := cell("G4"); got != "$2,000.00" {
		t.Fatalf("G4 = %q", got)
	}
	if got := cell("A5"); got != "Total" {
		t.Fatalf("A5 = %q", got)
	}
}

func TestArchiveOrderDistributionsUploadsWorkbook(t *testing.T) {
	_, order := settledOrder(t)

	var gotName, gotType string
	var gotData []byte
	prev := uploadArchive
	uploadArchive = func(_ context.Context, objectName string, data []byte, contentType string) (string, error) {
		gotName, gotData, gotType = objectName, data, contentType
		return "gs://test-bucket/" + objectName, nil
	}
	t.Cleanup(func() { uploadArchive = prev })

	name, err := ArchiveOrderDistributions(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ArchiveOrderDistributions: %v", err)
	}
	if name != gotName || !strings.HasPrefix(name, "settlements/order-") || !strings.HasSuffix(name, ".xlsx") {
		t.Fatalf("object name %q (uploaded %q)", name, gotName)
	}
	if gotType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("content type %q", gotType)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(gotData))
	if err != nil {
		t.Fatalf("uploaded bytes are not a workbook: %v", err)
	}
	defer wb.Close()
	if v, _ := wb.GetCellValue(distributionSheet, "A4"); v != "Hana" {
		t.Fatalf("uploaded A4 = %q", v)
	}
}

func TestArchiveOrderDistributionsPropagatesUploadError(t *testing.T) {
	_, order := settledOrder(t)

	prev := uploadArchive
	uploadArchive = func(context.Context, string, []byte, string) (string, error) {
		return "", errors.New("bucket missing")
	}
	t.Cleanup(func() { uploadArchive = prev })

	if _, err := ArchiveOrderDistributions(context.Background(), order.ID); err == nil {
		t.Fatalf("expected upload error")
	}
}

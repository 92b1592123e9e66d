package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/utils"
	"github.com/xuri/excelize/v2"
)

const distributionSheet = "Distributions"

var distributionHeadings = []string{
	"Investor", "Product", "Quantity", "Capital Returned", "Profit Share", "Total Returned", "Total (display)",
}

// uploadArchive is swapped in tests.
var uploadArchive = utils.UploadBytesToGCS

// ExportOrderDistributions builds a workbook with one row per distribution
// and a totals row. Money cells are numeric; column G carries the display
// string in CURRENCY_SYMBOL.
func ExportOrderDistributions(ctx context.Context, orderId int) (*excelize.File, error) {
	report, err := GetOrderDistributionReport(ctx, orderId)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", distributionSheet); err != nil {
		return nil, err
	}

	if err := f.SetCellValue(distributionSheet, "A1", fmt.Sprintf("Order %s", report.Order.OrderNumber)); err != nil {
		return nil, err
	}
	col := 'A'
	for _, h := range distributionHeadings {
		f.SetCellValue(distributionSheet, string(col)+"3", h)
		col++
	}

	symbol := config.CurrencySymbol()
	rowNo := 4
	for _, d := range report.Distributions {
		row := fmt.Sprint(rowNo)
		f.SetCellValue(distributionSheet, "A"+row, d.InvestorName)
		f.SetCellValue(distributionSheet, "B"+row, d.ProductName)
		f.SetCellValue(distributionSheet, "C"+row, d.Quantity)
		f.SetCellValue(distributionSheet, "D"+row, d.CapitalReturned.InexactFloat64())
		f.SetCellValue(distributionSheet, "E"+row, d.ProfitShare.InexactFloat64())
		f.SetCellValue(distributionSheet, "F"+row, d.TotalReturned.InexactFloat64())
		f.SetCellValue(distributionSheet, "G"+row, utils.FormatMoney(d.TotalReturned, symbol))
		rowNo++
	}

	row := fmt.Sprint(rowNo)
	f.SetCellValue(distributionSheet, "A"+row, "Total")
	f.SetCellValue(distributionSheet, "D"+row, report.TotalCapital.InexactFloat64())
	f.SetCellValue(distributionSheet, "E"+row, report.TotalProfit.InexactFloat64())
	f.SetCellValue(distributionSheet, "F"+row, report.TotalReturned.InexactFloat64())
	f.SetCellValue(distributionSheet, "G"+row, utils.FormatMoney(report.TotalReturned, symbol))

	return f, nil
}

// ArchiveOrderDistributions uploads the export to GCS_BUCKET and returns the
// object name.
func ArchiveOrderDistributions(ctx context.Context, orderId int) (string, error) {
	f, err := ExportOrderDistributions(ctx, orderId)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("settlements/order-%d-%d.xlsx", orderId, time.Now().Unix())
	if _, err := uploadArchive(ctx, objectName, buf.Bytes(), utils.XlsxContentType); err != nil {
		config.LogError(config.GetLogger(), "reports", "ArchiveOrderDistributions", "upload", objectName, err)
		return "", err
	}
	return objectName, nil
}

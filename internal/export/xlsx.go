// Package export renders receipt lists as spreadsheets.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

// SheetName is the worksheet that holds the receipt rows.
const SheetName = "Receipts"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"Date",
	"Category",
	"Product",
	"Store",
	"Location",
	"Price",
	"Currency",
	"Valid Until",
	"Refundable Until",
}

// ReceiptsXLSX returns a workbook (as bytes) with one row per receipt in
// the given order.
func ReceiptsXLSX(recs []entity.Receipt, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	// rename the default sheet instead of leaving an empty "Sheet1" behind
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, bold)
	}
	money, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, dateOnly(r.Date))
		write(2, r.Category)
		write(3, r.ProductName)
		write(4, r.StoreName)
		write(5, r.StoreLocation)
		write(6, r.Price.Float64())
		write(7, r.Currency)
		write(8, dateOnly(r.ValidUptoDate))
		write(9, dateOnly(r.RefundableUptoDate))
		if money != 0 {
			cell, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(SheetName, cell, cell, money)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 12)
	_ = f.SetColWidth(SheetName, "B", "B", 14)
	_ = f.SetColWidth(SheetName, "C", "E", 28)
	_ = f.SetColWidth(SheetName, "F", "G", 10)
	_ = f.SetColWidth(SheetName, "H", "I", 16)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// dateOnly renders an ISO timestamp as YYYY-MM-DD; unparsable input is
// written unchanged.
func dateOnly(s string) string {
	if s == "" {
		return ""
	}
	t, err := entity.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.DateOnly)
}

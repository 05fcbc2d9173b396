package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"hoadon/internal/domain"
)

const (
	summarySheet  = "Invoice"
	lineItemSheet = "Line Items"
)

var lineItemHeader = []string{
	"Line", "Description", "Unit", "Quantity", "Unit Price", "Amount", "VAT Rate", "VAT Amount",
}

// WriteExcel renders a completed job as an Excel workbook with a summary
// sheet and a line item sheet.
func WriteExcel(w io.Writer, job *domain.Job) error {
	if job.Result == nil {
		return fmt.Errorf("job %s has no result to export", job.ID)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSummarySheet(f, job); err != nil {
		return err
	}
	if err := writeLineItemSheet(f, &job.Result.Invoice); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, job *domain.Job) error {
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	inv := &job.Result.Invoice
	rows := [][2]string{
		{"Job ID", job.ID},
		{"Document Type", string(job.Result.DocumentType)},
		{"Confidence", string(job.Result.Confidence)},
		{"Series", inv.Series},
		{"Date", inv.Date},
		{"Payment Method", inv.PaymentMethod},
		{"Currency", inv.Currency},
		{"Seller Name", inv.SellerName},
		{"Seller Tax Code", inv.SellerTaxCode},
		{"Seller Address", inv.SellerAddress},
		{"Buyer Name", inv.BuyerName},
		{"Buyer Tax Code", inv.BuyerTaxCode},
		{"Buyer Address", inv.BuyerAddress},
		{"Subtotal", inv.Subtotal.String()},
		{"VAT Total", inv.VATTotal.String()},
		{"Total", inv.Total.String()},
		{"Total In Words", inv.TotalInWords},
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, row := range rows {
		cellA := fmt.Sprintf("A%d", i+1)
		cellB := fmt.Sprintf("B%d", i+1)
		if err := f.SetCellValue(summarySheet, cellA, row[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cellB, row[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cellA, cellA, labelStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "B", 40)
}

func writeLineItemSheet(f *excelize.File, inv *domain.Invoice) error {
	if _, err := f.NewSheet(lineItemSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, h := range lineItemHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(lineItemSheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(lineItemSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, item := range inv.LineItems {
		values := []interface{}{
			item.LineNumber,
			item.Description,
			item.Unit,
			item.Quantity.InexactFloat64(),
			item.UnitPrice.InexactFloat64(),
			item.Amount.InexactFloat64(),
			item.VATRate,
			item.VATAmount.InexactFloat64(),
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(lineItemSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(lineItemSheet, "B", "B", 40)
}

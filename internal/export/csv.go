// Package export renders extraction jobs as downloadable files: Excel
// workbooks, CSV with a UTF-8 BOM so Excel reads Vietnamese text correctly,
// and plain JSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hoadon/internal/domain"
)

// BOM is the UTF-8 byte order mark, written before CSV content for Excel
// compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// csvColumns defines the CSV header row. Invoice-level fields repeat on
// every row; line item fields vary per row.
var csvColumns = []string{
	"Job ID",
	"Document Type",
	"Confidence",
	"Series",
	"Date",
	"Seller Name",
	"Seller Tax Code",
	"Buyer Name",
	"Buyer Tax Code",
	"Currency",
	"Line Number",
	"Description",
	"Unit",
	"Quantity",
	"Unit Price",
	"Amount",
	"VAT Rate",
	"VAT Amount",
	"Subtotal",
	"VAT Total",
	"Total",
}

// WriteCSV renders a completed job as CSV, one row per line item. Invoices
// without line items produce a single row with the totals filled in.
func WriteCSV(w io.Writer, job *domain.Job) error {
	if job.Result == nil {
		return fmt.Errorf("job %s has no result to export", job.ID)
	}
	if _, err := w.Write(BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}

	inv := &job.Result.Invoice
	if len(inv.LineItems) == 0 {
		if err := cw.Write(csvRow(job, inv, nil)); err != nil {
			return err
		}
	}
	for i := range inv.LineItems {
		if err := cw.Write(csvRow(job, inv, &inv.LineItems[i])); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(job *domain.Job, inv *domain.Invoice, item *domain.LineItem) []string {
	row := make([]string, len(csvColumns))
	row[0] = job.ID
	row[1] = string(job.Result.DocumentType)
	row[2] = string(job.Result.Confidence)
	row[3] = inv.Series
	row[4] = inv.Date
	row[5] = inv.SellerName
	row[6] = inv.SellerTaxCode
	row[7] = inv.BuyerName
	row[8] = inv.BuyerTaxCode
	row[9] = inv.Currency
	if item != nil {
		row[10] = strconv.Itoa(item.LineNumber)
		row[11] = item.Description
		row[12] = item.Unit
		row[13] = item.Quantity.String()
		row[14] = item.UnitPrice.String()
		row[15] = item.Amount.String()
		row[16] = item.VATRate
		row[17] = item.VATAmount.String()
	}
	row[18] = inv.Subtotal.String()
	row[19] = inv.VATTotal.String()
	row[20] = inv.Total.String()
	return row
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), ext)
}

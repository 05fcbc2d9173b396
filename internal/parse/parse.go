// Package parse turns raw model output into a validated, reconciled invoice.
// It tolerates the formatting slop models produce (markdown fences, prose
// around the JSON, localized number formats) but rejects output whose shape
// does not match the extraction schema.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hoadon/internal/domain"
	"hoadon/internal/prompt"
)

// reconcileTolerance is the maximum absolute difference, in currency units,
// allowed between stated and computed totals.
var reconcileTolerance = decimal.NewFromInt(1)

// Output is the parsed and reconciled extraction.
type Output struct {
	Invoice      domain.Invoice
	DocumentType domain.DocumentType
	Confidence   domain.Confidence
	Partial      bool
	Warnings     []string
}

// ExtractJSON locates the JSON object inside the model's reply. Markdown
// fences and surrounding prose are discarded; everything from the first '{'
// to the last '}' is returned.
func ExtractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	return []byte(s[start : end+1]), nil
}

// rawLineItem mirrors the model's line item with lenient field types.
type rawLineItem struct {
	LineNumber  json.RawMessage `json:"line_number"`
	Description *string         `json:"description"`
	Unit        *string         `json:"unit"`
	Quantity    json.RawMessage `json:"quantity"`
	UnitPrice   json.RawMessage `json:"unit_price"`
	Amount      json.RawMessage `json:"amount"`
	VATRate     json.RawMessage `json:"vat_rate"`
	VATAmount   json.RawMessage `json:"vat_amount"`
}

// rawInvoice mirrors the model's output with lenient field types.
type rawInvoice struct {
	DetectedType  *string         `json:"detected_type"`
	Series        *string         `json:"series"`
	Date          *string         `json:"date"`
	PaymentMethod *string         `json:"payment_method"`
	Currency      *string         `json:"currency"`
	SellerName    *string         `json:"seller_name"`
	SellerTaxCode *string         `json:"seller_tax_code"`
	SellerAddress *string         `json:"seller_address"`
	BuyerName     *string         `json:"buyer_name"`
	BuyerTaxCode  *string         `json:"buyer_tax_code"`
	BuyerAddress  *string         `json:"buyer_address"`
	LineItems     []rawLineItem   `json:"line_items"`
	Subtotal      json.RawMessage `json:"subtotal"`
	VATTotal      json.RawMessage `json:"vat_total"`
	Total         json.RawMessage `json:"total"`
	TotalInWords  *string         `json:"total_in_words"`
}

// Parse validates the model's reply and builds a reconciled Output.
// Shape failures (no JSON, schema mismatch) return a malformed-output error
// so the caller can issue its one strict re-prompt. Field-level oddities
// become warnings instead of failures.
func Parse(text string, requested domain.DocumentType) (*Output, error) {
	data, err := ExtractJSON(text)
	if err != nil {
		return nil, domain.NewMalformedOutput("model reply contains no JSON object", err)
	}
	if err := validateShape(data); err != nil {
		return nil, domain.NewMalformedOutput("model output failed schema validation", err)
	}

	var raw rawInvoice
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewMalformedOutput("model output is not decodable JSON", err)
	}

	out := &Output{}
	out.DocumentType, out.Warnings = resolveDocumentType(requested, raw.DetectedType, out.Warnings)

	inv := &out.Invoice
	inv.Series = deref(raw.Series)
	inv.PaymentMethod = deref(raw.PaymentMethod)
	inv.Currency = deref(raw.Currency)
	inv.SellerName = deref(raw.SellerName)
	inv.SellerAddress = deref(raw.SellerAddress)
	inv.BuyerName = deref(raw.BuyerName)
	inv.BuyerAddress = deref(raw.BuyerAddress)
	inv.TotalInWords = deref(raw.TotalInWords)

	inv.Date, out.Warnings = normalizeDate(deref(raw.Date), out.Warnings)
	inv.SellerTaxCode, out.Warnings = normalizeTaxCode(deref(raw.SellerTaxCode), "seller_tax_code", out.Warnings)
	inv.BuyerTaxCode, out.Warnings = normalizeTaxCode(deref(raw.BuyerTaxCode), "buyer_tax_code", out.Warnings)
	if inv.SellerTaxCode != "" && inv.SellerTaxCode == inv.BuyerTaxCode {
		out.Warnings = append(out.Warnings, "seller and buyer tax codes are identical")
	}

	inv.Subtotal, out.Warnings = amountField(raw.Subtotal, "subtotal", out.Warnings)
	inv.VATTotal, out.Warnings = amountField(raw.VATTotal, "vat_total", out.Warnings)
	inv.Total, out.Warnings = amountField(raw.Total, "total", out.Warnings)

	inv.LineItems = make([]domain.LineItem, 0, len(raw.LineItems))
	for i, r := range raw.LineItems {
		item, warns := buildLineItem(i, r)
		out.Warnings = append(out.Warnings, warns...)
		inv.LineItems = append(inv.LineItems, item)
	}

	confidence, partial, warns := Reconcile(inv)
	out.Confidence = confidence
	out.Partial = partial
	out.Warnings = append(out.Warnings, warns...)

	return out, nil
}

// Reconcile checks that line item amounts sum to the subtotal and that
// subtotal plus VAT equals the total, within tolerance. A failed check
// downgrades the result to low confidence and marks it partial; it never
// fails the extraction.
func Reconcile(inv *domain.Invoice) (domain.Confidence, bool, []string) {
	var warnings []string

	itemsOK := true
	if len(inv.LineItems) > 0 {
		sum := decimal.Zero
		for _, item := range inv.LineItems {
			sum = sum.Add(item.Amount)
		}
		if sum.Sub(inv.Subtotal).Abs().GreaterThan(reconcileTolerance) {
			itemsOK = false
			warnings = append(warnings, fmt.Sprintf(
				"line item amounts sum to %s but subtotal is %s", sum.String(), inv.Subtotal.String()))
		}
	}

	computed := inv.Subtotal.Add(inv.VATTotal)
	totalsOK := computed.Sub(inv.Total).Abs().LessThanOrEqual(reconcileTolerance)
	if !totalsOK {
		warnings = append(warnings, fmt.Sprintf(
			"subtotal %s plus VAT %s does not equal total %s", inv.Subtotal.String(), inv.VATTotal.String(), inv.Total.String()))
	}

	if itemsOK && totalsOK {
		return domain.ConfidenceHigh, false, warnings
	}
	return domain.ConfidenceLow, true, warnings
}

func resolveDocumentType(requested domain.DocumentType, detected *string, warnings []string) (domain.DocumentType, []string) {
	if requested != domain.DocumentTypeAuto {
		return requested, warnings
	}
	if detected != nil {
		switch domain.DocumentType(*detected) {
		case domain.DocumentTypeInvoice, domain.DocumentTypeReceipt:
			return domain.DocumentType(*detected), warnings
		}
		warnings = append(warnings, fmt.Sprintf("model reported unknown %s %q, assuming invoice", prompt.FieldDetectedType, *detected))
		return domain.DocumentTypeInvoice, warnings
	}
	warnings = append(warnings, fmt.Sprintf("model did not report %s, assuming invoice", prompt.FieldDetectedType))
	return domain.DocumentTypeInvoice, warnings
}

func buildLineItem(idx int, r rawLineItem) (domain.LineItem, []string) {
	var warnings []string
	item := domain.LineItem{
		LineNumber:  idx + 1,
		Description: deref(r.Description),
		Unit:        deref(r.Unit),
		VATRate:     vatRateString(r.VATRate),
	}
	if n, err := intFromRaw(r.LineNumber); err == nil && n > 0 {
		item.LineNumber = n
	}

	field := func(raw json.RawMessage, name string) decimal.Decimal {
		var d decimal.Decimal
		d, warnings = amountField(raw, fmt.Sprintf("line_items[%d].%s", idx, name), warnings)
		return d
	}
	item.Quantity = field(r.Quantity, "quantity")
	item.UnitPrice = field(r.UnitPrice, "unit_price")
	item.Amount = field(r.Amount, "amount")
	item.VATAmount = field(r.VATAmount, "vat_amount")

	if item.Quantity.IsPositive() && item.UnitPrice.IsPositive() {
		expected := item.Quantity.Mul(item.UnitPrice)
		if item.Amount.IsZero() {
			item.Amount = expected
			warnings = append(warnings, fmt.Sprintf(
				"line_items[%d].amount missing, computed %s from quantity and unit price", idx, expected.String()))
		} else if expected.Sub(item.Amount).Abs().GreaterThan(reconcileTolerance) {
			warnings = append(warnings, fmt.Sprintf(
				"line_items[%d]: quantity x unit_price is %s but amount is %s", idx, expected.String(), item.Amount.String()))
		}
	}

	return item, warnings
}

// amountField decodes a lenient JSON amount, adding a warning on failure
// instead of aborting the parse.
func amountField(raw json.RawMessage, name string, warnings []string) (decimal.Decimal, []string) {
	d, err := amountFromRaw(raw)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
		return decimal.Zero, warnings
	}
	return d, warnings
}

func amountFromRaw(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, err
		}
		return NormalizeAmount(str)
	}
	return decimal.NewFromString(s)
}

func intFromRaw(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

func vatRateString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return ""
		}
		return strings.TrimSpace(str)
	}
	// Bare numbers become percentage labels.
	return s + "%"
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"2006/01/02",
}

func normalizeDate(s string, warnings []string) (string, []string) {
	if s == "" {
		return "", warnings
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), warnings
		}
	}
	warnings = append(warnings, fmt.Sprintf("date %q is not in a recognized format", s))
	return s, warnings
}

// normalizeTaxCode strips spacing and punctuation noise from an MST value
// and flags codes outside the 10 to 13 digit range.
func normalizeTaxCode(s, field string, warnings []string) (string, []string) {
	if s == "" {
		return "", warnings
	}
	var b strings.Builder
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '-':
			b.WriteRune(r)
		}
	}
	code := b.String()
	if digits < 10 || digits > 13 {
		warnings = append(warnings, fmt.Sprintf("%s %q has %d digits, expected 10 to 13", field, s, digits))
	}
	return code, warnings
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

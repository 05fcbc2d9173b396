// Package prompt builds the extraction instructions sent to the model.
// Prompts are pure functions of their inputs: same document and type in,
// same bytes out, so the pipeline stays testable with fixture prompts.
package prompt

import (
	"strings"

	"hoadon/internal/domain"
)

// FieldDetectedType is the JSON field the model uses to report the document
// type it detected. The response parser resolves auto-detection from this
// field; both sides share this constant.
const FieldDetectedType = "detected_type"

// Spec is the assembled instruction for one model call.
type Spec struct {
	Text         string
	DocumentType domain.DocumentType
	Strict       bool
}

const schemaBlock = `{
  "detected_type": "invoice",
  "series": null,
  "date": null,
  "payment_method": "TM/CK",
  "currency": "VND",
  "seller_name": null,
  "seller_tax_code": null,
  "seller_address": null,
  "buyer_name": null,
  "buyer_tax_code": null,
  "buyer_address": null,
  "line_items": [
    {
      "line_number": 1,
      "description": null,
      "unit": null,
      "quantity": 0,
      "unit_price": 0,
      "amount": 0,
      "vat_rate": "10%",
      "vat_amount": 0
    }
  ],
  "subtotal": 0,
  "vat_total": 0,
  "total": 0,
  "total_in_words": null
}`

const commonRules = `You are an expert at reading Vietnamese business documents (hoa don / invoices and receipts). Extract EXACTLY what is visible; never guess or invent values.

RULES:
- If a field is not present or unreadable, use null. Never use "" or "N/A".
- Amounts must contain digits only: "1.000.000 d" -> 1000000, "500,000 VND" -> 500000, "2.500.000,50" -> 2500000.5. Vietnamese documents use '.' or ',' as thousands separators; strip them.
- Dates must be formatted YYYY-MM-DD (27/01/2024 -> "2024-01-27").
- Tax codes (MST / ma so thue) are 10-13 digits. The seller tax code appears in the document header near the issuing company; the buyer tax code appears in the body near "Nguoi mua" / "Khach hang". They must differ.
- VAT rates keep their label: "10%", "8%", "5%", "0%", or "KCT".
- Extract EVERY line item; do not skip, merge, or summarize rows.
- amount should equal quantity x unit_price; vat_total is the total VAT; total = subtotal + vat_total.`

const outputContract = `Return ONLY a single valid JSON object following this exact schema, with no markdown fences, no code blocks, and no explanatory text before or after:

`

const strictReminder = `

YOUR PREVIOUS ANSWER WAS NOT VALID JSON IN THE REQUIRED SCHEMA. Respond again with ONLY the JSON object: the first character of your reply must be '{' and the last must be '}'. Do not add commentary, markdown, or code fences. Every field of the schema must be present, using null where unknown.`

var typeGuidance = map[domain.DocumentType]string{
	domain.DocumentTypeInvoice: `The document is a VAT invoice (hoa don gia tri gia tang). Set "detected_type" to "invoice". Seller and buyer tax codes are usually printed; extract both.`,
	domain.DocumentTypeReceipt: `The document is a retail receipt (bien lai / phieu thu). Set "detected_type" to "receipt". Receipts often have no buyer details or invoice series; use null for those fields. The VAT breakdown may be absent; in that case set vat_total to 0 and subtotal equal to total.`,
	domain.DocumentTypeAuto: `First decide whether the document is a VAT invoice or a retail receipt and report it in the "` + FieldDetectedType + `" field ("invoice" or "receipt"). Then extract the fields that apply to that type, using null for the rest.`,
}

// Build assembles the extraction prompt for the given document and type.
// For text inputs the invoice text is embedded in the prompt; for images the
// document travels alongside the prompt as a separate content block.
func Build(input domain.DocumentInput, docType domain.DocumentType, additionalContext string) Spec {
	var b strings.Builder
	b.WriteString(commonRules)
	b.WriteString("\n\n")
	b.WriteString(typeGuidance[docType])

	if additionalContext != "" {
		b.WriteString("\n\nADDITIONAL CONTEXT FROM THE SUBMITTER:\n")
		b.WriteString(additionalContext)
	}

	if input.IsText() {
		b.WriteString("\n\nDOCUMENT TEXT:\n-----\n")
		b.WriteString(input.Text)
		b.WriteString("\n-----")
	}

	b.WriteString("\n\n")
	b.WriteString(outputContract)
	b.WriteString(schemaBlock)

	return Spec{Text: b.String(), DocumentType: docType}
}

// BuildStrict assembles the re-prompt used after the model returned output
// that did not parse. It is the same prompt with a conformance reminder; the
// orchestrator uses it for exactly one automatic retry.
func BuildStrict(input domain.DocumentInput, docType domain.DocumentType, additionalContext string) Spec {
	s := Build(input, docType, additionalContext)
	s.Text += strictReminder
	s.Strict = true
	return s
}

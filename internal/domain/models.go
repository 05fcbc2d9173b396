package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentInput is the canonical, validated form of an incoming document.
// Exactly one of the two variants is populated: either Image bytes with a
// ContentType, or plain Text.
type DocumentInput struct {
	Image       []byte
	ContentType string
	Text        string
}

// IsImage reports whether the image variant is populated.
func (d *DocumentInput) IsImage() bool {
	return len(d.Image) > 0
}

// IsText reports whether the text variant is populated.
func (d *DocumentInput) IsText() bool {
	return d.Text != ""
}

// ExtractionRequest carries one document through the pipeline. It is created
// per incoming call and owned by the orchestrator for the request's lifetime.
type ExtractionRequest struct {
	RequestID         uuid.UUID
	Input             DocumentInput
	Type              DocumentType
	AdditionalContext string
}

// LineItem is one row of goods or services on the invoice.
type LineItem struct {
	LineNumber  int             `json:"line_number"`
	Description string          `json:"description"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	VATRate     string          `json:"vat_rate,omitempty"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
}

// Invoice is the structured record extracted from a document. Vietnamese
// business fields (MST tax codes, VAT terminology, amount in words) follow
// the AMIS invoice layout. Monetary values are fixed-point decimals.
type Invoice struct {
	Series        string `json:"series,omitempty"`
	Date          string `json:"date,omitempty"` // YYYY-MM-DD
	PaymentMethod string `json:"payment_method,omitempty"`
	Currency      string `json:"currency,omitempty"`

	SellerName    string `json:"seller_name,omitempty"`
	SellerTaxCode string `json:"seller_tax_code,omitempty"`
	SellerAddress string `json:"seller_address,omitempty"`

	BuyerName    string `json:"buyer_name,omitempty"`
	BuyerTaxCode string `json:"buyer_tax_code,omitempty"`
	BuyerAddress string `json:"buyer_address,omitempty"`

	LineItems []LineItem `json:"line_items"`

	Subtotal decimal.Decimal `json:"subtotal"`
	VATTotal decimal.Decimal `json:"vat_total"`
	Total    decimal.Decimal `json:"total"`

	TotalInWords string `json:"total_in_words,omitempty"`
}

// ExtractionResult is the outcome of a successful (possibly partial)
// extraction. If line items are present and their sum does not reconcile with
// the subtotal within tolerance, the result is marked partial with low
// confidence rather than failing outright.
type ExtractionResult struct {
	RequestID      uuid.UUID    `json:"request_id"`
	DocumentType   DocumentType `json:"document_type"`
	Invoice        Invoice      `json:"invoice"`
	Confidence     Confidence   `json:"confidence"`
	Partial        bool         `json:"partial"`
	Warnings       []string     `json:"warnings,omitempty"`
	Model          string       `json:"model,omitempty"`
	ProcessingTime float64      `json:"processing_time"` // seconds
}

// Job records one extraction request and its outcome for later retrieval,
// review, and export. Jobs live only in process memory.
type Job struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Result      *ExtractionResult `json:"result,omitempty"`
	Error       *JobError         `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	ReviewNotes string            `json:"review_notes,omitempty"`
}

// JobError is the serializable form of an ExtractionError stored on a job.
type JobError struct {
	Kind      ErrorKind `json:"kind"`
	Detail    string    `json:"detail"`
	Retryable bool      `json:"retryable"`
}

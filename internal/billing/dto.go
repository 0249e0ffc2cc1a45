package billing

import "time"

type CreateInvoiceItemRequest struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

// CreateInvoiceRequest creates an invoice together with its items. An empty
// items list is structurally valid; the batch insert is simply skipped.
type CreateInvoiceRequest struct {
	CustomerID     int64                      `json:"customer_id" validate:"required,gt=0"`
	InvoiceDate    time.Time                  `json:"invoice_date" validate:"required"`
	DueDate        time.Time                  `json:"due_date" validate:"required"`
	PaymentTerms   *string                    `json:"payment_terms,omitempty"`
	GSTRate        *float64                   `json:"gst_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	InterState     bool                       `json:"inter_state"`
	DiscountAmount float64                    `json:"discount_amount" validate:"gte=0"`
	Notes          *string                    `json:"notes,omitempty"`
	Terms          *string                    `json:"terms,omitempty"`
	Items          []CreateInvoiceItemRequest `json:"items" validate:"dive"`
}

// UpdateInvoiceRequest carries the optional fields of a partial update. Only
// non-nil fields are written; the set of updatable columns is closed.
type UpdateInvoiceRequest struct {
	CustomerID   *int64     `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	InvoiceDate  *time.Time `json:"invoice_date,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	PaymentTerms *string    `json:"payment_terms,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	Terms        *string    `json:"terms,omitempty"`
}

// HasChanges reports whether any field is set.
func (r UpdateInvoiceRequest) HasChanges() bool {
	return r.CustomerID != nil || r.InvoiceDate != nil || r.DueDate != nil ||
		r.PaymentTerms != nil || r.Notes != nil || r.Terms != nil
}

type RecordPaymentRequest struct {
	InvoiceID       int64         `json:"invoice_id" validate:"required,gt=0"`
	Amount          float64       `json:"amount" validate:"required,gt=0"`
	Method          PaymentMethod `json:"method" validate:"required"`
	PaymentDate     time.Time     `json:"payment_date" validate:"required"`
	ReferenceNumber *string       `json:"reference_number,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status InvoiceStatus `json:"status" validate:"required"`
}

type ListInvoicesRequest struct {
	Status     *InvoiceStatus `json:"status,omitempty"`
	CustomerID *int64         `json:"customer_id,omitempty"`
	DateFrom   *time.Time     `json:"date_from,omitempty"`
	DateTo     *time.Time     `json:"date_to,omitempty"`
	Limit      int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int            `json:"offset" validate:"gte=0"`
}

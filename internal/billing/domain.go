package billing

import "time"

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "Draft"
	InvoiceStatusSent      InvoiceStatus = "Sent"
	InvoiceStatusPartial   InvoiceStatus = "Partial"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusOverdue   InvoiceStatus = "Overdue"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCheque       PaymentMethod = "Cheque"
)

// ValidPaymentMethod reports whether m is part of the closed enumeration.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodUPI, PaymentMethodCheque:
		return true
	}
	return false
}

// manualInvoiceTransitions lists the status changes a caller may request
// directly. Partial and Paid are reachable only through the payment ledger,
// Overdue only through the due-date sweep.
var manualInvoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft: {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:  {InvoiceStatusCancelled},
}

// CanTransition reports whether a manual status change from → to is legal.
func CanTransition(from, to InvoiceStatus) bool {
	for _, s := range manualInvoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Invoice is a customer-facing bill. Invariant maintained by the ledger:
// BalanceAmount = max(0, TotalAmount - PaidAmount).
type Invoice struct {
	ID             int64         `json:"id"`
	InvoiceNumber  string        `json:"invoice_number"`
	UserID         int64         `json:"user_id"`
	CustomerID     int64         `json:"customer_id"`
	InvoiceDate    time.Time     `json:"invoice_date"`
	DueDate        time.Time     `json:"due_date"`
	PaymentTerms   *string       `json:"payment_terms,omitempty"`
	Status         InvoiceStatus `json:"status"`
	Subtotal       float64       `json:"subtotal"`
	DiscountAmount float64       `json:"discount_amount"`
	CGSTAmount     float64       `json:"cgst_amount"`
	SGSTAmount     float64       `json:"sgst_amount"`
	IGSTAmount     float64       `json:"igst_amount"`
	TotalAmount    float64       `json:"total_amount"`
	PaidAmount     float64       `json:"paid_amount"`
	BalanceAmount  float64       `json:"balance_amount"`
	Notes          *string       `json:"notes,omitempty"`
	Terms          *string       `json:"terms,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// InvoiceItem is one line on an invoice.
type InvoiceItem struct {
	ID              int64   `json:"id"`
	InvoiceID       int64   `json:"invoice_id"`
	ProductID       int64   `json:"product_id"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TotalPrice      float64 `json:"total_price"`
}

// Payment is one ledger entry against an invoice.
type Payment struct {
	ID              int64         `json:"id"`
	InvoiceID       int64         `json:"invoice_id"`
	Amount          float64       `json:"amount"`
	Method          PaymentMethod `json:"method"`
	PaymentDate     time.Time     `json:"payment_date"`
	ReferenceNumber *string       `json:"reference_number,omitempty"`
	Notes           *string       `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// InvoiceItemDetail joins the item with its product name for display.
type InvoiceItemDetail struct {
	InvoiceItem
	ProductName string `json:"product_name"`
}

// InvoiceDetail is the fully joined read model returned by Get.
type InvoiceDetail struct {
	Invoice
	CustomerName string              `json:"customer_name"`
	Items        []InvoiceItemDetail `json:"items"`
	Payments     []Payment           `json:"payments"`
}

// InvoiceSummary joins the invoice with its customer name for listings.
type InvoiceSummary struct {
	Invoice
	CustomerName string `json:"customer_name"`
}

// Stats summarises a user's invoices for the dashboard.
type Stats struct {
	TotalInvoices int64                   `json:"total_invoices"`
	ByStatus      map[InvoiceStatus]int64 `json:"by_status"`
	TotalAmount   float64                 `json:"total_amount"`
	PaidAmount    float64                 `json:"paid_amount"`
	Outstanding   float64                 `json:"outstanding"`
}

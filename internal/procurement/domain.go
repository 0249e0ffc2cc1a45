package procurement

import "time"

// POStatus enumerates purchase order lifecycle states.
type POStatus string

const (
	POStatusDraft             POStatus = "Draft"
	POStatusSent              POStatus = "Sent"
	POStatusConfirmed         POStatus = "Confirmed"
	POStatusPartiallyReceived POStatus = "Partially Received"
	POStatusReceived          POStatus = "Received"
	POStatusCancelled         POStatus = "Cancelled"
)

// Legal manual transitions. Receiving states are still caller-driven (they
// are not derived from received quantities), but must follow the chain.
var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:             {POStatusSent, POStatusCancelled},
	POStatusSent:              {POStatusConfirmed, POStatusCancelled},
	POStatusConfirmed:         {POStatusPartiallyReceived, POStatusReceived},
	POStatusPartiallyReceived: {POStatusReceived},
}

// CanTransition reports whether a status change from → to is legal.
func CanTransition(from, to POStatus) bool {
	for _, s := range poTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PurchaseOrder requests goods from a supplier. Invariant:
// BalanceAmount = max(0, TotalAmount - PaidAmount).
type PurchaseOrder struct {
	ID                   int64      `json:"id"`
	PONumber             string     `json:"po_number"`
	UserID               int64      `json:"user_id"`
	SupplierID           int64      `json:"supplier_id"`
	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	Status               POStatus   `json:"status"`
	Subtotal             float64    `json:"subtotal"`
	GSTAmount            float64    `json:"gst_amount"`
	TotalAmount          float64    `json:"total_amount"`
	PaidAmount           float64    `json:"paid_amount"`
	BalanceAmount        float64    `json:"balance_amount"`
	Notes                *string    `json:"notes,omitempty"`
	DeliveryAddress      *string    `json:"delivery_address,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PurchaseOrderItem is one line on a purchase order. ReceivedQuantity tracks
// partial fulfilment; it never drives the parent status automatically.
type PurchaseOrderItem struct {
	ID               int64   `json:"id"`
	PurchaseOrderID  int64   `json:"purchase_order_id"`
	ProductID        int64   `json:"product_id"`
	Quantity         float64 `json:"quantity"`
	Area             float64 `json:"area"`
	UnitPrice        float64 `json:"unit_price"`
	TotalPrice       float64 `json:"total_price"`
	ReceivedQuantity float64 `json:"received_quantity"`
}

// PurchaseOrderItemDetail joins the item with its product name.
type PurchaseOrderItemDetail struct {
	PurchaseOrderItem
	ProductName string `json:"product_name"`
}

// PurchaseOrderDetail is the joined read model returned by Get.
type PurchaseOrderDetail struct {
	PurchaseOrder
	SupplierName string                    `json:"supplier_name"`
	Items        []PurchaseOrderItemDetail `json:"items"`
}

// PurchaseOrderSummary joins the order with its supplier name for listings.
type PurchaseOrderSummary struct {
	PurchaseOrder
	SupplierName string `json:"supplier_name"`
}

// Stats summarises a user's purchase orders.
type Stats struct {
	TotalOrders int64              `json:"total_orders"`
	ByStatus    map[POStatus]int64 `json:"by_status"`
	TotalAmount float64            `json:"total_amount"`
	PaidAmount  float64            `json:"paid_amount"`
	Outstanding float64            `json:"outstanding"`
}

package delivery

import "time"

// Status enumerates delivery lifecycle states.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusInTransit Status = "In Transit"
	StatusDelivered Status = "Delivered"
	StatusDelayed   Status = "Delayed"
	StatusCancelled Status = "Cancelled"
)

// Legal manual transitions. A delayed delivery can resume transit; Delivered
// is terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusInTransit, StatusDelayed, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusDelayed, StatusCancelled},
	StatusDelayed:   {StatusInTransit, StatusCancelled},
}

// CanTransition reports whether a status change from → to is legal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Delivery schedules goods out to a customer address.
type Delivery struct {
	ID              int64     `json:"id"`
	DeliveryNumber  string    `json:"delivery_number"`
	UserID          int64     `json:"user_id"`
	CustomerID      int64     `json:"customer_id"`
	DeliveryDate    time.Time `json:"delivery_date"`
	DeliveryAddress string    `json:"delivery_address"`
	ContactPerson   *string   `json:"contact_person,omitempty"`
	ContactPhone    *string   `json:"contact_phone,omitempty"`
	Status          Status    `json:"status"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DeliveryItem is one product line on a delivery. AreaCovered is in square
// feet of tile, matching the quantity units used on invoices.
type DeliveryItem struct {
	ID          int64   `json:"id"`
	DeliveryID  int64   `json:"delivery_id"`
	ProductID   int64   `json:"product_id"`
	Quantity    float64 `json:"quantity"`
	AreaCovered float64 `json:"area_covered"`
}

// DeliveryItemDetail joins the item with its product name.
type DeliveryItemDetail struct {
	DeliveryItem
	ProductName string `json:"product_name"`
}

// DeliveryDetail is the joined read model returned by Get.
type DeliveryDetail struct {
	Delivery
	CustomerName string               `json:"customer_name"`
	Items        []DeliveryItemDetail `json:"items"`
}

// DeliverySummary joins the delivery with its customer name for listings.
type DeliverySummary struct {
	Delivery
	CustomerName string `json:"customer_name"`
}

// Stats summarises a user's deliveries.
type Stats struct {
	TotalDeliveries int64            `json:"total_deliveries"`
	ByStatus        map[Status]int64 `json:"by_status"`
}

package procurement

import "time"

type CreatePOItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	Area      float64 `json:"area" validate:"gte=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type CreatePORequest struct {
	SupplierID           int64                 `json:"supplier_id" validate:"required,gt=0"`
	OrderDate            time.Time             `json:"order_date" validate:"required"`
	ExpectedDeliveryDate *time.Time            `json:"expected_delivery_date,omitempty"`
	GSTRate              *float64              `json:"gst_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Notes                *string               `json:"notes,omitempty"`
	DeliveryAddress      *string               `json:"delivery_address,omitempty"`
	Items                []CreatePOItemRequest `json:"items" validate:"dive"`
}

type UpdatePORequest struct {
	SupplierID           *int64     `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	OrderDate            *time.Time `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	DeliveryAddress      *string    `json:"delivery_address,omitempty"`
}

func (r UpdatePORequest) HasChanges() bool {
	return r.SupplierID != nil || r.OrderDate != nil || r.ExpectedDeliveryDate != nil ||
		r.Notes != nil || r.DeliveryAddress != nil
}

type RecordPOPaymentRequest struct {
	PurchaseOrderID int64   `json:"purchase_order_id" validate:"required,gt=0"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
}

type ReceiveItemsRequest struct {
	Items []ReceiveItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ReceiveItemRequest struct {
	ItemID           int64   `json:"item_id" validate:"required,gt=0"`
	ReceivedQuantity float64 `json:"received_quantity" validate:"gte=0"`
}

type UpdatePOStatusRequest struct {
	Status POStatus `json:"status" validate:"required"`
}

type ListPOsRequest struct {
	Status     *POStatus  `json:"status,omitempty"`
	SupplierID *int64     `json:"supplier_id,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}

package delivery

import "time"

type CreateDeliveryItemRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	AreaCovered float64 `json:"area_covered" validate:"gte=0"`
}

type CreateDeliveryRequest struct {
	CustomerID      int64                       `json:"customer_id" validate:"required,gt=0"`
	DeliveryDate    time.Time                   `json:"delivery_date" validate:"required"`
	DeliveryAddress string                      `json:"delivery_address" validate:"required"`
	ContactPerson   *string                     `json:"contact_person,omitempty"`
	ContactPhone    *string                     `json:"contact_phone,omitempty"`
	Notes           *string                     `json:"notes,omitempty"`
	Items           []CreateDeliveryItemRequest `json:"items" validate:"dive"`
}

type UpdateDeliveryRequest struct {
	CustomerID      *int64     `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	DeliveryAddress *string    `json:"delivery_address,omitempty"`
	ContactPerson   *string    `json:"contact_person,omitempty"`
	ContactPhone    *string    `json:"contact_phone,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (r UpdateDeliveryRequest) HasChanges() bool {
	return r.CustomerID != nil || r.DeliveryDate != nil || r.DeliveryAddress != nil ||
		r.ContactPerson != nil || r.ContactPhone != nil || r.Notes != nil
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type ListDeliveriesRequest struct {
	Status     *Status    `json:"status,omitempty"`
	CustomerID *int64     `json:"customer_id,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}

package customers

import "time"

// Customer is a buyer the documents reference. State feeds the
// inter/intra-state GST split on invoices.
type Customer struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	City      *string   `json:"city,omitempty"`
	State     *string   `json:"state,omitempty"`
	GSTIN     *string   `json:"gstin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCustomerRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	GSTIN   *string `json:"gstin,omitempty"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	GSTIN   *string `json:"gstin,omitempty"`
}

func (r UpdateCustomerRequest) HasChanges() bool {
	return r.Name != nil || r.Email != nil || r.Phone != nil || r.Address != nil ||
		r.City != nil || r.State != nil || r.GSTIN != nil
}

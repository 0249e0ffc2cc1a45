package suppliers

import "time"

// Supplier is a vendor purchase orders reference.
type Supplier struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
	GSTIN         *string   `json:"gstin,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateSupplierRequest struct {
	Name          string  `json:"name" validate:"required"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	GSTIN         *string `json:"gstin,omitempty"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	GSTIN         *string `json:"gstin,omitempty"`
}

func (r UpdateSupplierRequest) HasChanges() bool {
	return r.Name != nil || r.ContactPerson != nil || r.Email != nil ||
		r.Phone != nil || r.Address != nil || r.GSTIN != nil
}

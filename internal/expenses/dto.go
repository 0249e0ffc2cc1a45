package expenses

import "time"

type CreateExpenseRequest struct {
	ExpenseDate     time.Time `json:"expense_date" validate:"required"`
	Category        string    `json:"category" validate:"required"`
	Description     *string   `json:"description,omitempty"`
	Amount          float64   `json:"amount" validate:"required,gt=0"`
	PaymentMethod   string    `json:"payment_method" validate:"required"`
	ReferenceNumber *string   `json:"reference_number,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

type UpdateExpenseRequest struct {
	ExpenseDate     *time.Time `json:"expense_date,omitempty"`
	Category        *string    `json:"category,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Amount          *float64   `json:"amount,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod   *string    `json:"payment_method,omitempty"`
	ReferenceNumber *string    `json:"reference_number,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (r UpdateExpenseRequest) HasChanges() bool {
	return r.ExpenseDate != nil || r.Category != nil || r.Description != nil ||
		r.Amount != nil || r.PaymentMethod != nil || r.ReferenceNumber != nil || r.Notes != nil
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

type ListExpensesRequest struct {
	Category *string    `json:"category,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int        `json:"offset" validate:"gte=0"`
}

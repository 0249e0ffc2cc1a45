package expenses

import "time"

// Expense is a user-scoped outgoing cost. Category is a free-form name
// matched against the user's category list, not a foreign key.
type Expense struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	ExpenseDate     time.Time `json:"expense_date"`
	Category        string    `json:"category"`
	Description     *string   `json:"description,omitempty"`
	Amount          float64   `json:"amount"`
	PaymentMethod   string    `json:"payment_method"`
	ReferenceNumber *string   `json:"reference_number,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Category names a bucket expenses can be filed under.
type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats summarises a user's expenses.
type Stats struct {
	TotalExpenses int64              `json:"total_expenses"`
	TotalAmount   float64            `json:"total_amount"`
	ByCategory    map[string]float64 `json:"by_category"`
}

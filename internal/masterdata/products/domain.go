package products

import "time"

// Product is a tile SKU the document line items reference. Size is the tile
// dimension (e.g. "600x600"), AreaPerBox the coverage in square feet.
type Product struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	SKU        *string   `json:"sku,omitempty"`
	Category   *string   `json:"category,omitempty"`
	Size       *string   `json:"size,omitempty"`
	Finish     *string   `json:"finish,omitempty"`
	UnitPrice  float64   `json:"unit_price"`
	AreaPerBox *float64  `json:"area_per_box,omitempty"`
	InStock    bool      `json:"in_stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Name       string   `json:"name" validate:"required"`
	SKU        *string  `json:"sku,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Size       *string  `json:"size,omitempty"`
	Finish     *string  `json:"finish,omitempty"`
	UnitPrice  float64  `json:"unit_price" validate:"gte=0"`
	AreaPerBox *float64 `json:"area_per_box,omitempty" validate:"omitempty,gt=0"`
	InStock    *bool    `json:"in_stock,omitempty"`
}

type UpdateProductRequest struct {
	Name       *string  `json:"name,omitempty"`
	SKU        *string  `json:"sku,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Size       *string  `json:"size,omitempty"`
	Finish     *string  `json:"finish,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	AreaPerBox *float64 `json:"area_per_box,omitempty" validate:"omitempty,gt=0"`
	InStock    *bool    `json:"in_stock,omitempty"`
}

func (r UpdateProductRequest) HasChanges() bool {
	return r.Name != nil || r.SKU != nil || r.Category != nil || r.Size != nil ||
		r.Finish != nil || r.UnitPrice != nil || r.AreaPerBox != nil || r.InStock != nil
}

package types

import "time"

// Product is a sellable item in the catalog.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the product. Required.
	Title string `json:"title" db:"title"`

	// Description is optional free text; empty when not provided.
	Description string `json:"description" db:"description"`

	// Price is the unit price. Its sign is not constrained.
	Price float64 `json:"price" db:"price"`

	// CategoryID references the owning category, or nil when the
	// product is uncategorized or its category was deleted.
	CategoryID *int `json:"categoryId" db:"category_id"`

	// Category is the resolved category reference, populated on reads.
	Category *CategoryRef `json:"category,omitempty" db:"-"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CategoryRef is the short form of a category embedded in product reads.
type CategoryRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// ProductPatch carries the fields of a partial product update.
type ProductPatch struct {
	Title       Optional[string]  `json:"title"`
	Description Optional[string]  `json:"description"`
	Price       Optional[float64] `json:"price"`
	CategoryID  Optional[int]     `json:"categoryId"`
}

// Apply merges the patch into p. An explicit null categoryId detaches the
// product from its category; every other null is ignored.
func (patch ProductPatch) Apply(p *Product) {
	if title, ok := patch.Title.Get(); ok && trimmed(title) != "" {
		p.Title = trimmed(title)
	}
	if description, ok := patch.Description.Get(); ok {
		p.Description = description
	}
	if price, ok := patch.Price.Get(); ok {
		p.Price = price
	}
	switch {
	case patch.CategoryID.IsNull():
		p.CategoryID = nil
		p.Category = nil
	case patch.CategoryID.Set:
		id := patch.CategoryID.Value
		p.CategoryID = &id
	}
}

// BulkDeleteResult reports the outcome of a multi-id product delete.
type BulkDeleteResult struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
	IDs          []int  `json:"ids"`
}

package types

import "time"

// Category groups products in the catalog.
// A category may be referenced by any number of products.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the category. Required.
	Title string `json:"title" db:"title"`

	// Description is optional free text; empty when not provided.
	Description string `json:"description" db:"description"`

	// CreatedAt is the timestamp at which the category was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the category.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CategoryPatch carries the fields of a partial category update.
// Absent fields leave the stored value unchanged.
type CategoryPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
}

// Apply merges the patch into c. A blank title keeps the current one;
// a null description keeps the current one.
func (p CategoryPatch) Apply(c *Category) {
	if title, ok := p.Title.Get(); ok && trimmed(title) != "" {
		c.Title = trimmed(title)
	}
	if description, ok := p.Description.Get(); ok {
		c.Description = description
	}
}

package types

// ListQuery describes one page of a filtered listing.
type ListQuery struct {
	// Page is the 1-based page number.
	Page int

	// PageSize is the number of rows per page.
	PageSize int

	// All disables paging and returns every matching row.
	All bool

	// Search is matched case-insensitively against title and description.
	Search string

	// CategoryIDs restricts products to these categories when non-empty.
	CategoryIDs []int
}

// Offset returns the number of rows skipped before the page starts.
func (q ListQuery) Offset() int {
	if q.All || q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// Pagination is the paging block returned with every listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Paginate computes the paging block for total matching rows.
// With All set the whole result is one page sized to total.
func (q ListQuery) Paginate(total int) Pagination {
	if q.All {
		pages := 0
		if total > 0 {
			pages = 1
		}
		return Pagination{Page: 1, PageSize: total, TotalPages: pages}
	}
	pages := 0
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return Pagination{Page: q.Page, PageSize: q.PageSize, TotalPages: pages}
}

// Page is a slice of rows with its paging block.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

package domain

// PaginationParams selects one page of a roster listing. Pages are numbered
// from 1; a PageSize of zero or less means the whole roster.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Unpaged reports whether the listing should return every row.
func (p PaginationParams) Unpaged() bool {
	return p.PageSize <= 0
}

// Offset is the number of rows skipped before this page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.Unpaged() {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Window clamps this page to a result set of total rows and returns the
// half-open index range to slice.
func (p PaginationParams) Window(total int) (start, end int) {
	if p.Unpaged() {
		return 0, total
	}
	start = min(p.Offset(), total)
	end = min(start+p.PageSize, total)
	return start, end
}

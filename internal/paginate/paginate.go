// Package paginate slices ordered datasets into pages.
package paginate

type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalItems  int  `json:"totalItems"`
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// Paginate returns the items in [(page-1)*pageSize, page*pageSize). A page
// past the end yields empty items with the totals intact. Callers validate
// page and pageSize >= 1 before getting here.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	slice := make([]T, end-start)
	copy(slice, items[start:end])

	return Page[T]{
		Items:       slice,
		TotalItems:  total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

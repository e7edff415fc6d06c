// Package pager slices an ordered batch into fixed-size pages.
package pager

import "fmt"

// DefaultPageSize is the number of rows shown per page.
const DefaultPageSize = 50

// Page is the visible window of a paginated list.
type Page[T any] struct {
	Visible    []T
	Page       int
	StartIndex int
	EndIndex   int
	TotalPages int
	TotalItems int
}

// TotalPages returns max(1, ceil(n/pageSize)).
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// Paginate returns the page-th window of items. page is clamped to [1, TotalPages].
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(items), pageSize)
	page = clamp(page, 1, total)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(items))
	if start > end {
		start = end
	}

	return Page[T]{
		Visible:    items[start:end],
		Page:       page,
		StartIndex: start,
		EndIndex:   end,
		TotalPages: total,
		TotalItems: len(items),
	}
}

// Empty reports whether there is nothing to show.
func (p Page[T]) Empty() bool {
	return p.TotalItems == 0
}

// Range returns the 1-based "a-b" label for the visible rows.
func (p Page[T]) Range() string {
	if p.Empty() {
		return "0-0"
	}
	return fmt.Sprintf("%d-%d", p.StartIndex+1, p.EndIndex)
}

// Label returns "Page x of y".
func (p Page[T]) Label() string {
	return fmt.Sprintf("Page %d of %d", p.Page, p.TotalPages)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

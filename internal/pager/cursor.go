package pager

// Cursor tracks the current page over the most recently loaded batch.
// It is not safe for concurrent use; the owning view serializes access.
type Cursor[T any] struct {
	items    []T
	page     int
	pageSize int
}

// NewCursor creates an empty cursor. A non-positive pageSize selects DefaultPageSize.
func NewCursor[T any](pageSize int) *Cursor[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor[T]{page: 1, pageSize: pageSize}
}

// Load replaces the batch and resets to the first page.
func (c *Cursor[T]) Load(items []T) {
	c.items = items
	c.page = 1
}

// Items returns the current batch.
func (c *Cursor[T]) Items() []T {
	return c.items
}

// Current returns the visible page.
func (c *Cursor[T]) Current() Page[T] {
	return Paginate(c.items, c.page, c.pageSize)
}

// PageNumber returns the 1-based current page.
func (c *Cursor[T]) PageNumber() int {
	return c.page
}

// PageSize returns the configured page size.
func (c *Cursor[T]) PageSize() int {
	return c.pageSize
}

// TotalPages returns the page count of the current batch.
func (c *Cursor[T]) TotalPages() int {
	return TotalPages(len(c.items), c.pageSize)
}

// HasNext reports whether Next would move.
func (c *Cursor[T]) HasNext() bool {
	return c.page < c.TotalPages()
}

// HasPrevious reports whether Previous would move.
func (c *Cursor[T]) HasPrevious() bool {
	return c.page > 1
}

// Next advances one page. At the last page it is a no-op and returns false.
func (c *Cursor[T]) Next() bool {
	if !c.HasNext() {
		return false
	}
	c.page++
	return true
}

// Previous goes back one page. At the first page it is a no-op and returns false.
func (c *Cursor[T]) Previous() bool {
	if !c.HasPrevious() {
		return false
	}
	c.page--
	return true
}

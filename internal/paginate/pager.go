// Package paginate provides windowed access over an ordered list.
package paginate

// Pager pages through a fixed list. Pagers are independent of one another;
// a new list gets a new Pager.
type Pager[T any] struct {
	items    []T
	pageSize int
	page     int
}

// New returns a pager on page 0. A pageSize below 1 is treated as 1.
func New[T any](items []T, pageSize int) *Pager[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Pager[T]{items: items, pageSize: pageSize}
}

// Page returns the current 0-based page index.
func (p *Pager[T]) Page() int { return p.page }

// PageSize returns the page size.
func (p *Pager[T]) PageSize() int { return p.pageSize }

// Len returns the total number of items.
func (p *Pager[T]) Len() int { return len(p.items) }

// All returns every item regardless of page.
func (p *Pager[T]) All() []T { return p.items }

// TotalPages is never less than 1, even for an empty list.
func (p *Pager[T]) TotalPages() int {
	n := (len(p.items) + p.pageSize - 1) / p.pageSize
	if n < 1 {
		return 1
	}
	return n
}

// SetPage moves to page i. Any index is accepted; a page outside
// [0, TotalPages) has no items.
func (p *Pager[T]) SetPage(i int) { p.page = i }

// Items returns the current page's slice.
func (p *Pager[T]) Items() []T {
	if p.page < 0 || p.page >= p.TotalPages() {
		return []T{}
	}
	start := p.page * p.pageSize
	if start >= len(p.items) {
		return []T{}
	}
	end := min(start+p.pageSize, len(p.items))
	return p.items[start:end]
}

// HasPrev reports whether a previous page exists.
func (p *Pager[T]) HasPrev() bool { return p.page > 0 }

// HasNext reports whether a next page exists.
func (p *Pager[T]) HasNext() bool { return p.page < p.TotalPages()-1 }

// Offset returns the index of the first item on the current page. A page
// past the end reports the list length.
func (p *Pager[T]) Offset() int {
	if p.page < 0 {
		return 0
	}
	if p.page >= p.TotalPages() {
		return len(p.items)
	}
	return p.page * p.pageSize
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import "strconv"

// PaginationWindow is the number of pages shown on each side of the
// current page.
const PaginationWindow = 2

// PageItemKind distinguishes pagination controls.
type PageItemKind int

const (
	PagePrev PageItemKind = iota
	PageNumber
	PageEllipsis
	PageNext
)

// PageItem is one pagination control. Page is the target page; it is 0 for
// an ellipsis.
type PageItem struct {
	Kind     PageItemKind
	Page     int
	Label    string
	Active   bool
	Disabled bool
}

// PageCount returns max(1, ceil(total/size)).
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Pagination builds the controls for page of a listing with total rows:
// previous, first page, ellipsis, the window around page, ellipsis, last
// page and next.
func Pagination(page, size, total int) []PageItem {
	pages := PageCount(total, size)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	items := []PageItem{{Kind: PagePrev, Page: page - 1, Label: "«", Disabled: page == 1}}

	start := max(1, page-PaginationWindow)
	end := min(pages, page+PaginationWindow)

	if start > 1 {
		items = append(items, number(1, page))
	}
	if start > 2 {
		items = append(items, PageItem{Kind: PageEllipsis, Label: "…", Disabled: true})
	}
	for p := start; p <= end; p++ {
		items = append(items, number(p, page))
	}
	if end < pages-1 {
		items = append(items, PageItem{Kind: PageEllipsis, Label: "…", Disabled: true})
	}
	if end < pages {
		items = append(items, number(pages, page))
	}

	return append(items, PageItem{Kind: PageNext, Page: page + 1, Label: "»", Disabled: page == pages})
}

// Pagination returns the controls for the table's current page.
func (t *Table) Pagination() []PageItem {
	return Pagination(t.page, t.size, t.total)
}

func number(p, current int) PageItem {
	return PageItem{Kind: PageNumber, Page: p, Label: strconv.Itoa(p), Active: p == current}
}

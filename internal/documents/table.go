// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import "github.com/jeranaias/scholar-tui/internal/api"

// DefaultPageSize is the initial number of rows per page.
const DefaultPageSize = 10

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50, 100}

// Sortable columns.
const (
	SortFolder   = "folder"
	SortFileName = "original_file_name"
	SortCreated  = "created_at"
	SortUpdated  = "updated_at"
	SortAuthor   = "author"
)

// SortFields lists the sortable columns in display order.
var SortFields = []string{SortFolder, SortFileName, SortCreated, SortUpdated, SortAuthor}

// Table is the state of the document listing. Filter, pagination and sort
// are combined into one query.
type Table struct {
	page      int
	size      int
	sortField string
	sortDir   string
	filter    api.Filter

	rows  []api.DocumentRow
	total int
}

// NewTable creates a table on page 1. A non-positive size uses
// DefaultPageSize.
func NewTable(size int) *Table {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Table{page: 1, size: size, sortDir: api.SortAsc}
}

func (t *Table) Page() int                 { return t.page }
func (t *Table) Size() int                 { return t.size }
func (t *Table) Filter() api.Filter        { return t.filter }
func (t *Table) Rows() []api.DocumentRow   { return t.rows }
func (t *Table) Total() int                { return t.total }
func (t *Table) Pages() int                { return PageCount(t.total, t.size) }
func (t *Table) Sort() (field, dir string) { return t.sortField, t.sortDir }

// Query returns the request body for the current state. Sort is omitted
// until a column was chosen.
func (t *Table) Query() api.DocumentQuery {
	q := api.DocumentQuery{Filter: t.filter, Page: t.page, Size: t.size}
	if t.sortField != "" {
		q.SortField = t.sortField
		q.SortDir = t.sortDir
	}
	return q
}

// ToggleSort sorts by field, flipping the direction when field is already
// the sort column. The page resets to 1.
func (t *Table) ToggleSort(field string) {
	if field == "" {
		return
	}
	if t.sortField == field {
		if t.sortDir == api.SortAsc {
			t.sortDir = api.SortDesc
		} else {
			t.sortDir = api.SortAsc
		}
	} else {
		t.sortField = field
		t.sortDir = api.SortAsc
	}
	t.page = 1
}

// SetPage moves to page p and reports whether the page changed. Pages
// outside 1..Pages() are rejected.
func (t *Table) SetPage(p int) bool {
	if p < 1 || p > t.Pages() || p == t.page {
		return false
	}
	t.page = p
	return true
}

// SetSize changes the page size and resets to page 1.
func (t *Table) SetSize(n int) {
	if n <= 0 {
		return
	}
	t.size = n
	t.page = 1
}

// SetFilter replaces the filter and resets to page 1.
func (t *Table) SetFilter(f api.Filter) {
	t.filter = f
	t.page = 1
}

// ResetFilter clears the filter and resets to page 1.
func (t *Table) ResetFilter() {
	t.SetFilter(api.Filter{})
}

// Apply stores a loaded page.
func (t *Table) Apply(p *api.DocumentPage) {
	if p == nil {
		t.rows, t.total = nil, 0
		return
	}
	t.rows = p.Items
	t.total = p.Total
}

// RowNumber is the 1-based position of row i of the current page within
// the whole listing.
func (t *Table) RowNumber(i int) int {
	return (t.page-1)*t.size + i + 1
}

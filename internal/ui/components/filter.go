// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/documents"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

// Form ids.
const (
	FilterFormID = "filter"
	UploadFormID = "upload"
)

var titleCase = cases.Title(language.Und)

// CategoryLabel returns the display name of a category.
func CategoryLabel(c api.Category) string {
	if c.Name == "" {
		return titleCase.String(c.ID)
	}
	return titleCase.String(c.Name)
}

func categoryKey(id string) string { return "category:" + id }

// NewFilterForm creates the filter form prefilled with current. Each
// category becomes a multi-select field.
func NewFilterForm(current api.Filter, cats []api.Category) Form {
	selected := documents.FilterFormFrom(current).Categories

	fields := []Field{
		TextField("file", "File name", current.File, "part of a file name"),
		TextField("folder", "Folder", current.Folder, "search path"),
		TextField("author", "Author", current.Author, ""),
		TextField("created_from", "Created from", current.CreatedFrom, documents.DateLayout),
		TextField("created_to", "Created to", current.CreatedTo, documents.DateLayout),
		TextField("updated_from", "Updated from", current.UpdatedFrom, documents.DateLayout),
		TextField("updated_to", "Updated to", current.UpdatedTo, documents.DateLayout),
	}
	for _, c := range cats {
		fields = append(fields, ChoiceField(categoryKey(c.ID), CategoryLabel(c), c.Values, true, selected[c.ID]...))
	}
	return NewForm(FilterFormID, "Filter documents", fields...)
}

// FilterFormValues reads the filter form.
func FilterFormValues(f *Form, cats []api.Category) documents.FilterForm {
	ff := documents.FilterForm{
		File:        f.Value("file"),
		Folder:      f.Value("folder"),
		Author:      f.Value("author"),
		CreatedFrom: f.Value("created_from"),
		CreatedTo:   f.Value("created_to"),
		UpdatedFrom: f.Value("updated_from"),
		UpdatedTo:   f.Value("updated_to"),
		Categories:  make(map[string][]string),
	}
	for _, c := range cats {
		if vals := f.Selected(categoryKey(c.ID)); len(vals) > 0 {
			ff.Categories[c.ID] = vals
		}
	}
	return ff
}

// BuildFilter validates the filter form and returns the filter. On failure
// the form's error text is set.
func BuildFilter(f *Form, cats []api.Category) (api.Filter, bool) {
	filter, err := FilterFormValues(f, cats).Build(cats)
	if err != nil {
		f.Err = validate.Message(err)
		return api.Filter{}, false
	}
	f.Err = ""
	return filter, true
}

// NewUploadForm creates the upload form. Search paths become the folder
// placeholder; each category becomes a single-select field.
func NewUploadForm(paths []api.SearchPath, cats []api.Category) Form {
	folderHint := "search path"
	if len(paths) > 0 {
		folderHint = paths[0].Folder
	}
	fields := []Field{
		TextField("path", "File", "", "path to a local file"),
		TextField("search_path", "Folder", "", folderHint),
		TextField("created_date", "Created date", "", documents.DateLayout),
		TextField("updated_date", "Updated date", "", documents.DateLayout),
		TextField("file_author", "Author", "", ""),
	}
	fields[0].Input.CharLimit = 4096
	for _, c := range cats {
		fields = append(fields, ChoiceField(categoryKey(c.ID), CategoryLabel(c), c.Values, false))
	}
	return NewForm(UploadFormID, "Upload document", fields...)
}

// UploadFormValues reads the upload form.
func UploadFormValues(f *Form, cats []api.Category) documents.UploadForm {
	up := documents.UploadForm{
		Path:        f.Value("path"),
		SearchPath:  f.Value("search_path"),
		CreatedDate: f.Value("created_date"),
		UpdatedDate: f.Value("updated_date"),
		Author:      f.Value("file_author"),
	}
	for _, c := range cats {
		if vals := f.Selected(categoryKey(c.ID)); len(vals) > 0 {
			if up.Categories == nil {
				up.Categories = make(map[string]string)
			}
			up.Categories[c.ID] = vals[0]
		}
	}
	return up
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

// DateLayout is the date format of filter and upload fields.
const DateLayout = "2006-01-02"

// ErrNoFile is returned when an upload has no file selected.
var ErrNoFile = errors.New("no file selected")

// =============================================================================
// FILTER FORM
// =============================================================================

// FilterForm is the editable document filter. Categories maps category id
// to the selected values.
type FilterForm struct {
	File        string `validate:"max=255" label:"File name"`
	Folder      string `validate:"max=255" label:"Folder"`
	Author      string `validate:"max=255" label:"Author"`
	CreatedFrom string `validate:"omitempty,datetime=2006-01-02" label:"Created from"`
	CreatedTo   string `validate:"omitempty,datetime=2006-01-02" label:"Created to"`
	UpdatedFrom string `validate:"omitempty,datetime=2006-01-02" label:"Updated from"`
	UpdatedTo   string `validate:"omitempty,datetime=2006-01-02" label:"Updated to"`

	Categories map[string][]string `validate:"-"`
}

// FilterFormFrom fills a form from an applied filter.
func FilterFormFrom(f api.Filter) FilterForm {
	form := FilterForm{
		File:        f.File,
		Folder:      f.Folder,
		Author:      f.Author,
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
		UpdatedFrom: f.UpdatedFrom,
		UpdatedTo:   f.UpdatedTo,
	}
	if len(f.CategoryIDs) > 0 {
		form.Categories = make(map[string][]string, len(f.CategoryIDs))
		for _, c := range f.CategoryIDs {
			form.Categories[c.ID] = append([]string(nil), c.Categories...)
		}
	}
	return form
}

// Validate checks field formats and that each date range is ordered.
func (f FilterForm) Validate() error {
	f = f.trimmed()
	if err := validate.Struct(f); err != nil {
		return err
	}
	var msgs []string
	if f.CreatedFrom != "" && f.CreatedTo != "" && f.CreatedFrom > f.CreatedTo {
		msgs = append(msgs, "Created from must not be after Created to")
	}
	if f.UpdatedFrom != "" && f.UpdatedTo != "" && f.UpdatedFrom > f.UpdatedTo {
		msgs = append(msgs, "Updated from must not be after Updated to")
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", validate.ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// Build validates the form and returns the filter. Category criteria follow
// the order of cats; selections for unknown categories and empty values are
// dropped. With nil cats every selection is kept, sorted by id.
func (f FilterForm) Build(cats []api.Category) (api.Filter, error) {
	if err := f.Validate(); err != nil {
		return api.Filter{}, err
	}
	f = f.trimmed()
	filter := api.Filter{
		File:        f.File,
		Folder:      f.Folder,
		Author:      f.Author,
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
		UpdatedFrom: f.UpdatedFrom,
		UpdatedTo:   f.UpdatedTo,
	}

	ids := categoryOrder(cats, f.Categories)
	for _, id := range ids {
		var values []string
		for _, v := range f.Categories[id] {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			filter.CategoryIDs = append(filter.CategoryIDs, api.CategoryFilter{ID: id, Categories: values})
		}
	}
	return filter, nil
}

func (f FilterForm) trimmed() FilterForm {
	f.File = strings.TrimSpace(f.File)
	f.Folder = strings.TrimSpace(f.Folder)
	f.Author = strings.TrimSpace(f.Author)
	f.CreatedFrom = strings.TrimSpace(f.CreatedFrom)
	f.CreatedTo = strings.TrimSpace(f.CreatedTo)
	f.UpdatedFrom = strings.TrimSpace(f.UpdatedFrom)
	f.UpdatedTo = strings.TrimSpace(f.UpdatedTo)
	return f
}

// =============================================================================
// UPLOAD FORM
// =============================================================================

// UploadForm describes one file upload. Categories maps category id to the
// chosen value.
type UploadForm struct {
	Path        string `validate:"required,file" label:"File"`
	SearchPath  string `validate:"max=255" label:"Folder"`
	CreatedDate string `validate:"omitempty,datetime=2006-01-02" label:"Created date"`
	UpdatedDate string `validate:"omitempty,datetime=2006-01-02" label:"Updated date"`
	Author      string `validate:"max=255" label:"Author"`

	Categories map[string]string `validate:"-"`
}

// Validate checks the form. A missing path returns ErrNoFile.
func (u UploadForm) Validate() error {
	u = u.trimmed()
	if u.Path == "" {
		return ErrNoFile
	}
	return validate.Struct(u)
}

// Open validates the form and opens the file. The caller closes the
// returned file after the upload. Category values for ids not in cats are
// dropped unless cats is nil.
func (u UploadForm) Open(cats []api.Category) (api.UploadRequest, *os.File, error) {
	if err := u.Validate(); err != nil {
		return api.UploadRequest{}, nil, err
	}
	u = u.trimmed()

	f, err := os.Open(u.Path)
	if err != nil {
		return api.UploadRequest{}, nil, fmt.Errorf("failed to open %s: %w", u.Path, err)
	}

	req := api.UploadRequest{
		FileName:    filepath.Base(u.Path),
		File:        f,
		SearchPath:  u.SearchPath,
		CreatedDate: u.CreatedDate,
		UpdatedDate: u.UpdatedDate,
		Author:      u.Author,
	}
	if len(u.Categories) > 0 {
		known := categorySet(cats)
		req.Categories = make(map[string]string, len(u.Categories))
		for id, v := range u.Categories {
			v = strings.TrimSpace(v)
			if v == "" || (known != nil && !known[id]) {
				continue
			}
			req.Categories[id] = v
		}
	}
	return req, f, nil
}

func (u UploadForm) trimmed() UploadForm {
	u.Path = strings.TrimSpace(u.Path)
	u.SearchPath = strings.TrimSpace(u.SearchPath)
	u.CreatedDate = strings.TrimSpace(u.CreatedDate)
	u.UpdatedDate = strings.TrimSpace(u.UpdatedDate)
	u.Author = strings.TrimSpace(u.Author)
	return u
}

// =============================================================================
// HELPERS
// =============================================================================

// categoryOrder returns the ids of cats in order, or the sorted keys of
// selected when cats is nil.
func categoryOrder(cats []api.Category, selected map[string][]string) []string {
	if cats == nil {
		ids := make([]string, 0, len(selected))
		for id := range selected {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	return ids
}

func categorySet(cats []api.Category) map[string]bool {
	if cats == nil {
		return nil
	}
	set := make(map[string]bool, len(cats))
	for _, c := range cats {
		set[c.ID] = true
	}
	return set
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package documents implements the document manager screen: a paginated,
// sortable table of uploaded files with filter, upload, delete, download
// and a content viewer.
//
// The screen drives a documents.Controller. Only one controller operation
// runs at a time; each returns a snapshot of the table that the view
// renders from.
package documents

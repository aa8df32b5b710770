// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package documents is the controller behind the document manager: table
// state (page, size, sort, filter), pagination, filter and upload forms, and
// the Controller that issues document requests and reports their outcome as
// user-facing notices.
package documents

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the scholar document and chat service.
//
// It wraps three kinds of traffic:
//
//   - JSON request/response calls for metadata, documents and chat lifecycle
//   - a server-sent event stream per chat, exposed as an owned *Stream handle
//   - multipart upload of documents
//
// Every non-2xx response becomes an *Error carrying the status and, when the
// body provides one, a machine-readable reason. UserMessage turns any error
// into notification text.
//
// Stream payloads decode into a closed set of StreamEvent variants. Unknown
// payload types are reported as Unrecognized rather than dropped, and
// interrupt payloads decode into Interrupt variants with an UnknownInterrupt
// fallback.
package api

// Package server implements the MCP (Model Context Protocol) server for ID
// photo extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the extraction
// pipeline through the MCP protocol, so an assistant can walk a user through
// pulling the portrait out of a scanned identity document.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Document:
//   - document_load: Load, straighten and search a document; opens a session
//   - document_candidates: Current session state and ranked candidates
//   - document_preview: Scaled page with numbered candidate boxes
//   - document_rotate_retry: Quarter-turn the page and search again
//
// Selection:
//   - photo_select_point: Pick the candidate under a point
//   - photo_select_index: Pick a candidate by rank
//   - photo_select_manual: Crop a drawn rectangle
//
// Photo:
//   - photo_rotate: Rotate the extracted photo
//   - photo_export: Write the photo as PNG
//   - session_reset: Discard a session
//
// Diagnostics:
//   - ocr_info: OCR engine availability
//
// # Sessions
//
// Every document_load opens an independent session identified by a UUID.
// Each session owns a session.Machine, so invalid calls (exporting before
// selecting, for example) are rejected with INVALID_TRANSITION. Coordinates
// are page pixels unless "preview" is set, in which case they are taken
// from the last document_preview image and scaled back.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: for pipeline errors, a map with error_code, message, timestamp
//     and details; otherwise the Go error string
package server

// Package server exposes the width-estimation pipeline as an MCP (Model
// Context Protocol) server and as a small HTTP API.
//
// # Protocol
//
// The MCP server communicates over stdio using JSON-RPC 2.0:
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
//   - inspect_labels: grid size and class counts of a label file
//   - extract_edges: banded segments (or raw Hough lines) of one surface,
//     from a label file or a saved mask, with an optional PNG preview
//   - measure_sidewalk_width: sidewalk width of one location
//   - measure_buffer_width: street-buffer width of one location
//   - solve_angle: elevation angle from a pair of centerline offsets
//
// The measurement tools take either the two label files of a location
// (pitch0, pitch10) or a capture tree with the midpoint's pano id, side,
// heading and bearing, planned the same way as a batch run.
//
// Pipeline failures are part of the result: a measurement that cannot be
// made returns its error code in the payload, not a JSON-RPC error.
//
// # Label Caching
//
// Label tables are cached by path for the lifetime of the server. Capture
// tree requests evict their tables when done.
//
// # Error Handling
//
// JSON-RPC errors carry:
//   - -32700: the request line is not JSON
//   - -32601: unknown method
//   - -32602: malformed params or tool arguments
//   - -32000: tool execution failure, such as an unreadable file
//   - -32603: internal error
//
// # HTTP
//
// NewHTTPHandler serves the same tools with chi:
//
//	GET  /health
//	GET  /tools
//	POST /tools/{name}
//	POST /measure/{variant}
//
// # Usage
//
//	srv := server.New(estimate.NewEngine(cfg), version)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

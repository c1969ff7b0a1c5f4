// Package server exposes the acquisition pipeline over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter]
// uses [http.ServeMux] internally; [Handler] implementations register the method-qualified
// patterns returned by Routes.
//
// # Endpoints
//
//	POST /download          {"playlistUrl": "..."} -> application/zip stream
//	GET  /files             {"files": [...]}
//	GET  /files/{filename}  artifact as attachment
//	GET  /                  static files from server.public_dir
//
// Errors before the archive starts are JSON objects of the form {"error": "..."}.
// /download is rate limited with [golang.org/x/time/rate] when server.rate_limit > 0.
//
// # Ledger
//
// By default each /download request uses its own in-memory ledger, so every request
// receives every track it can fetch. With server.persist_ledger the process-wide file
// ledger is shared and already-acquired tracks are appended from disk.
package server

// Package api implements the pingwatch HTTP API.
//
// New(opts) returns a Handler that serves:
//
//	GET  /api/data         chart points plus aggregate statistics
//	GET  /api/config       engine sizing and client refresh settings
//	POST /api/reset        clear all statistics (API key protected when configured)
//	GET  /api/alerts       firing and recently resolved alerts
//	GET  /api/diagnostics  health state and human-readable hints
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for the wrong method
//   - Start the engine poll loop if it is not already running
//
// A panic while building a response is recovered and turned into a 500. For
// /api/data the 500 body keeps the normal shape with zero and null values so
// polling clients never see a malformed document.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api

// Package server exposes the spreadsheet REST API that the editor's autosave
// talks to.
//
// Routes use net/http pattern matching:
//
//	GET    /api/health
//	GET    /metrics
//	POST   /api/auth/login
//	GET    /api/auth/me              (bearer)
//	POST   /api/auth/logout          (bearer)
//	GET    /api/spreadsheets         (bearer)
//	POST   /api/spreadsheets         (bearer)
//	GET    /api/spreadsheets/{id}    (bearer)
//	PATCH  /api/spreadsheets/{id}    (bearer)
//	DELETE /api/spreadsheets/{id}    (bearer)
//
// Errors are always a JSON object with a single "error" field. PATCH only
// touches fields that are present and non-empty, which makes repeated
// autosave writes of the same payload idempotent.
package server

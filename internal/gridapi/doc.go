// Package gridapi provides an HTTP client for the grid persistence API.
//
// # Overview
//
// The grid API stores spreadsheets as opaque, base64-encoded payloads. The
// editor only ever needs one write operation, a full replace of the payload,
// which makes every save idempotent.
//
// # Architecture
//
//   - client.go: HTTP client and request/response handling
//   - errors.go: APIError and retry classification
//   - types.go: data structures mirroring the API schema
//
// # API Endpoints
//
//   - GET    /api/health                health probe
//   - POST   /api/auth/login            find-or-create user, returns a token
//   - GET    /api/auth/me               current user
//   - POST   /api/auth/logout           invalidate the token
//   - GET    /api/spreadsheets          list (no payloads)
//   - POST   /api/spreadsheets          create {"title"}
//   - GET    /api/spreadsheets/{id}     fetch with payload
//   - PATCH  /api/spreadsheets/{id}     update {"title"?, "data"?}
//   - DELETE /api/spreadsheets/{id}     delete
//
// Everything except health and login requires Authorization: Bearer <token>.
//
// # Client Usage
//
//	client, err := gridapi.NewClient(cfg.APIURL, cfg.Token)
//	if err != nil {
//		return err
//	}
//	sheet, err := client.FetchSpreadsheet(ctx, id)
//
// *Client implements autosave.Persister through PersistPayload, which sends
// PATCH with only the data field set.
//
// # Error Handling
//
// Non-2xx responses become *APIError. Its message is the server's "error"
// field when present, "Unauthorized" for a 401, and otherwise
// "api <path> returned status <code>". APIError.Permanent marks every 4xx
// except 408 and 429 as not worth retrying; the autosave coordinator skips
// its backoff loop for those. Network errors and timeouts are transient.
//
// # Request Handling
//
// All requests use the caller's context, send Accept: application/json and
// User-Agent: sheetsync/0.1, and carry a 30 second client timeout as a
// backstop. The coordinator applies its own shorter per-attempt timeout.
//
// # Thread Safety
//
// The Client is safe for concurrent use. WithToken returns a copy.
package gridapi

package gridapi

import "time"

// User mirrors the user object returned by the auth endpoints.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResponse carries a fresh session token.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Spreadsheet is a full spreadsheet record. Data is the base64-encoded
// workbook payload and is empty for a new spreadsheet.
type Spreadsheet struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	OwnerID   int64     `json:"owner_id"`
	Data      string    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpreadsheetListItem is a listing row; it omits the payload.
type SpreadsheetListItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	OwnerID   int64     `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the body of POST /api/spreadsheets.
type CreateRequest struct {
	Title string `json:"title"`
}

// UpdateRequest is the body of PATCH /api/spreadsheets/{id}.
type UpdateRequest struct {
	Title string `json:"title,omitempty"`
	Data  string `json:"data,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a mutation without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

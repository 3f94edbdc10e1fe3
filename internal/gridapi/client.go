package gridapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/five82/sheetsync/internal/autosave"
)

// SpreadsheetService defines the spreadsheet operations of the grid API.
// This interface is implemented by *Client and can be used for testing.
type SpreadsheetService interface {
	ListSpreadsheets(ctx context.Context) ([]SpreadsheetListItem, error)
	CreateSpreadsheet(ctx context.Context, title string) (*Spreadsheet, error)
	FetchSpreadsheet(ctx context.Context, id int64) (*Spreadsheet, error)
	UpdateSpreadsheet(ctx context.Context, id int64, req UpdateRequest) (*Spreadsheet, error)
	DeleteSpreadsheet(ctx context.Context, id int64) error
}

// Ensure Client implements SpreadsheetService and autosave.Persister at
// compile time.
var (
	_ SpreadsheetService = (*Client)(nil)
	_ autosave.Persister = (*Client)(nil)
)

// Client talks to the grid HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
}

const (
	defaultAPIURL    = "127.0.0.1:8080"
	defaultUserAgent = "sheetsync/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for apiURL. token is sent as a bearer token when
// non-empty.
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(token),
	}, nil
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = strings.TrimSpace(token)
	return &cp
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	var payload HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &payload); err != nil {
		return err
	}
	if payload.Status != "ok" {
		return fmt.Errorf("api unhealthy: %q", payload.Status)
	}
	return nil
}

// Login finds or creates the user and opens a session.
func (c *Client) Login(ctx context.Context, email, name string) (*AuthResponse, error) {
	var payload AuthResponse
	body := LoginRequest{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Me returns the user owning the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Logout invalidates the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ListSpreadsheets returns the caller's spreadsheets, most recently updated
// first. Payloads are not included.
func (c *Client) ListSpreadsheets(ctx context.Context) ([]SpreadsheetListItem, error) {
	var payload []SpreadsheetListItem
	if err := c.do(ctx, http.MethodGet, "/api/spreadsheets", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateSpreadsheet creates an empty spreadsheet.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string) (*Spreadsheet, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title required")
	}
	var payload Spreadsheet
	if err := c.do(ctx, http.MethodPost, "/api/spreadsheets", CreateRequest{Title: title}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchSpreadsheet retrieves one spreadsheet including its payload.
func (c *Client) FetchSpreadsheet(ctx context.Context, id int64) (*Spreadsheet, error) {
	if id <= 0 {
		return nil, fmt.Errorf("spreadsheet id required")
	}
	var payload Spreadsheet
	if err := c.do(ctx, http.MethodGet, spreadsheetPath(id), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdateSpreadsheet replaces the title and/or payload. Empty fields are left
// unchanged by the server.
func (c *Client) UpdateSpreadsheet(ctx context.Context, id int64, req UpdateRequest) (*Spreadsheet, error) {
	if id <= 0 {
		return nil, fmt.Errorf("spreadsheet id required")
	}
	var payload Spreadsheet
	if err := c.do(ctx, http.MethodPatch, spreadsheetPath(id), req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// PersistPayload replaces the stored document. The call is idempotent.
func (c *Client) PersistPayload(ctx context.Context, id int64, payload []byte) error {
	req := UpdateRequest{Data: base64.StdEncoding.EncodeToString(payload)}
	_, err := c.UpdateSpreadsheet(ctx, id, req)
	return err
}

// UpdateTitle renames a spreadsheet.
func (c *Client) UpdateTitle(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title required")
	}
	_, err := c.UpdateSpreadsheet(ctx, id, UpdateRequest{Title: title})
	return err
}

// DeleteSpreadsheet removes a spreadsheet.
func (c *Client) DeleteSpreadsheet(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("spreadsheet id required")
	}
	return c.do(ctx, http.MethodDelete, spreadsheetPath(id), nil, nil)
}

func spreadsheetPath(id int64) string {
	return "/api/spreadsheets/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return newAPIError(rel.Path, resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

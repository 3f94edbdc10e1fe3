package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/sheetsync/internal/autosave"
)

// Spreadsheet is a stored spreadsheet. Data is the base64 payload as sent by
// clients; the store never interprets it.
type Spreadsheet struct {
	ID        int64
	Title     string
	OwnerID   int64
	OwnerName string
	Data      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Update lists the fields to change. Nil fields are left alone.
type Update struct {
	Title *string
	Data  *string
}

// ListSpreadsheets returns ownerID's spreadsheets, most recently updated
// first, without payloads.
func (s *Store) ListSpreadsheets(ctx context.Context, ownerID int64) ([]Spreadsheet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.title, sp.owner_id, u.name, sp.created_at, sp.updated_at
		FROM spreadsheets sp JOIN users u ON u.id = sp.owner_id
		WHERE sp.owner_id = ?
		ORDER BY sp.updated_at DESC, sp.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list spreadsheets: %w", err)
	}
	defer rows.Close()

	out := []Spreadsheet{}
	for rows.Next() {
		var sp Spreadsheet
		var created, updated string
		if err := rows.Scan(&sp.ID, &sp.Title, &sp.OwnerID, &sp.OwnerName, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan spreadsheet: %w", err)
		}
		sp.CreatedAt = parseTime(created)
		sp.UpdatedAt = parseTime(updated)
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list spreadsheets: %w", err)
	}
	return out, nil
}

// CreateSpreadsheet inserts an empty spreadsheet.
func (s *Store) CreateSpreadsheet(ctx context.Context, ownerID int64, title string) (Spreadsheet, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Spreadsheet{}, fmt.Errorf("title is required")
	}
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO spreadsheets (title, owner_id, data, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
		title, ownerID, now, now)
	if err != nil {
		return Spreadsheet{}, fmt.Errorf("create spreadsheet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Spreadsheet{}, fmt.Errorf("create spreadsheet: %w", err)
	}
	return s.GetSpreadsheet(ctx, id, ownerID)
}

// GetSpreadsheet returns one spreadsheet with its payload.
func (s *Store) GetSpreadsheet(ctx context.Context, id, ownerID int64) (Spreadsheet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sp.id, sp.title, sp.owner_id, u.name, sp.data, sp.created_at, sp.updated_at
		FROM spreadsheets sp JOIN users u ON u.id = sp.owner_id
		WHERE sp.id = ? AND sp.owner_id = ?`, id, ownerID)

	var sp Spreadsheet
	var created, updated string
	if err := row.Scan(&sp.ID, &sp.Title, &sp.OwnerID, &sp.OwnerName, &sp.Data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Spreadsheet{}, ErrNotFound
		}
		return Spreadsheet{}, fmt.Errorf("scan spreadsheet: %w", err)
	}
	sp.CreatedAt = parseTime(created)
	sp.UpdatedAt = parseTime(updated)
	return sp, nil
}

// UpdateSpreadsheet applies u and returns the updated row. An empty update
// returns the row unchanged.
func (s *Store) UpdateSpreadsheet(ctx context.Context, id, ownerID int64, u Update) (Spreadsheet, error) {
	var sets []string
	var args []any
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return Spreadsheet{}, fmt.Errorf("title is required")
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if u.Data != nil {
		sets = append(sets, "data = ?")
		args = append(args, *u.Data)
	}
	if len(sets) == 0 {
		return s.GetSpreadsheet(ctx, id, ownerID)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), id, ownerID)
	query := "UPDATE spreadsheets SET " + strings.Join(sets, ", ") + " WHERE id = ? AND owner_id = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Spreadsheet{}, fmt.Errorf("update spreadsheet: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Spreadsheet{}, err
	}
	return s.GetSpreadsheet(ctx, id, ownerID)
}

// DeleteSpreadsheet removes a spreadsheet.
func (s *Store) DeleteSpreadsheet(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spreadsheets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete spreadsheet: %w", err)
	}
	return requireAffected(res)
}

// Persister returns an autosave.Persister that writes straight into the
// database on behalf of ownerID. It backs the editor's local mode.
func (s *Store) Persister(ownerID int64) autosave.Persister {
	return localPersister{store: s, ownerID: ownerID}
}

type localPersister struct {
	store   *Store
	ownerID int64
}

func (p localPersister) PersistPayload(ctx context.Context, id int64, payload []byte) error {
	data := base64.StdEncoding.EncodeToString(payload)
	_, err := p.store.UpdateSpreadsheet(ctx, id, p.ownerID, Update{Data: &data})
	if errors.Is(err, ErrNotFound) {
		return permanentError{err: fmt.Errorf("spreadsheet %d: %w", id, err)}
	}
	return err
}

// permanentError marks failures a retry cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() error   { return e.err }
func (e permanentError) Permanent() bool { return true }

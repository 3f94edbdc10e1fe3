package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/gridapi"
	"github.com/five82/sheetsync/internal/store"
)

const defaultLocalEmail = "local@localhost"

// service is what the commands need from a spreadsheet backend: the HTTP
// client in remote mode or the database in local mode.
type service interface {
	gridapi.SpreadsheetService
	autosave.Persister
}

var (
	_ service = (*gridapi.Client)(nil)
	_ service = (*localService)(nil)
)

// localService serves one user's spreadsheets straight from the database,
// bypassing the HTTP API.
type localService struct {
	st        *store.Store
	user      store.User
	persister autosave.Persister
}

func openLocal(ctx context.Context, dbPath, email string) (*localService, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	svc, err := newLocalService(ctx, st, email)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return svc, nil
}

func newLocalService(ctx context.Context, st *store.Store, email string) (*localService, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		email = defaultLocalEmail
	}
	name, _, _ := strings.Cut(email, "@")
	user, err := st.FindOrCreateUser(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("local user: %w", err)
	}
	return &localService{st: st, user: user, persister: st.Persister(user.ID)}, nil
}

func (l *localService) Close() error {
	return l.st.Close()
}

func (l *localService) ListSpreadsheets(ctx context.Context) ([]gridapi.SpreadsheetListItem, error) {
	rows, err := l.st.ListSpreadsheets(ctx, l.user.ID)
	if err != nil {
		return nil, err
	}
	out := make([]gridapi.SpreadsheetListItem, 0, len(rows))
	for _, sp := range rows {
		out = append(out, gridapi.SpreadsheetListItem{
			ID:        sp.ID,
			Title:     sp.Title,
			OwnerID:   sp.OwnerID,
			OwnerName: sp.OwnerName,
			CreatedAt: sp.CreatedAt,
			UpdatedAt: sp.UpdatedAt,
		})
	}
	return out, nil
}

func (l *localService) CreateSpreadsheet(ctx context.Context, title string) (*gridapi.Spreadsheet, error) {
	sp, err := l.st.CreateSpreadsheet(ctx, l.user.ID, title)
	if err != nil {
		return nil, err
	}
	return toAPISpreadsheet(sp), nil
}

func (l *localService) FetchSpreadsheet(ctx context.Context, id int64) (*gridapi.Spreadsheet, error) {
	sp, err := l.st.GetSpreadsheet(ctx, id, l.user.ID)
	if err != nil {
		return nil, localError(err, id)
	}
	return toAPISpreadsheet(sp), nil
}

func (l *localService) UpdateSpreadsheet(ctx context.Context, id int64, req gridapi.UpdateRequest) (*gridapi.Spreadsheet, error) {
	var u store.Update
	if req.Title != "" {
		u.Title = &req.Title
	}
	if req.Data != "" {
		u.Data = &req.Data
	}
	sp, err := l.st.UpdateSpreadsheet(ctx, id, l.user.ID, u)
	if err != nil {
		return nil, localError(err, id)
	}
	return toAPISpreadsheet(sp), nil
}

func (l *localService) DeleteSpreadsheet(ctx context.Context, id int64) error {
	return localError(l.st.DeleteSpreadsheet(ctx, id, l.user.ID), id)
}

func (l *localService) PersistPayload(ctx context.Context, id int64, payload []byte) error {
	return l.persister.PersistPayload(ctx, id, payload)
}

// localError maps a missing row to the same error the API returns, so
// callers can use gridapi.IsNotFound in both modes.
func localError(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return &gridapi.APIError{
			StatusCode: http.StatusNotFound,
			Path:       fmt.Sprintf("local/spreadsheets/%d", id),
			Message:    "Spreadsheet not found",
		}
	}
	return err
}

func toAPISpreadsheet(sp store.Spreadsheet) *gridapi.Spreadsheet {
	return &gridapi.Spreadsheet{
		ID:        sp.ID,
		Title:     sp.Title,
		OwnerID:   sp.OwnerID,
		Data:      sp.Data,
		CreatedAt: sp.CreatedAt,
		UpdatedAt: sp.UpdatedAt,
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/five82/sheetsync/internal/gridapi"
	"github.com/five82/sheetsync/internal/store"
)

const maxBodyBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gridapi.HealthResponse{Status: "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req gridapi.LoginRequest
	if err := decodeBody(w, r, &req); err != nil ||
		strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request: email and name are required")
		return
	}

	user, err := s.store.FindOrCreateUser(r.Context(), req.Email, req.Name)
	if err != nil {
		s.log.WithError(err).Error("Failed to create user")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	sess, err := s.store.CreateSession(r.Context(), user.ID)
	if err != nil {
		s.log.WithError(err).Error("Failed to create session")
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")
	writeJSON(w, http.StatusOK, gridapi.AuthResponse{Token: sess.Token, User: toUser(sess.User)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUser(sessionFrom(r.Context()).User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.store.DeleteSession(r.Context(), sess.Token, sess.User.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.WithError(err).Warn("Failed to delete session")
	}
	writeJSON(w, http.StatusOK, gridapi.MessageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sheets, err := s.store.ListSpreadsheets(r.Context(), sess.User.ID)
	if err != nil {
		s.log.WithError(err).Error("Failed to list spreadsheets")
		writeError(w, http.StatusInternalServerError, "Failed to fetch spreadsheets")
		return
	}
	items := make([]gridapi.SpreadsheetListItem, 0, len(sheets))
	for _, sp := range sheets {
		items = append(items, gridapi.SpreadsheetListItem{
			ID:        sp.ID,
			Title:     sp.Title,
			OwnerID:   sp.OwnerID,
			OwnerName: sp.OwnerName,
			CreatedAt: sp.CreatedAt,
			UpdatedAt: sp.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req gridapi.CreateRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	sess := sessionFrom(r.Context())
	sp, err := s.store.CreateSpreadsheet(r.Context(), sess.User.ID, req.Title)
	if err != nil {
		s.log.WithError(err).Error("Failed to create spreadsheet")
		writeError(w, http.StatusInternalServerError, "Failed to create spreadsheet")
		return
	}
	writeJSON(w, http.StatusCreated, toSpreadsheet(sp))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sp, err := s.store.GetSpreadsheet(r.Context(), id, sessionFrom(r.Context()).User.ID)
	if err != nil {
		s.storeError(w, err, "Failed to fetch spreadsheet")
		return
	}
	writeJSON(w, http.StatusOK, toSpreadsheet(sp))
}

// handleUpdate changes only the fields present and non-empty in the body.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req gridapi.UpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var update store.Update
	if strings.TrimSpace(req.Title) != "" {
		update.Title = &req.Title
	}
	if req.Data != "" {
		update.Data = &req.Data
	}

	sp, err := s.store.UpdateSpreadsheet(r.Context(), id, sessionFrom(r.Context()).User.ID, update)
	if err != nil {
		s.storeError(w, err, "Failed to update spreadsheet")
		return
	}
	writeJSON(w, http.StatusOK, toSpreadsheet(sp))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteSpreadsheet(r.Context(), id, sessionFrom(r.Context()).User.ID); err != nil {
		s.storeError(w, err, "Failed to delete spreadsheet")
		return
	}
	writeJSON(w, http.StatusOK, gridapi.MessageResponse{Message: "Spreadsheet deleted"})
}

func (s *Server) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Spreadsheet not found")
		return
	}
	s.log.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid spreadsheet ID")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, gridapi.ErrorResponse{Error: msg})
}

func toUser(u store.User) gridapi.User {
	return gridapi.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toSpreadsheet(sp store.Spreadsheet) gridapi.Spreadsheet {
	return gridapi.Spreadsheet{
		ID:        sp.ID,
		Title:     sp.Title,
		OwnerID:   sp.OwnerID,
		Data:      sp.Data,
		CreatedAt: sp.CreatedAt,
		UpdatedAt: sp.UpdatedAt,
	}
}

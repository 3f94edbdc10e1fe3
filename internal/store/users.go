package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long a login token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// User is an account. Users are created on first login.
type User struct {
	ID        int64
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session ties a bearer token to a user.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// FindOrCreateUser returns the user with email, creating it with name if it
// does not exist yet.
func (s *Store) FindOrCreateUser(ctx context.Context, email, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return User{}, fmt.Errorf("email and name are required")
	}

	user, err := s.userByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		email, name, now, now)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return User{ID: id, Email: email, Name: name, CreatedAt: parseTime(now), UpdatedAt: parseTime(now)}, nil
}

func (s *Store) userByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, avatar_url, created_at, updated_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var created, updated string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return u, nil
}

// CreateSession issues a new token for userID.
func (s *Store) CreateSession(ctx context.Context, userID int64) (Session, error) {
	token := uuid.NewString()
	now := s.now()
	expires := now.Add(SessionTTL)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, formatTime(expires), formatTime(now))
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return s.ValidSession(ctx, token)
}

// ValidSession returns the unexpired session for token.
func (s *Store) ValidSession(ctx context.Context, token string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.token, s.expires_at, u.id, u.email, u.name, u.avatar_url, u.created_at, u.updated_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`, token, s.timestamp())

	var sess Session
	var expires, created, updated string
	err := row.Scan(&sess.Token, &expires, &sess.User.ID, &sess.User.Email, &sess.User.Name,
		&sess.User.AvatarURL, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.ExpiresAt = parseTime(expires)
	sess.User.CreatedAt = parseTime(created)
	sess.User.UpdatedAt = parseTime(updated)
	return sess, nil
}

// DeleteSession invalidates token for userID.
func (s *Store) DeleteSession(ctx context.Context, token string, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ? AND user_id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sheets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestOpenCreatesDatabaseAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "sheets.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheets.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	for _, table := range []string{"users", "sessions", "spreadsheets"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestFindOrCreateUser(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	first, err := s.FindOrCreateUser(ctx, "Ada@Example.com", "Ada")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "ada@example.com", first.Email)

	again, err := s.FindOrCreateUser(ctx, "ada@example.com", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ada", again.Name)

	_, err = s.FindOrCreateUser(ctx, "", "x")
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	s.now = func() time.Time { return now }

	user, err := s.FindOrCreateUser(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)

	sess, err := s.CreateSession(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, user.ID, sess.User.ID)
	assert.True(t, sess.ExpiresAt.Equal(start.Add(SessionTTL)))

	got, err := s.ValidSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.User.Name)

	_, err = s.ValidSession(ctx, "bogus")
	assert.ErrorIs(t, err, ErrNotFound)

	now = start.Add(SessionTTL + time.Minute)
	_, err = s.ValidSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound, "expired session must not validate")

	now = start
	require.NoError(t, s.DeleteSession(ctx, sess.Token, user.ID))
	_, err = s.ValidSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, sess.Token, user.ID), ErrNotFound)
}

func TestSpreadsheetCRUD(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	s.now = steppingClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	ada, err := s.FindOrCreateUser(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	bob, err := s.FindOrCreateUser(ctx, "bob@example.com", "Bob")
	require.NoError(t, err)

	budget, err := s.CreateSpreadsheet(ctx, ada.ID, "Budget")
	require.NoError(t, err)
	assert.Equal(t, "Budget", budget.Title)
	assert.Equal(t, "Ada", budget.OwnerName)
	assert.Empty(t, budget.Data)

	inventory, err := s.CreateSpreadsheet(ctx, ada.ID, "Inventory")
	require.NoError(t, err)

	_, err = s.CreateSpreadsheet(ctx, ada.ID, "   ")
	assert.Error(t, err)

	list, err := s.ListSpreadsheets(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, inventory.ID, list[0].ID, "newest first")
	assert.Empty(t, list[0].Data)

	data := "eyJ2ZXJzaW9uIjoxfQ=="
	updated, err := s.UpdateSpreadsheet(ctx, budget.ID, ada.ID, Update{Data: &data})
	require.NoError(t, err)
	assert.Equal(t, data, updated.Data)
	assert.Equal(t, "Budget", updated.Title, "title untouched")
	assert.True(t, updated.UpdatedAt.After(budget.UpdatedAt))

	list, err = s.ListSpreadsheets(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.ID, list[0].ID, "touched sheet moves to the top")

	unchanged, err := s.UpdateSpreadsheet(ctx, budget.ID, ada.ID, Update{})
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, unchanged.UpdatedAt)

	_, err = s.GetSpreadsheet(ctx, budget.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound, "other owners cannot read")
	_, err = s.UpdateSpreadsheet(ctx, budget.ID, bob.ID, Update{Data: &data})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSpreadsheet(ctx, budget.ID, bob.ID), ErrNotFound)

	empty, err := s.ListSpreadsheets(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.DeleteSpreadsheet(ctx, budget.ID, ada.ID))
	_, err = s.GetSpreadsheet(ctx, budget.ID, ada.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalPersister(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	ada, err := s.FindOrCreateUser(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	sheet, err := s.CreateSpreadsheet(ctx, ada.ID, "Budget")
	require.NoError(t, err)

	p := s.Persister(ada.ID)
	payload := []byte(`{"version":1,"rows":100,"cols":26,"cells":[]}`)
	require.NoError(t, p.PersistPayload(ctx, sheet.ID, payload))
	require.NoError(t, p.PersistPayload(ctx, sheet.ID, payload), "persist is idempotent")

	got, err := s.GetSpreadsheet(ctx, sheet.ID, ada.ID)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(got.Data)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	err = p.PersistPayload(ctx, sheet.ID+100, payload)
	require.ErrorIs(t, err, ErrNotFound)
	var perm interface{ Permanent() bool }
	require.ErrorAs(t, err, &perm)
	assert.True(t, perm.Permanent())
}

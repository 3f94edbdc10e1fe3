package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sheetsync/internal/dirty"
	"github.com/five82/sheetsync/internal/lifecycle"
	"github.com/five82/sheetsync/internal/sheet"
	"github.com/five82/sheetsync/internal/state"
)

type fakeSaver struct {
	calls int
	err   error
}

func (f *fakeSaver) SaveNow(context.Context) error {
	f.calls++
	return f.err
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keySave  = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyQuit  = tea.KeyMsg{Type: tea.KeyCtrlQ}
)

func newTestModel(opts Options) Model {
	if opts.Document == nil {
		opts.Document = sheet.New(0, 0)
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	return next.(Model)
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTypingCommitsCell(t *testing.T) {
	doc := sheet.New(0, 0)
	m := newTestModel(Options{Document: doc})

	m, _ = send(m, runes("4"), runes("2"))
	if m.mode != modeEdit {
		t.Fatalf("mode = %v, want edit", m.mode)
	}
	m, _ = send(m, keyEnter)

	if got := doc.Get(sheet.Cell{Row: 0, Col: 0}); got != "42" {
		t.Fatalf("A1 = %q, want 42", got)
	}
	if m.cursor != (sheet.Cell{Row: 1, Col: 0}) {
		t.Fatalf("cursor = %v, want A2", m.cursor)
	}
	if m.mode != modeNavigate {
		t.Fatalf("mode = %v, want navigate", m.mode)
	}
}

func TestEscCancelsEdit(t *testing.T) {
	doc := sheet.New(0, 0)
	if _, err := doc.Set(sheet.Cell{}, "keep"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	m := newTestModel(Options{Document: doc})

	m, _ = send(m, runes("x"), keyEsc)
	if got := doc.Get(sheet.Cell{}); got != "keep" {
		t.Fatalf("A1 = %q, want keep", got)
	}
	if m.mode != modeNavigate {
		t.Fatalf("mode = %v, want navigate", m.mode)
	}
}

func TestEnterEditsExistingValueAndDeleteClears(t *testing.T) {
	doc := sheet.New(0, 0)
	if _, err := doc.Set(sheet.Cell{}, "ab"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	m := newTestModel(Options{Document: doc})

	m, _ = send(m, keyEnter, runes("c"), keyEnter)
	if got := doc.Get(sheet.Cell{}); got != "abc" {
		t.Fatalf("A1 = %q, want abc", got)
	}

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyDelete})
	if got := doc.Get(sheet.Cell{}); got != "" {
		t.Fatalf("A1 after delete = %q, want empty", got)
	}
	_ = m
}

func TestNavigationClampsAndScrolls(t *testing.T) {
	m := newTestModel(Options{Document: sheet.New(30, 3)})
	rows := m.visibleRows()

	for i := 0; i < 40; i++ {
		m, _ = send(m, keyDown)
	}
	if m.cursor.Row != 29 {
		t.Fatalf("cursor row = %d, want 29", m.cursor.Row)
	}
	if m.top != 30-rows {
		t.Fatalf("top = %d, want %d", m.top, 30-rows)
	}

	for i := 0; i < 5; i++ {
		m, _ = send(m, keyRight)
	}
	if m.cursor.Col != 2 {
		t.Fatalf("cursor col = %d, want 2", m.cursor.Col)
	}
}

func TestSaveShortcutCommitsAndSaves(t *testing.T) {
	doc := sheet.New(0, 0)
	saver := &fakeSaver{}
	m := newTestModel(Options{Document: doc, Saver: saver})

	m, cmd := send(m, runes("7"), keySave)
	if got := doc.Get(sheet.Cell{}); got != "7" {
		t.Fatalf("A1 = %q, want 7 (edit committed before save)", got)
	}
	if cmd == nil {
		t.Fatalf("expected save command")
	}
	msg := cmd()
	if saver.calls != 1 {
		t.Fatalf("SaveNow calls = %d, want 1", saver.calls)
	}
	m, _ = send(m, msg)
	if m.flash != "" {
		t.Fatalf("flash = %q, want none after success", m.flash)
	}
}

func TestSaveFailureFlashes(t *testing.T) {
	saver := &fakeSaver{err: errors.New("Unauthorized")}
	m := newTestModel(Options{Saver: saver})

	_, cmd := send(m, keySave)
	m, _ = send(m, cmd())
	if !m.flashError || m.flash != "Save failed: Unauthorized" {
		t.Fatalf("flash = %q (error=%v)", m.flash, m.flashError)
	}
}

func TestBlurFiresHidden(t *testing.T) {
	host := &lifecycle.Callbacks{}
	fired := 0
	host.OnVisibilityHidden(func() { fired++ })
	m := newTestModel(Options{Host: host})

	send(m, tea.BlurMsg{}, tea.FocusMsg{})
	if fired != 1 {
		t.Fatalf("hidden fired %d times, want 1", fired)
	}
}

func TestQuitWhenIdle(t *testing.T) {
	m := newTestModel(Options{Store: &state.Store{}, Host: &lifecycle.Callbacks{}})
	_, cmd := send(m, keyQuit)
	if !isQuit(cmd) {
		t.Fatalf("expected quit when idle")
	}
}

func TestQuitSavesUnsavedWorkFirst(t *testing.T) {
	store := &state.Store{}
	store.Publish(state.Snapshot{Status: state.StatusUnsaved})
	saver := &fakeSaver{}
	m := newTestModel(Options{Store: store, Saver: saver})

	m, cmd := send(m, keyQuit)
	if isQuit(cmd) {
		t.Fatalf("must not quit before saving")
	}
	if !m.quitAfterSave {
		t.Fatalf("quitAfterSave not set")
	}

	msg := cmd()
	if saver.calls != 1 {
		t.Fatalf("SaveNow calls = %d, want 1", saver.calls)
	}
	_, cmd = send(m, msg)
	if !isQuit(cmd) {
		t.Fatalf("expected quit after successful save")
	}
}

func confirmingHost(store *state.Store) *lifecycle.Callbacks {
	host := &lifecycle.Callbacks{}
	host.OnBeforeUnload(func() bool { return store.Snapshot().ShouldWarnOnLeave() })
	return host
}

func TestQuitWhileSavingAsksFirst(t *testing.T) {
	store := &state.Store{}
	store.Publish(state.Snapshot{Status: state.StatusSaving})
	m := newTestModel(Options{Store: store, Host: confirmingHost(store)})

	m, cmd := send(m, keyQuit)
	if cmd != nil || m.modal == nil {
		t.Fatalf("expected confirmation modal, got cmd=%v modal=%v", cmd != nil, m.modal)
	}

	m, _ = send(m, runes("n"))
	if m.modal != nil {
		t.Fatalf("modal should close on n")
	}

	m, _ = send(m, keyQuit)
	_, cmd = send(m, runes("y"))
	if !isQuit(cmd) {
		t.Fatalf("expected quit after confirming")
	}
}

func TestFailedSaveOnQuitFallsBackToConfirmation(t *testing.T) {
	store := &state.Store{}
	store.Publish(state.Snapshot{Status: state.StatusUnsaved})
	saver := &fakeSaver{err: errors.New("boom")}
	m := newTestModel(Options{Store: store, Saver: saver, Host: confirmingHost(store)})

	m, cmd := send(m, keyQuit)
	m, cmd = send(m, cmd())
	if isQuit(cmd) {
		t.Fatalf("must not quit while changes are unsaved")
	}
	if m.modal == nil {
		t.Fatalf("expected confirmation modal after failed save")
	}

	m, cmd = send(m, runes("s"))
	if m.modal != nil {
		t.Fatalf("modal should close on s")
	}
	m, cmd = send(m, cmd())
	if !m.quitAfterSave || cmd == nil {
		t.Fatalf("expected save-and-quit to start a save")
	}
}

type countingMarker struct{ n int }

func (c *countingMarker) MarkDirty() { c.n++ }

func TestRenderDetectorIgnoresCursorMoves(t *testing.T) {
	marker := &countingMarker{}
	doc := sheet.New(0, 0)
	m := newTestModel(Options{Document: doc, Render: dirty.NewRenderDetector(marker)})

	m, _ = send(m, keyDown, keyRight, keyDown)
	if marker.n != 0 {
		t.Fatalf("marks after navigation = %d, want 0", marker.n)
	}

	// A change that bypasses the keyboard still shows up in the next frame.
	if _, err := doc.Set(sheet.Cell{}, "external"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	send(m, tickMsg{})
	if marker.n != 1 {
		t.Fatalf("marks after content change = %d, want 1", marker.n)
	}
}

func TestInputDetectorsSeeEveryMessage(t *testing.T) {
	marker := &countingMarker{}
	m := newTestModel(Options{Detectors: dirty.Multi{dirty.NewInputDetector(marker)}})

	send(m, keyDown, runes("a"), keySave)
	if marker.n != 1 {
		t.Fatalf("marks = %d, want 1 (typing only)", marker.n)
	}
}

func TestRename(t *testing.T) {
	var got string
	rename := func(_ context.Context, title string) error {
		got = title
		return nil
	}
	m := newTestModel(Options{Title: "Budget", Rename: rename})

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlR}, runes("!"))
	if m.mode != modeRename {
		t.Fatalf("mode = %v, want rename", m.mode)
	}
	m, cmd := send(m, keyEnter)
	if cmd == nil {
		t.Fatalf("expected rename command")
	}
	m, _ = send(m, cmd())
	if got != "Budget!" || m.title != "Budget!" {
		t.Fatalf("renamed to %q, title %q; want Budget!", got, m.title)
	}
}

func TestRenameUnavailable(t *testing.T) {
	m := newTestModel(Options{Title: "Budget"})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.mode != modeNavigate || !m.flashError {
		t.Fatalf("rename without handler should flash an error")
	}
}

func TestBadgeLabel(t *testing.T) {
	cases := []struct {
		snap state.Snapshot
		want string
	}{
		{state.Snapshot{Status: state.StatusIdle}, ""},
		{state.Snapshot{Status: state.StatusUnsaved}, "● Unsaved changes"},
		{state.Snapshot{Status: state.StatusSaving}, "Saving..."},
		{state.Snapshot{Status: state.StatusSaving, FailureCount: 2}, "Saving (retry 2)..."},
		{state.Snapshot{Status: state.StatusSaved}, "✓ Saved"},
		{state.Snapshot{Status: state.StatusError}, "✗ Save failed"},
	}
	for _, tc := range cases {
		if got := badgeLabel(tc.snap); got != tc.want {
			t.Fatalf("badgeLabel(%s, %d) = %q, want %q", tc.snap.Status, tc.snap.FailureCount, got, tc.want)
		}
	}
}

func TestCellAt(t *testing.T) {
	m := newTestModel(Options{})
	m.top, m.left = 3, 1

	cell, ok := m.cellAt(RowHeaderWidth+1, 2)
	if !ok || cell != (sheet.Cell{Row: 3, Col: 1}) {
		t.Fatalf("cellAt first cell = %v, %v", cell, ok)
	}
	cell, ok = m.cellAt(RowHeaderWidth+1+(CellWidth+1)*2, 4)
	if !ok || cell != (sheet.Cell{Row: 5, Col: 3}) {
		t.Fatalf("cellAt = %v, %v; want D6", cell, ok)
	}
	if _, ok := m.cellAt(0, 0); ok {
		t.Fatalf("header position should not map to a cell")
	}
}

func TestViewRendersChrome(t *testing.T) {
	store := &state.Store{}
	store.Publish(state.Snapshot{Status: state.StatusError, ErrorMessage: "Save failed: server unavailable"})
	m := newTestModel(Options{Title: "Budget", Store: store})

	view := m.View()
	for _, want := range []string{"sheetsync", "Budget", "Save failed", "A1"} {
		if !containsPlain(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/dirty"
	"github.com/five82/sheetsync/internal/lifecycle"
	"github.com/five82/sheetsync/internal/logging"
	"github.com/five82/sheetsync/internal/prefs"
	"github.com/five82/sheetsync/internal/sheet"
	"github.com/five82/sheetsync/internal/state"
)

// Saver is the manual-save slice of the autosave coordinator.
type Saver interface {
	SaveNow(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Document *sheet.Document
	Title    string
	Saver    Saver
	Store    *state.Store

	// Host receives focus-loss and quit events. The caller installs the
	// lifecycle hooks on it before Run.
	Host *lifecycle.Callbacks

	// Detectors observe every message; Render is fed the visible grid after
	// each update. Both are optional.
	Detectors dirty.Multi
	Render    *dirty.RenderDetector

	// Rename changes the document title. Nil disables renaming.
	Rename func(ctx context.Context, title string) error

	PollInterval time.Duration
	ThemeName    string
	PrefsPath    string
}

type mode int

const (
	modeNavigate mode = iota
	modeEdit
	modeRename
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx       context.Context
	doc       *sheet.Document
	saver     Saver
	store     *state.Store
	host      *lifecycle.Callbacks
	detectors dirty.Multi
	render    *dirty.RenderDetector
	rename    func(ctx context.Context, title string) error
	prefsPath string
	pollTick  time.Duration

	// UI state
	theme  Theme
	keys   keyMap
	help   help.Model
	width  int
	height int
	ready  bool
	title  string

	// Grid state
	cursor sheet.Cell
	top    int
	left   int
	mode   mode
	input  textinput.Model

	// Save state
	snapshot      state.Snapshot
	quitAfterSave bool

	// Overlays
	showHelp bool
	modal    Modal

	flash      string
	flashError bool
	flashUntil time.Time
	now        func() time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollInterval
	if pollTick <= 0 {
		pollTick = DefaultPollInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	doc := opts.Document
	if doc == nil {
		doc = sheet.New(0, 0)
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Untitled spreadsheet"
	}

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 4096

	m := Model{
		ctx:       ctx,
		doc:       doc,
		saver:     opts.Saver,
		store:     opts.Store,
		host:      opts.Host,
		detectors: opts.Detectors,
		render:    opts.Render,
		rename:    opts.Rename,
		prefsPath: opts.PrefsPath,
		pollTick:  pollTick,
		theme:     GetTheme(themeName),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		title:     title,
		input:     input,
		now:       time.Now,
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.detectors.Observe(msg)
	next, cmd := m.update(msg)
	next.observeFrame()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.ensureCursorVisible()
		return m, nil

	case tea.BlurMsg:
		if m.host != nil {
			m.host.FireHidden()
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		if m.flash != "" && m.now().After(m.flashUntil) {
			m.flash = ""
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case saveResultMsg:
		return m.handleSaveResult(msg)

	case saveAndQuitMsg:
		m.quitAfterSave = true
		return m, m.saveCmd()

	case renameResultMsg:
		if msg.err != nil {
			m.setFlash("Rename failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.title = msg.title
		m.setFlash("Renamed", false)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// Global keys work in every mode.
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.requestQuit()
	case key.Matches(msg, m.keys.Save):
		if m.mode == modeEdit {
			m.commitEdit()
		}
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	}

	switch m.mode {
	case modeEdit:
		return m.handleEditKey(msg)
	case modeRename:
		return m.handleRenameKey(msg)
	}
	return m.handleNavigateKey(msg)
}

func (m Model) handleNavigateKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.saveThemePref()
		return m, nil
	case key.Matches(msg, m.keys.Rename):
		return m.startRename()
	case key.Matches(msg, m.keys.Edit):
		m.startEdit(m.doc.Get(m.cursor))
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		if _, err := m.doc.Clear(m.cursor); err != nil {
			m.setFlash(err.Error(), true)
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Next):
		m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.Prev):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.RowStart):
		m.cursor.Col = 0
		m.ensureCursorVisible()
	case key.Matches(msg, m.keys.RowEnd):
		m.cursor.Col = m.doc.Cols() - 1
		m.ensureCursorVisible()
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.visibleRows(), 0)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.visibleRows(), 0)
	case msg.Type == tea.KeyRunes && !msg.Alt:
		// Typing replaces the cell, as in most spreadsheets.
		m.startEdit(string(msg.Runes))
	case msg.Type == tea.KeySpace:
		m.startEdit(" ")
	}
	return m, nil
}

func (m *Model) moveCursor(dRow, dCol int) {
	m.cursor.Row = clamp(m.cursor.Row+dRow, 0, m.doc.Rows()-1)
	m.cursor.Col = clamp(m.cursor.Col+dCol, 0, m.doc.Cols()-1)
	m.ensureCursorVisible()
}

// requestQuit mirrors leaving the page: outstanding work is saved first,
// and the user is asked to confirm while changes are still in the air.
func (m Model) requestQuit() (Model, tea.Cmd) {
	if m.mode == modeEdit {
		m.commitEdit()
	}
	live := m.liveSnapshot()
	if live.Status == state.StatusUnsaved || live.Status == state.StatusError {
		m.quitAfterSave = true
		m.setFlash("Saving before quit...", false)
		return m, m.saveCmd()
	}
	return m.confirmOrQuit()
}

func (m Model) confirmOrQuit() (Model, tea.Cmd) {
	if m.host != nil && m.host.FireBeforeUnload() {
		m.modal = newConfirmQuitModal(m.liveSnapshot())
		return m, nil
	}
	return m, tea.Quit
}

func (m Model) handleSaveResult(msg saveResultMsg) (Model, tea.Cmd) {
	quitting := m.quitAfterSave
	m.quitAfterSave = false

	switch {
	case msg.err == nil:
		if quitting {
			return m, tea.Quit
		}
		return m, nil
	case errors.Is(msg.err, autosave.ErrSaveInProgress):
		m.setFlash("Save already in progress", false)
	case errors.Is(msg.err, autosave.ErrNoDocument):
		m.setFlash("No document open", true)
	default:
		m.setFlash("Save failed: "+msg.err.Error(), true)
	}

	if quitting {
		return m.confirmOrQuit()
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.modal != nil || m.showHelp || m.mode != modeNavigate {
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if cell, ok := m.cellAt(msg.X, msg.Y); ok {
		m.cursor = cell
		m.ensureCursorVisible()
	}
	return m, nil
}

func (m *Model) saveThemePref() {
	if m.prefsPath == "" {
		return
	}
	name := m.theme.Name
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		logging.NewLogger("ui").WithError(err).Warn("Failed to save theme preference")
	}
}

func (m *Model) setFlash(text string, isError bool) {
	m.flash = text
	m.flashError = isError
	m.flashUntil = m.now().Add(flashDuration)
}

// liveSnapshot reads the store directly so decisions never act on a stale
// tick.
func (m Model) liveSnapshot() state.Snapshot {
	if m.store != nil {
		return m.store.Snapshot()
	}
	return m.snapshot
}

// observeFrame feeds the visible cell contents to the render detector.
func (m Model) observeFrame() {
	if m.render == nil || !m.ready {
		return
	}
	m.render.ObserveFrame(m.contentFrame())
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type saveResultMsg struct{ err error }

type saveAndQuitMsg struct{}

type renameResultMsg struct {
	title string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) saveCmd() tea.Cmd {
	if m.saver == nil {
		return nil
	}
	ctx, saver := m.ctx, m.saver
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, SaveTimeout)
		defer cancel()
		return saveResultMsg{err: saver.SaveNow(ctx)}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseCellMotion(),
		tea.WithContext(m.ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

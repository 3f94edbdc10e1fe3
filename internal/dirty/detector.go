package dirty

import (
	"hash/fnv"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sheetsync/internal/sheet"
)

// Marker receives change signals. The autosave coordinator implements it.
type Marker interface {
	MarkDirty()
}

// MarkerFunc adapts a function to Marker.
type MarkerFunc func()

// MarkDirty calls f.
func (f MarkerFunc) MarkDirty() { f() }

// Detector inspects UI events and signals the Marker when one of them may
// have mutated the document. False positives are cheap; the coordinator
// compares payloads before doing anything.
type Detector interface {
	Observe(msg tea.Msg)
}

// Multi fans a message out to several detectors.
type Multi []Detector

// Observe forwards msg to every detector in order.
func (m Multi) Observe(msg tea.Msg) {
	for _, d := range m {
		d.Observe(msg)
	}
}

// InputDetector treats keyboard and pointer activity as a possible edit.
type InputDetector struct {
	marker Marker
}

// NewInputDetector returns an InputDetector signalling m.
func NewInputDetector(m Marker) *InputDetector {
	return &InputDetector{marker: m}
}

// Observe signals on every key except pure navigation and the save
// shortcut, and on mouse button release.
func (d *InputDetector) Observe(msg tea.Msg) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if IsNavigationKey(msg) || IsSaveShortcut(msg) {
			return
		}
		d.marker.MarkDirty()
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease {
			d.marker.MarkDirty()
		}
	}
}

// IsNavigationKey reports whether k only moves focus or the cursor. Keys
// combined with ctrl or alt never count as navigation.
func IsNavigationKey(k tea.KeyMsg) bool {
	if k.Alt {
		return false
	}
	switch k.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyEsc,
		tea.KeyUp, tea.KeyDown, tea.KeyLeft, tea.KeyRight,
		tea.KeyShiftUp, tea.KeyShiftDown, tea.KeyShiftLeft, tea.KeyShiftRight:
		return true
	}
	return false
}

// IsSaveShortcut reports whether k is ctrl+s.
func IsSaveShortcut(k tea.KeyMsg) bool {
	return k.Type == tea.KeyCtrlS
}

// RenderDetector is the structural-mutation proxy: it hashes each rendered
// frame of the editing surface and signals when the frame differs from the
// previous one. The first frame after construction or Reset only sets the
// baseline.
type RenderDetector struct {
	marker Marker

	mu      sync.Mutex
	last    uint64
	hasLast bool
}

// NewRenderDetector returns a RenderDetector signalling m.
func NewRenderDetector(m Marker) *RenderDetector {
	return &RenderDetector{marker: m}
}

// Observe ignores messages; frames arrive through ObserveFrame.
func (d *RenderDetector) Observe(tea.Msg) {}

// ObserveFrame records a rendered frame.
func (d *RenderDetector) ObserveFrame(frame string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(frame))
	sum := h.Sum64()

	d.mu.Lock()
	changed := d.hasLast && sum != d.last
	d.last = sum
	d.hasLast = true
	d.mu.Unlock()

	if changed {
		d.marker.MarkDirty()
	}
}

// Reset forgets the baseline frame.
func (d *RenderDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasLast = false
}

// ChangeDetector forwards the document's own change notifications. It is
// the precise signal; the heuristics above remain as a safety net.
type ChangeDetector struct {
	once   sync.Once
	cancel func()
}

// WatchDocument subscribes m to every mutation of doc.
func WatchDocument(doc *sheet.Document, m Marker) *ChangeDetector {
	cancel := doc.Subscribe(func(sheet.Cell) { m.MarkDirty() })
	return &ChangeDetector{cancel: cancel}
}

// Stop removes the subscription. It is safe to call more than once.
func (d *ChangeDetector) Stop() {
	d.once.Do(d.cancel)
}

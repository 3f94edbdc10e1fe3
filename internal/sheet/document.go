package sheet

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	// DefaultRows and DefaultCols size a new, empty workbook.
	DefaultRows = 100
	DefaultCols = 26

	payloadVersion = 1
)

// ErrOutOfRange is returned when a cell address falls outside the grid.
var ErrOutOfRange = errors.New("cell out of range")

// Cell addresses a single cell, zero-based.
type Cell struct {
	Row int
	Col int
}

// String renders the address in A1 notation.
func (c Cell) String() string {
	return fmt.Sprintf("%s%d", ColumnName(c.Col), c.Row+1)
}

// Document is the in-memory workbook. It is safe for concurrent use.
type Document struct {
	mu    sync.RWMutex
	rows  int
	cols  int
	cells map[Cell]string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Cell)
}

// New returns an empty document of the given size. Non-positive dimensions
// take the defaults.
func New(rows, cols int) *Document {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	return &Document{
		rows:  rows,
		cols:  cols,
		cells: make(map[Cell]string),
		subs:  make(map[int]func(Cell)),
	}
}

// Rows returns the row count.
func (d *Document) Rows() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rows
}

// Cols returns the column count.
func (d *Document) Cols() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cols
}

// Get returns the raw value of a cell, or "" when empty.
func (d *Document) Get(c Cell) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cells[c]
}

// Set stores value in c. An empty value clears the cell. Subscribers are
// notified only when the stored value actually changes.
func (d *Document) Set(c Cell, value string) (bool, error) {
	d.mu.Lock()
	if c.Row < 0 || c.Col < 0 || c.Row >= d.rows || c.Col >= d.cols {
		d.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}
	old, had := d.cells[c]
	switch {
	case value == "" && !had:
		d.mu.Unlock()
		return false, nil
	case value == "":
		delete(d.cells, c)
	case had && old == value:
		d.mu.Unlock()
		return false, nil
	default:
		d.cells[c] = value
	}
	d.mu.Unlock()

	d.notify(c)
	return true, nil
}

// Clear empties a cell.
func (d *Document) Clear(c Cell) (bool, error) {
	return d.Set(c, "")
}

// Len returns the number of non-empty cells.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cells)
}

// Subscribe registers fn to run after every change. Callbacks run on the
// mutating goroutine without the document lock held. The returned function
// removes the subscription.
func (d *Document) Subscribe(fn func(Cell)) func() {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		delete(d.subs, id)
	}
}

func (d *Document) notify(c Cell) {
	d.subMu.Lock()
	fns := make([]func(Cell), 0, len(d.subs))
	ids := make([]int, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, d.subs[id])
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

type payload struct {
	Version int         `json:"version"`
	Rows    int         `json:"rows"`
	Cols    int         `json:"cols"`
	Cells   []cellValue `json:"cells"`
}

type cellValue struct {
	Row   int    `json:"r"`
	Col   int    `json:"c"`
	Value string `json:"v"`
}

// Serialize returns the canonical payload: cells in row-major order, so equal
// documents always produce byte-identical output.
func (d *Document) Serialize() ([]byte, error) {
	d.mu.RLock()
	p := payload{
		Version: payloadVersion,
		Rows:    d.rows,
		Cols:    d.cols,
		Cells:   make([]cellValue, 0, len(d.cells)),
	}
	for c, v := range d.cells {
		p.Cells = append(p.Cells, cellValue{Row: c.Row, Col: c.Col, Value: v})
	}
	d.mu.RUnlock()

	sort.Slice(p.Cells, func(i, j int) bool {
		if p.Cells[i].Row != p.Cells[j].Row {
			return p.Cells[i].Row < p.Cells[j].Row
		}
		return p.Cells[i].Col < p.Cells[j].Col
	})
	return json.Marshal(p)
}

// EncodeBase64 serializes the document for the API's data field.
func (d *Document) EncodeBase64() (string, error) {
	data, err := d.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a payload produced by Serialize.
func Decode(data []byte) (*Document, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("decode workbook: unsupported version %d", p.Version)
	}
	if p.Rows <= 0 || p.Cols <= 0 {
		return nil, fmt.Errorf("decode workbook: invalid size %dx%d", p.Rows, p.Cols)
	}

	doc := New(p.Rows, p.Cols)
	for _, cv := range p.Cells {
		c := Cell{Row: cv.Row, Col: cv.Col}
		if c.Row < 0 || c.Col < 0 || c.Row >= p.Rows || c.Col >= p.Cols {
			return nil, fmt.Errorf("decode workbook: %w: %s", ErrOutOfRange, c)
		}
		if cv.Value != "" {
			doc.cells[c] = cv.Value
		}
	}
	return doc, nil
}

// DecodeBase64 decodes the API's data field.
func DecodeBase64(encoded string) (*Document, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	return Decode(raw)
}

// LoadOrNew decodes encoded, falling back to an empty document when the data
// is missing or corrupt. The returned error reports why the fallback was
// taken; the document is always usable.
func LoadOrNew(encoded string) (*Document, error) {
	if strings.TrimSpace(encoded) == "" {
		return New(0, 0), nil
	}
	doc, err := DecodeBase64(encoded)
	if err != nil {
		return New(0, 0), err
	}
	return doc, nil
}

// ColumnName converts a zero-based column index to letters: 0 is A, 25 is
// Z, 26 is AA.
func ColumnName(col int) string {
	if col < 0 {
		return "?"
	}
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

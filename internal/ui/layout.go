package ui

import "time"

// Grid geometry.
const (
	// CellWidth is the rendered width of one column, separator excluded.
	CellWidth = 12

	// RowHeaderWidth fits row numbers up to four digits.
	RowHeaderWidth = 5

	// chromeLines is the header, column header and status bar.
	chromeLines = 3
)

// Timing constants.
const (
	// DefaultPollInterval is how often the status badge is refreshed from
	// the state store.
	DefaultPollInterval = 250 * time.Millisecond

	// SaveTimeout bounds a manual save triggered from the keyboard.
	SaveTimeout = 30 * time.Second

	// flashDuration is how long a transient status-bar message stays.
	flashDuration = 4 * time.Second
)

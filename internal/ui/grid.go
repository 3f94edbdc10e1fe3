package ui

import (
	"strconv"
	"strings"

	"github.com/five82/sheetsync/internal/sheet"
)

// visibleRows is the number of data rows that fit below the chrome.
func (m Model) visibleRows() int {
	return max(m.height-chromeLines, 1)
}

// visibleCols is the number of columns that fit beside the row header.
func (m Model) visibleCols() int {
	return max((m.width-RowHeaderWidth)/(CellWidth+1), 1)
}

// ensureCursorVisible scrolls the viewport so the cursor is on screen.
func (m *Model) ensureCursorVisible() {
	rows, cols := m.visibleRows(), m.visibleCols()
	if m.cursor.Row < m.top {
		m.top = m.cursor.Row
	}
	if m.cursor.Row >= m.top+rows {
		m.top = m.cursor.Row - rows + 1
	}
	if m.cursor.Col < m.left {
		m.left = m.cursor.Col
	}
	if m.cursor.Col >= m.left+cols {
		m.left = m.cursor.Col - cols + 1
	}
}

// viewport returns the half-open row and column ranges on screen.
func (m Model) viewport() (rowEnd, colEnd int) {
	rowEnd = min(m.top+m.visibleRows(), m.doc.Rows())
	colEnd = min(m.left+m.visibleCols(), m.doc.Cols())
	return rowEnd, colEnd
}

// cellAt maps a screen position to a cell. Row 0 is the header line and
// row 1 the column header.
func (m Model) cellAt(x, y int) (sheet.Cell, bool) {
	if y < 2 || x <= RowHeaderWidth {
		return sheet.Cell{}, false
	}
	cell := sheet.Cell{
		Row: m.top + y - 2,
		Col: m.left + (x-RowHeaderWidth-1)/(CellWidth+1),
	}
	rowEnd, colEnd := m.viewport()
	if cell.Row >= rowEnd || cell.Col >= colEnd {
		return sheet.Cell{}, false
	}
	return cell, true
}

// renderGrid renders the column header and the visible rows.
func (m Model) renderGrid() string {
	styles := m.theme.Styles()
	sep := styles.GridLine.Render("│")
	rowEnd, colEnd := m.viewport()

	var b strings.Builder
	b.WriteString(styles.CellHeader.Render(strings.Repeat(" ", RowHeaderWidth)))
	for c := m.left; c < colEnd; c++ {
		b.WriteString(sep)
		b.WriteString(styles.CellHeader.Render(center(sheet.ColumnName(c), CellWidth)))
	}

	for r := m.top; r < rowEnd; r++ {
		b.WriteString("\n")
		b.WriteString(styles.CellHeader.Render(padLeft(strconv.Itoa(r+1), RowHeaderWidth-1) + " "))
		for c := m.left; c < colEnd; c++ {
			cell := sheet.Cell{Row: r, Col: c}
			b.WriteString(sep)

			value := m.doc.Get(cell)
			style := styles.Cell
			if cell == m.cursor {
				style = styles.Cursor
				if m.mode == modeEdit {
					value = m.input.Value()
					style = styles.Editing
				}
			}
			b.WriteString(style.Render(fitCell(value, CellWidth)))
		}
	}

	// Pad so the status bar stays pinned to the bottom.
	for r := rowEnd - m.top; r < m.visibleRows(); r++ {
		b.WriteString("\n")
	}
	return b.String()
}

// contentFrame is the unstyled text of the visible cells. It changes only
// when visible content changes, not when the cursor moves.
func (m Model) contentFrame() string {
	rowEnd, colEnd := m.viewport()
	var b strings.Builder
	for r := m.top; r < rowEnd; r++ {
		for c := m.left; c < colEnd; c++ {
			b.WriteString(m.doc.Get(sheet.Cell{Row: r, Col: c}))
			b.WriteByte('\t')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

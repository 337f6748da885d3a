package terminal

import "strings"

// Cell is a single character cell.
type Cell struct {
	Rune  rune
	Width int // 1 for normal runes, 2 for wide runes, 0 for the trailing half of a wide rune
}

// EmptyCell returns a blank cell.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Width: 1}
}

// Line is one row of cells.
type Line struct {
	Cells []Cell

	// Wrapped reports that this row continues the row above it after an
	// automatic wrap.
	Wrapped bool
}

// NewLine creates a blank line of the given width.
func NewLine(width int) *Line {
	cells := make([]Cell, width)
	for i := range cells {
		cells[i] = EmptyCell()
	}
	return &Line{Cells: cells}
}

// Clear blanks every cell and drops the wrapped flag.
func (l *Line) Clear() {
	for i := range l.Cells {
		l.Cells[i] = EmptyCell()
	}
	l.Wrapped = false
}

// ClearRange blanks cells in [start, end).
func (l *Line) ClearRange(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(l.Cells) {
		end = len(l.Cells)
	}
	for i := start; i < end; i++ {
		l.Cells[i] = EmptyCell()
	}
}

// IsWrapped reports whether the row continues the one above it.
func (l *Line) IsWrapped() bool {
	return l.Wrapped
}

// TranslateToString returns the text of cells in [startCol, endCol). The
// trailing halves of wide runes are skipped. With trimRight, trailing blanks
// are removed.
func (l *Line) TranslateToString(trimRight bool, startCol, endCol int) string {
	if startCol < 0 {
		startCol = 0
	}
	if endCol > len(l.Cells) {
		endCol = len(l.Cells)
	}
	if startCol >= endCol {
		return ""
	}

	var b strings.Builder
	for _, cell := range l.Cells[startCol:endCol] {
		if cell.Width == 0 {
			continue
		}
		r := cell.Rune
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	if trimRight {
		return strings.TrimRight(b.String(), " ")
	}
	return b.String()
}

// String returns the row text without trailing blanks.
func (l *Line) String() string {
	return l.TranslateToString(true, 0, len(l.Cells))
}

// resized returns a copy of the line with the given width.
func (l *Line) resized(width int) *Line {
	out := NewLine(width)
	copy(out.Cells, l.Cells)
	out.Wrapped = l.Wrapped
	return out
}

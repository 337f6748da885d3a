package terminal

import "strings"

// DefaultScrollback is the history size used when none is configured.
const DefaultScrollback = 10000

// History stores rows scrolled off the top of the normal screen.
//
// Rows are addressed by absolute index. Evicting the oldest rows advances
// Start but never renumbers the rows that remain.
type History struct {
	lines    []*Line
	maxLines int
	start    int
}

// NewHistory creates a history holding at most maxLines rows.
func NewHistory(maxLines int) *History {
	if maxLines <= 0 {
		maxLines = DefaultScrollback
	}
	return &History{maxLines: maxLines}
}

// Push appends a row and returns how many rows were evicted to make room.
// The history takes ownership of line.
func (h *History) Push(line *Line) int {
	h.lines = append(h.lines, line)
	over := len(h.lines) - h.maxLines
	if over <= 0 {
		return 0
	}
	for i := 0; i < over; i++ {
		h.lines[i] = nil
	}
	h.lines = h.lines[over:]
	h.start += over
	return over
}

// Line returns the row at absolute index, or nil if it is not retained.
func (h *History) Line(index int) *Line {
	i := index - h.start
	if i < 0 || i >= len(h.lines) {
		return nil
	}
	return h.lines[i]
}

// Start returns the absolute index of the oldest retained row.
func (h *History) Start() int {
	return h.start
}

// End returns the absolute index one past the newest row.
func (h *History) End() int {
	return h.start + len(h.lines)
}

// Len returns the number of retained rows.
func (h *History) Len() int {
	return len(h.lines)
}

// MaxLines returns the capacity.
func (h *History) MaxLines() int {
	return h.maxLines
}

// Clear evicts every row and returns how many were dropped.
func (h *History) Clear() int {
	n := len(h.lines)
	h.start += n
	h.lines = nil
	return n
}

// GetText returns the retained rows joined into logical lines.
func (h *History) GetText() string {
	var b strings.Builder
	for i, line := range h.lines {
		if i > 0 && !line.Wrapped {
			b.WriteByte('\n')
		}
		b.WriteString(line.TranslateToString(!h.continues(i), 0, len(line.Cells)))
	}
	return b.String()
}

func (h *History) continues(i int) bool {
	return i+1 < len(h.lines) && h.lines[i+1].Wrapped
}

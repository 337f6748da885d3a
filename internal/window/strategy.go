package window

import (
	"strings"
	"unicode"
)

// ellipsis prefixes a viewport's first row when its logical line starts
// above the viewport.
const ellipsis = "..."

// assembler merges consecutive rows into logical lines.
//
// Rows are collected untrimmed; trimming happens once in finish so spaces at
// a wrap boundary survive the merge. rows and cont record, per entry, the
// absolute row it starts on and whether that row is a wrap continuation.
type assembler struct {
	merge bool
	lines []string
	rows  []int
	cont  []bool
}

func (a *assembler) add(row int, text string, wrapped bool) {
	if a.merge && wrapped && len(a.lines) > 0 {
		a.lines[len(a.lines)-1] += text
		return
	}
	a.lines = append(a.lines, text)
	a.rows = append(a.rows, row)
	a.cont = append(a.cont, wrapped)
}

func (a *assembler) finish() []string {
	for i := range a.lines {
		a.lines[i] = strings.TrimRightFunc(a.lines[i], unicode.IsSpace)
	}
	return a.lines
}

// lastLogical returns the index of the first entry of the last logical line.
func (a *assembler) lastLogical() int {
	i := len(a.lines) - 1
	for i > 0 && a.cont[i] {
		i--
	}
	return i
}

// assemble reads rows [start, end] inclusive. Missing rows are skipped. When
// firstEllipsis is set, a wrapped first row is prefixed and kept as its own
// entry.
func assemble(buf Buffer, cols, start, end int, merge, firstEllipsis bool) *assembler {
	a := &assembler{merge: merge}
	for i := start; i <= end; i++ {
		line, ok := buf.Line(i)
		if !ok || line == nil {
			continue
		}
		text := line.TranslateToString(false, 0, cols)
		wrapped := line.IsWrapped()
		if firstEllipsis && i == start && wrapped {
			a.add(i, ellipsis+text, false)
			continue
		}
		a.add(i, text, wrapped)
	}
	a.finish()
	return a
}

func collect(buf Buffer, cols, start, end int, merge, firstEllipsis bool) []string {
	return assemble(buf, cols, start, end, merge, firstEllipsis).lines
}

// cursorLine returns the absolute cursor row.
func cursorLine(buf Buffer) int {
	return buf.BaseY() + buf.CursorY()
}

// readTail returns the logical lines from cursor-maxLines to the cursor.
func readTail(term Terminal, o readOptions) Snapshot {
	buf := term.ActiveBuffer()
	cursor := cursorLine(buf)
	start := cursor - o.maxLines
	if start < 0 {
		start = 0
	}

	snap := newSnapshot(term, buf, collect(buf, term.Cols(), start, cursor, o.mergeWrapped, false))
	snap.CursorLine = intPtr(cursor)
	return snap
}

// readViewport returns the rows currently visible.
func readViewport(term Terminal, o readOptions) Snapshot {
	buf := term.ActiveBuffer()
	top := buf.ViewportY()
	bottom := top + term.Rows() - 1

	snap := newSnapshot(term, buf, collect(buf, term.Cols(), top, bottom, o.mergeWrapped, true))
	snap.ViewportY = intPtr(top)
	return snap
}

// readDelta returns the logical lines written after the marker named in o,
// registering a new marker when none is given.
//
// The marker itself is never moved and its own row is never returned. The
// registry remembers the last logical line each delta read returned. The
// next read starts from that line again and drops it only if its text is
// unchanged, so a repeated read with no new output is empty while text
// appended to a returned row is still reported.
func readDelta(term Terminal, markers *Registry, o readOptions) Snapshot {
	buf := term.ActiveBuffer()
	if buf.Type() == BufferAlternate {
		return readTail(term, o)
	}

	if !o.hasMarker {
		marker, ok := markers.Register(term)
		if !ok {
			return readTail(term, o)
		}
		snap := newSnapshot(term, buf, nil)
		snap.MarkerID = intPtr(marker.ID())
		snap.MarkerLine = intPtr(marker.Line())
		snap.MarkerDisposed = boolPtr(false)
		return snap
	}

	marker, ok := markers.Get(o.markerID)
	if !ok || marker.IsDisposed() || marker.Line() < 0 {
		snap := readTail(term, o)
		snap.MarkerID = intPtr(o.markerID)
		snap.MarkerDisposed = boolPtr(true)
		return snap
	}

	markerLine := marker.Line()
	start := markerLine + 1
	last, resumed := markers.lastDelivered(o.markerID)
	if resumed && last.row > start {
		start = last.row
	}
	for start > 0 {
		line, ok := buf.Line(start)
		if !ok || line == nil || !line.IsWrapped() {
			break
		}
		start--
	}

	a := assemble(buf, term.Cols(), start, cursorLine(buf), o.mergeWrapped, false)
	lines := a.lines
	if len(lines) > 0 {
		k := a.lastLogical()
		next := delivered{row: a.rows[k], count: len(lines) - k, text: strings.Join(lines[k:], "\n")}
		if resumed && last.matches(a) {
			lines = lines[last.count:]
		}
		markers.deliver(o.markerID, next)
	}

	snap := newSnapshot(term, buf, lines)
	snap.MarkerID = intPtr(marker.ID())
	snap.MarkerLine = intPtr(markerLine)
	snap.MarkerDisposed = boolPtr(false)
	return snap
}

package window

import (
	"strings"
	"sync"
)

// fakeLine is a row with raw text padded to the terminal width.
type fakeLine struct {
	text    string
	wrapped bool
}

func (l fakeLine) IsWrapped() bool {
	return l.wrapped
}

func (l fakeLine) TranslateToString(trimRight bool, startCol, endCol int) string {
	runes := []rune(l.text)
	if startCol < 0 {
		startCol = 0
	}
	if endCol > len(runes) {
		endCol = len(runes)
	}
	if startCol >= endCol {
		return ""
	}
	s := string(runes[startCol:endCol])
	if trimRight {
		s = strings.TrimRight(s, " ")
	}
	return s
}

type fakeBuffer struct {
	kind      BufferType
	baseY     int
	cursorY   int
	viewportY int
	lines     map[int]fakeLine
}

func (b *fakeBuffer) Type() BufferType { return b.kind }
func (b *fakeBuffer) BaseY() int       { return b.baseY }
func (b *fakeBuffer) CursorY() int     { return b.cursorY }
func (b *fakeBuffer) ViewportY() int   { return b.viewportY }

func (b *fakeBuffer) Line(index int) (Line, bool) {
	line, ok := b.lines[index]
	if !ok {
		return nil, false
	}
	return line, true
}

type fakeMarker struct {
	mu        sync.Mutex
	id        int
	line      int
	disposed  bool
	listeners map[int]func()
	nextSub   int
}

func newFakeMarker(id, line int) *fakeMarker {
	return &fakeMarker{id: id, line: line, listeners: make(map[int]func())}
}

func (m *fakeMarker) ID() int { return m.id }

func (m *fakeMarker) Line() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.line
}

func (m *fakeMarker) IsDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

func (m *fakeMarker) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.line = -1
	listeners := m.listeners
	m.listeners = make(map[int]func())
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// invalidate simulates the anchor scrolling out of history without firing
// the disposal callbacks.
func (m *fakeMarker) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.line = -1
}

// markDisposed flips the disposed flag without notifying listeners.
func (m *fakeMarker) markDisposed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
}

func (m *fakeMarker) OnDispose(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.nextSub
	m.nextSub++
	m.listeners[sub] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, sub)
	}
}

func (m *fakeMarker) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

type fakeTerminal struct {
	normal    *fakeBuffer
	alternate *fakeBuffer
	active    *fakeBuffer
	rows      int
	cols      int
	refuse    bool
	nextID    int
	markers   []*fakeMarker
}

// newFakeTerminal builds a normal buffer whose rows 0..len(rows)-1 hold the
// given text, with the cursor on the last row.
func newFakeTerminal(cols, height int, rows ...string) *fakeTerminal {
	buf := &fakeBuffer{kind: BufferNormal, lines: make(map[int]fakeLine)}
	term := &fakeTerminal{normal: buf, active: buf, rows: height, cols: cols, nextID: 1}
	for _, text := range rows {
		term.appendLine(text, false)
	}
	return term
}

func pad(text string, cols int) string {
	if n := cols - len([]rune(text)); n > 0 {
		return text + strings.Repeat(" ", n)
	}
	return text
}

// appendLine writes a row at the next absolute index and moves the cursor
// onto it, scrolling the screen once it is full.
func (t *fakeTerminal) appendLine(text string, wrapped bool) int {
	buf := t.normal
	index := len(buf.lines)
	if len(buf.lines) > 0 {
		index = t.lastIndex() + 1
	}
	buf.lines[index] = fakeLine{text: pad(text, t.cols), wrapped: wrapped}
	if index-buf.baseY >= t.rows {
		buf.baseY = index - t.rows + 1
	}
	buf.cursorY = index - buf.baseY
	buf.viewportY = buf.baseY
	return index
}

func (t *fakeTerminal) lastIndex() int {
	last := -1
	for i := range t.normal.lines {
		if i > last {
			last = i
		}
	}
	return last
}

// trimBefore drops every row below index, as history eviction would.
func (t *fakeTerminal) trimBefore(index int) {
	for i := range t.normal.lines {
		if i < index {
			delete(t.normal.lines, i)
		}
	}
}

func (t *fakeTerminal) useAlternate(rows ...string) {
	alt := &fakeBuffer{kind: BufferAlternate, lines: make(map[int]fakeLine)}
	for i, text := range rows {
		alt.lines[i] = fakeLine{text: pad(text, t.cols)}
	}
	if len(rows) > 0 {
		alt.cursorY = len(rows) - 1
	}
	t.alternate = alt
	t.active = alt
}

func (t *fakeTerminal) useNormal() {
	t.active = t.normal
}

func (t *fakeTerminal) ActiveBuffer() Buffer { return t.active }
func (t *fakeTerminal) Rows() int            { return t.rows }
func (t *fakeTerminal) Cols() int            { return t.cols }

func (t *fakeTerminal) RegisterMarker(offset int) (Marker, bool) {
	if t.refuse || t.active.kind == BufferAlternate {
		return nil, false
	}
	m := newFakeMarker(t.nextID, t.active.baseY+t.active.cursorY+offset)
	t.nextID++
	t.markers = append(t.markers, m)
	return m, true
}

// fakeOwner hands out a fixed sequence of markers.
type fakeOwner struct {
	next    int
	created []*fakeMarker
	refuse  bool
}

func (o *fakeOwner) RegisterMarker(offset int) (Marker, bool) {
	if o.refuse {
		return nil, false
	}
	o.next++
	m := newFakeMarker(o.next, o.next*10+offset)
	o.created = append(o.created, m)
	return m, true
}

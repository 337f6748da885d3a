package terminal

import "github.com/dshills/termwindow/internal/window"

var _ window.Source = (*Screen)(nil)

// View runs fn with a consistent view of the screen. The read lock is held
// until fn returns, so fn must not write to the screen.
func (s *Screen) View(fn func(window.Terminal)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(screenView{s: s})
}

// screenView is only valid inside View.
type screenView struct {
	s *Screen
}

func (v screenView) ActiveBuffer() window.Buffer {
	return bufferView(v)
}

func (v screenView) Rows() int {
	return v.s.height
}

func (v screenView) Cols() int {
	return v.s.width
}

func (v screenView) RegisterMarker(offset int) (window.Marker, bool) {
	m, ok := v.s.registerMarkerLocked(offset)
	if !ok {
		return nil, false
	}
	return m, true
}

type bufferView struct {
	s *Screen
}

func (b bufferView) Type() window.BufferType {
	if b.s.altActive {
		return window.BufferAlternate
	}
	return window.BufferNormal
}

func (b bufferView) BaseY() int {
	return b.s.baseYLocked()
}

func (b bufferView) CursorY() int {
	return b.s.cursorY
}

func (b bufferView) ViewportY() int {
	return b.s.viewportYLocked()
}

func (b bufferView) Line(index int) (window.Line, bool) {
	line := b.s.lineAtLocked(index)
	if line == nil {
		return nil, false
	}
	return line, true
}

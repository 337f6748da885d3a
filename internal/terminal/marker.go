package terminal

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/termwindow/internal/window"
)

// DefaultMaxMarkers caps live markers per screen when none is configured.
const DefaultMaxMarkers = 1000

// Marker anchors an absolute row of the normal buffer. It is disposed when
// that row leaves the retained scrollback.
type Marker struct {
	id       int
	line     atomic.Int64
	disposed atomic.Bool
	set      *markerSet

	mu        sync.Mutex
	listeners map[int]func()
	nextSub   int
}

var _ window.Marker = (*Marker)(nil)

// ID returns the marker id, unique within its screen.
func (m *Marker) ID() int {
	return m.id
}

// Line returns the anchored absolute row, or -1 once disposed.
func (m *Marker) Line() int {
	return int(m.line.Load())
}

// IsDisposed reports whether the marker was disposed.
func (m *Marker) IsDisposed() bool {
	return m.disposed.Load()
}

// Dispose invalidates the marker and notifies subscribers. It is idempotent.
func (m *Marker) Dispose() {
	if m.set != nil {
		m.set.remove(m)
	}
	m.fire()
}

// OnDispose subscribes fn to the disposal. The returned func unsubscribes.
// Subscribing to a disposed marker does nothing.
func (m *Marker) OnDispose(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed.Load() || fn == nil {
		return func() {}
	}
	if m.listeners == nil {
		m.listeners = make(map[int]func())
	}
	sub := m.nextSub
	m.nextSub++
	m.listeners[sub] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, sub)
	}
}

// fire marks the marker disposed and runs the subscribers once.
func (m *Marker) fire() {
	if !m.disposed.CompareAndSwap(false, true) {
		return
	}
	m.line.Store(-1)

	m.mu.Lock()
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// markerSet holds the live markers of a screen. Its lock is taken while the
// screen lock may be held, never the other way round.
type markerSet struct {
	mu      sync.Mutex
	markers []*Marker
	nextID  int
	limit   int
}

func newMarkerSet(limit int) *markerSet {
	if limit <= 0 {
		limit = DefaultMaxMarkers
	}
	return &markerSet{nextID: 1, limit: limit}
}

// add creates a marker at line, or refuses when the set is full.
func (s *markerSet) add(line int) (*Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.markers) >= s.limit {
		return nil, false
	}
	m := &Marker{id: s.nextID, set: s}
	m.line.Store(int64(line))
	s.nextID++
	s.markers = append(s.markers, m)
	return m, true
}

func (s *markerSet) remove(target *Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.markers {
		if m == target {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return
		}
	}
}

// disposeWhere disposes every marker whose line matches drop and returns how
// many were disposed. Subscribers run after the set lock is released.
func (s *markerSet) disposeWhere(drop func(line int) bool) int {
	s.mu.Lock()
	var dropped []*Marker
	kept := s.markers[:0]
	for _, m := range s.markers {
		if drop(m.Line()) {
			dropped = append(dropped, m)
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(s.markers); i++ {
		s.markers[i] = nil
	}
	s.markers = kept
	s.mu.Unlock()

	for _, m := range dropped {
		m.fire()
	}
	return len(dropped)
}

func (s *markerSet) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

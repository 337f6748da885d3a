package window

import (
	"context"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

// DefaultCleanupThreshold is the registry size above which disposed markers
// are swept before a new registration.
const DefaultCleanupThreshold = 50

// registryEntry pairs a marker with the release handle of its disposal
// subscription. last is the final logical line the previous delta read
// returned for the marker; hasLast is false until the first such read.
type registryEntry struct {
	marker  Marker
	release func()
	last    delivered
	hasLast bool
}

// delivered identifies a logical line returned by a delta read: the absolute
// row it starts on, how many entries it produced and their joined text.
type delivered struct {
	row   int
	count int
	text  string
}

// matches reports whether a starts with the same logical line.
func (d delivered) matches(a *assembler) bool {
	if len(a.lines) < d.count || a.rows[0] != d.row {
		return false
	}
	return strings.Join(a.lines[:d.count], "\n") == d.text
}

// Registry tracks live markers by id.
//
// The registry lock is never held while calling into a marker's owner, so
// disposal callbacks may fire from any goroutine, including from inside
// Remove.
type Registry struct {
	mu        sync.Mutex
	entries   map[int]registryEntry
	threshold int
	log       pslog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCleanupThreshold sets the size above which Register sweeps disposed
// markers first. Non-positive values keep the default.
func WithCleanupThreshold(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(log pslog.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:   make(map[int]registryEntry),
		threshold: DefaultCleanupThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = pslog.Ctx(context.Background())
	}
	return r
}

// Register asks owner for a marker at the cursor and tracks it. It returns
// false if the owner refuses.
func (r *Registry) Register(owner MarkerSource) (Marker, bool) {
	if owner == nil {
		return nil, false
	}
	if r.Count() > r.threshold {
		r.Sweep()
	}

	marker, ok := owner.RegisterMarker(0)
	if !ok || marker == nil {
		r.log.Debug("marker registration refused")
		return nil, false
	}

	id := marker.ID()
	release := marker.OnDispose(func() {
		r.forget(id, marker)
	})

	r.mu.Lock()
	if marker.IsDisposed() {
		r.mu.Unlock()
		release()
		return nil, false
	}
	previous, replaced := r.entries[id]
	r.entries[id] = registryEntry{marker: marker, release: release}
	r.mu.Unlock()

	if replaced && previous.release != nil {
		previous.release()
	}
	r.log.Debug("marker registered", "marker", id, "line", marker.Line())
	return marker, true
}

// Get returns the marker registered under id.
func (r *Registry) Get(id int) (Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return entry.marker, true
}

// Remove disposes the marker registered under id and forgets it.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	entry.dispose()
	r.log.Debug("marker removed", "marker", id)
}

// RemoveAll disposes every marker and empties the registry.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[int]registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.dispose()
	}
	if len(entries) > 0 {
		r.log.Debug("markers removed", "count", len(entries))
	}
}

// Sweep forgets every disposed marker and returns how many were removed.
// Live markers are never touched.
func (r *Registry) Sweep() int {
	var swept []registryEntry

	r.mu.Lock()
	for id, entry := range r.entries {
		if entry.marker.IsDisposed() {
			delete(r.entries, id)
			swept = append(swept, entry)
		}
	}
	r.mu.Unlock()

	for _, entry := range swept {
		if entry.release != nil {
			entry.release()
		}
	}
	if len(swept) > 0 {
		r.log.Debug("markers swept", "count", len(swept))
	}
	return len(swept)
}

// Count returns the number of tracked markers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Threshold returns the cleanup threshold.
func (r *Registry) Threshold() int {
	return r.threshold
}

// lastDelivered returns the last logical line a delta read returned for id.
func (r *Registry) lastDelivered(id int) (delivered, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || !entry.hasLast {
		return delivered{}, false
	}
	return entry.last, true
}

// deliver records d as the last logical line returned for id. It never
// moves back to an earlier row.
func (r *Registry) deliver(id int, d delivered) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || (entry.hasLast && d.row < entry.last.row) {
		return
	}
	entry.last = d
	entry.hasLast = true
	r.entries[id] = entry
}

// forget is the disposal callback. It only deletes, and only the entry that
// still holds marker.
func (r *Registry) forget(id int, marker Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[id]; ok && entry.marker == marker {
		delete(r.entries, id)
	}
}

func (e registryEntry) dispose() {
	if e.release != nil {
		e.release()
	}
	if !e.marker.IsDisposed() {
		e.marker.Dispose()
	}
}

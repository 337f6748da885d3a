package window

// BufferType identifies which screen buffer a terminal is showing.
type BufferType string

const (
	// BufferNormal is the primary buffer with scrollback history.
	BufferNormal BufferType = "normal"

	// BufferAlternate is used by full-screen programs. It has no scrollback
	// and does not support markers.
	BufferAlternate BufferType = "alternate"
)

// Line is one row of a terminal buffer.
type Line interface {
	// IsWrapped reports whether this row continues the previous row's
	// logical line.
	IsWrapped() bool

	// TranslateToString returns the row's text for the columns
	// [startCol, endCol), optionally with trailing whitespace removed.
	TranslateToString(trimRight bool, startCol, endCol int) string
}

// Buffer is a read-only view of a terminal's active screen buffer.
//
// Indices are absolute: they increase monotonically from buffer creation and
// do not shift when old history is trimmed.
type Buffer interface {
	// Type returns the buffer type.
	Type() BufferType

	// BaseY returns the absolute index of the first screen row.
	BaseY() int

	// CursorY returns the cursor row relative to BaseY.
	CursorY() int

	// ViewportY returns the absolute index of the first visible row.
	ViewportY() int

	// Line returns the row at an absolute index. It returns false for rows
	// that were trimmed from history or lie outside the buffer.
	Line(index int) (Line, bool)
}

// Marker is a handle anchored to a buffer row.
type Marker interface {
	// ID returns the identifier assigned by the buffer owner.
	ID() int

	// Line returns the absolute row the marker is anchored to, or -1 once
	// the row has left retained history.
	Line() int

	// IsDisposed reports whether the marker has been disposed.
	IsDisposed() bool

	// Dispose releases the marker. It is a no-op on a disposed marker.
	Dispose()

	// OnDispose registers fn to run once when the marker is disposed. The
	// returned release function unsubscribes fn and may be called any
	// number of times.
	OnDispose(fn func()) (release func())
}

// MarkerSource creates markers anchored relative to the cursor.
type MarkerSource interface {
	// RegisterMarker anchors a marker at the cursor row plus offset. It
	// returns false if the owner refuses, for example on the alternate
	// buffer or when its marker capacity is exhausted.
	RegisterMarker(offset int) (Marker, bool)
}

// Terminal is the capability the window reads consume.
type Terminal interface {
	MarkerSource

	// ActiveBuffer returns the buffer currently shown.
	ActiveBuffer() Buffer

	// Rows returns the terminal height.
	Rows() int

	// Cols returns the terminal width.
	Cols() int
}

// Source grants consistent access to a live terminal. Implementations must
// keep the terminal free of concurrent writes while fn runs.
type Source interface {
	View(fn func(Terminal))
}

type staticSource struct {
	term Terminal
}

func (s staticSource) View(fn func(Terminal)) {
	fn(s.term)
}

// Static returns a Source for a terminal that needs no synchronization.
func Static(term Terminal) Source {
	return staticSource{term: term}
}

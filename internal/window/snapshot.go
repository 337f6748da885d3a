package window

import "strings"

// Snapshot is the result of a window read.
//
// Exactly one group of the optional metadata fields is set, depending on the
// strategy that produced the snapshot: CursorLine for Tail, ViewportY for
// Viewport, and the Marker fields for Delta. A Tail fallback from an invalid
// marker also carries MarkerID and MarkerDisposed.
type Snapshot struct {
	Text       string     `json:"text" cbor:"text"`
	Lines      []string   `json:"lines" cbor:"lines"`
	Rows       int        `json:"rows" cbor:"rows"`
	Cols       int        `json:"cols" cbor:"cols"`
	BufferType BufferType `json:"bufferType" cbor:"bufferType"`

	CursorLine *int `json:"cursorLine,omitempty" cbor:"cursorLine,omitempty"`
	ViewportY  *int `json:"viewportY,omitempty" cbor:"viewportY,omitempty"`

	MarkerID       *int  `json:"markerId,omitempty" cbor:"markerId,omitempty"`
	MarkerLine     *int  `json:"markerLine,omitempty" cbor:"markerLine,omitempty"`
	MarkerDisposed *bool `json:"markerDisposed,omitempty" cbor:"markerDisposed,omitempty"`
}

// Empty reports whether the snapshot carries no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// newSnapshot builds a snapshot from assembled logical lines.
func newSnapshot(term Terminal, buf Buffer, lines []string) Snapshot {
	if lines == nil {
		lines = []string{}
	}
	return Snapshot{
		Text:       strings.Join(lines, "\n"),
		Lines:      lines,
		Rows:       term.Rows(),
		Cols:       term.Cols(),
		BufferType: buf.Type(),
	}
}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

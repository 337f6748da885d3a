// Package window extracts bounded slices of a live terminal's scrollback
// buffer for monitoring and automation loops.
//
// A read produces a [Snapshot] in one of three modes:
//
//   - Tail: the last N logical lines ending at the cursor ("what just happened")
//   - Viewport: exactly the rows currently visible on screen
//   - Delta: only the lines that appeared since a position marker was placed
//
// Rows that the terminal split because they exceeded the column width carry a
// wrapped flag; reads merge those rows back into logical lines before
// trimming trailing whitespace, so a wrap boundary in the middle of a word is
// preserved.
//
// # Usage
//
// The buffer owner (a terminal emulator) implements [Terminal] and grants
// consistent access to it through a [Source]:
//
//	reader := window.NewReader(screen)
//
//	// First poll places a marker and returns nothing.
//	snap := reader.Read(window.ModeDelta)
//	id := *snap.MarkerID
//
//	// Later polls return only new output.
//	snap = reader.Read(window.ModeDelta, window.WithMarker(id))
//
// Reads never fail. A refused marker registration, an invalidated marker, or
// an alternate screen buffer all degrade to a Tail read.
//
// # Thread Safety
//
// A [Reader] and its [Registry] are safe for concurrent use. Marker disposal
// callbacks may fire from the buffer owner's goroutine at any time.
package window

// Package terminal provides a headless terminal emulator whose buffer can be
// read through the window package.
//
// The package is organized around these types:
//
//   - Screen: text cell grid with scrollback History, an alternate buffer,
//     viewport scrolling and position markers
//   - Parser: ANSI escape sequence parser feeding a Screen
//   - Session: a Screen, its Parser and a window.Reader with its own
//     marker registry
//   - Terminal: a command on a PTY whose output feeds a Session
//   - Manager: tracks multiple terminals
//
// # Absolute rows
//
// Rows of the normal buffer are numbered from the first row ever written.
// Rows scrolled off the top of the screen move into History and keep their
// number; once History evicts them they are gone, and markers anchored on
// them are disposed. The alternate buffer (DEC modes 47, 1047 and 1049) has
// no history, numbers its rows from 0 and refuses markers.
//
// # Usage
//
// Replay captured output and read it back:
//
//	session := terminal.NewSession(terminal.SessionOptions{Cols: 80, Rows: 24})
//	session.Feed(output)
//	snap := session.ReadBuffer(window.ModeTail, window.WithMaxLines(20))
//
// Or run a command and poll it incrementally:
//
//	term, err := terminal.Start(terminal.Options{Shell: "make", Args: []string{"test"}})
//	if err != nil {
//	    return err
//	}
//	defer term.Close()
//
//	snap := term.ReadBuffer(window.ModeDelta)
//	// ... later
//	snap = term.ReadBuffer(window.ModeDelta, window.WithMarkerID(snap.MarkerID))
//
// # Thread Safety
//
// Screen, Session, Terminal and Manager are safe for concurrent use. A
// window read holds the screen read lock for its whole duration, so it never
// observes a half-applied write. Parser is not safe for concurrent use;
// Session serializes its feeds.
package terminal

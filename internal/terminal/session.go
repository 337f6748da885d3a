package terminal

import (
	"context"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/window"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Cols int
	Rows int

	// Scrollback is the history size in rows.
	Scrollback int

	// MaxMarkers caps live markers on the screen.
	MaxMarkers int

	// MaxLines is the default Tail budget of window reads.
	MaxLines int

	// CleanupThreshold is the marker registry sweep threshold.
	CleanupThreshold int

	Logger  pslog.Logger
	OnTitle func(string)
}

// Session is a headless terminal: a screen, a parser feeding it and a
// window reader over it. Each session owns its marker registry.
type Session struct {
	screen *Screen
	parser *Parser
	reader *window.Reader
	log    pslog.Logger

	feedMu sync.Mutex
	closed atomic.Bool
}

// NewSession creates a session with the given options.
func NewSession(opts SessionOptions) *Session {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}

	screen := NewScreen(opts.Cols, opts.Rows,
		WithScrollback(opts.Scrollback),
		WithMaxMarkers(opts.MaxMarkers),
	)
	parser := NewParser(screen)
	if opts.OnTitle != nil {
		parser.SetTitleCallback(opts.OnTitle)
	}
	parser.SetUnknownCallback(func(seq string) {
		log.Trace("ignored sequence", "seq", seq)
	})

	return &Session{
		screen: screen,
		parser: parser,
		reader: window.NewReader(screen,
			window.WithDefaultMaxLines(opts.MaxLines),
			window.WithReaderCleanupThreshold(opts.CleanupThreshold),
			window.WithLogger(log),
		),
		log: log,
	}
}

// Feed applies terminal output to the screen.
func (s *Session) Feed(data []byte) error {
	if s.closed.Load() {
		return ErrTerminalClosed
	}
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	s.parser.Parse(data)
	return nil
}

// Write implements io.Writer over Feed.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.Feed(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadBuffer reads a window of the buffer in the given mode.
func (s *Session) ReadBuffer(mode window.Mode, opts ...window.Option) window.Snapshot {
	return s.reader.Read(mode, opts...)
}

// Markers returns the session's marker registry.
func (s *Session) Markers() *window.Registry {
	return s.reader.Markers()
}

// Screen returns the session's screen.
func (s *Session) Screen() *Screen {
	return s.screen
}

// Resize resizes the screen.
func (s *Session) Resize(cols, rows int) error {
	if cols < 1 || rows < 1 {
		return ErrInvalidSize
	}
	s.screen.Resize(cols, rows)
	return nil
}

// Close disposes every registered marker. Further feeds fail.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.reader.Markers().RemoveAll()
}

package terminal

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/termwindow/internal/window"
)

// mockEventPublisher implements EventPublisher for testing.
type mockEventPublisher struct {
	mu     sync.Mutex
	events []mockEvent
}

type mockEvent struct {
	eventType string
	data      map[string]any
}

func (m *mockEventPublisher) Publish(eventType string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, mockEvent{eventType, data})
}

func (m *mockEventPublisher) has(eventType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.eventType == eventType {
			return true
		}
	}
	return false
}

func startOrSkip(t *testing.T, m *Manager, opts Options) *Terminal {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping terminal test in short mode")
	}
	term, err := m.Create(opts)
	if err != nil {
		t.Skipf("skipping: failed to create terminal (may not have PTY): %v", err)
	}
	return term
}

func waitDone(t *testing.T, term *Terminal) {
	t.Helper()
	select {
	case <-term.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("command did not exit within timeout")
	}
}

func TestNewManager(t *testing.T) {
	m := NewManager(ManagerConfig{})

	if m.Count() != 0 {
		t.Errorf("expected 0 terminals, got %d", m.Count())
	}
	if m.cfg.DefaultCols != 80 || m.cfg.DefaultRows != 24 {
		t.Errorf("expected 80x24 defaults, got %dx%d", m.cfg.DefaultCols, m.cfg.DefaultRows)
	}
	if m.cfg.Scrollback != DefaultScrollback {
		t.Errorf("expected scrollback %d, got %d", DefaultScrollback, m.cfg.Scrollback)
	}
}

func TestManagerCloseNonexistent(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	if err := m.Close("nonexistent"); !errors.Is(err, ErrTerminalNotFound) {
		t.Errorf("expected ErrTerminalNotFound, got %v", err)
	}
	if _, err := m.ReadBuffer("nonexistent", window.ModeTail); !errors.Is(err, ErrTerminalNotFound) {
		t.Errorf("expected ErrTerminalNotFound from ReadBuffer, got %v", err)
	}
}

func TestShellNotFound(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	_, err := m.Create(Options{Shell: "/nonexistent/shell"})
	if !errors.Is(err, ErrShellNotFound) {
		t.Errorf("expected ErrShellNotFound, got %v", err)
	}
}

func TestManagerCreateTerminal(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{Name: "test-term", Shell: "/bin/sh"})
	defer term.Close()

	if term.ID() == "" {
		t.Error("expected non-empty terminal ID")
	}
	if term.Name() != "test-term" {
		t.Errorf("expected name 'test-term', got '%s'", term.Name())
	}
	if !term.IsRunning() {
		t.Error("terminal should be running")
	}
	if term.ExitCode() != -1 {
		t.Errorf("expected exit code -1 while running, got %d", term.ExitCode())
	}
	if term.PID() <= 0 {
		t.Errorf("expected positive PID, got %d", term.PID())
	}

	got, ok := m.Get(term.ID())
	if !ok || got != term {
		t.Error("expected to find terminal")
	}
	if m.Count() != 1 || len(m.List()) != 1 {
		t.Errorf("expected 1 terminal, got %d", m.Count())
	}
}

func TestManagerReadBufferAfterExit(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{
		Shell: "/bin/sh",
		Args:  []string{"-c", "echo hello; echo world"},
		Cols:  40,
		Rows:  10,
	})
	defer term.Close()
	waitDone(t, term)

	if term.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", term.ExitCode())
	}
	if term.IsRunning() {
		t.Error("terminal should not be running after exit")
	}

	snap, err := m.ReadBuffer(term.ID(), window.ModeTail)
	if err != nil {
		t.Fatalf("read buffer: %v", err)
	}
	text := strings.Join(snap.Lines, "\n")
	if !strings.Contains(text, "hello\nworld") {
		t.Errorf("expected command output in tail, got %q", text)
	}
	if snap.Cols != 40 || snap.Rows != 10 {
		t.Errorf("expected 10x40, got %dx%d", snap.Rows, snap.Cols)
	}
}

func TestTerminalDeltaFollowsOutput(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{
		Shell: "/bin/sh",
		Args:  []string{"-c", "read line; echo got $line"},
	})
	defer term.Close()

	first := term.ReadBuffer(window.ModeDelta)
	if first.MarkerID == nil {
		t.Fatal("expected a marker")
	}

	if _, err := term.WriteString("ping\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitDone(t, term)

	snap := term.ReadBuffer(window.ModeDelta, window.WithMarkerID(first.MarkerID))
	if !strings.Contains(strings.Join(snap.Lines, "\n"), "got ping") {
		t.Errorf("expected echoed output in delta, got %v", snap.Lines)
	}
}

func TestManagerCloseTerminal(t *testing.T) {
	pub := &mockEventPublisher{}
	m := NewManager(ManagerConfig{EventBus: pub})
	defer m.Shutdown(5 * time.Second)

	closeCalled := make(chan struct{})
	term := startOrSkip(t, m, Options{
		Shell:   "/bin/sh",
		OnClose: func() { close(closeCalled) },
	})
	if !pub.has("terminal.created") {
		t.Error("expected terminal.created event")
	}

	marker := term.ReadBuffer(window.ModeDelta)
	if marker.MarkerID == nil {
		t.Fatal("expected a marker")
	}

	if err := m.Close(term.ID()); err != nil {
		t.Fatalf("failed to close terminal: %v", err)
	}
	select {
	case <-closeCalled:
	case <-time.After(5 * time.Second):
		t.Fatal("close callback not called within timeout")
	}

	if m.Count() != 0 {
		t.Errorf("expected 0 terminals after close, got %d", m.Count())
	}
	if !pub.has("terminal.closed") {
		t.Error("expected terminal.closed event")
	}
	if term.Session().Markers().Count() != 0 {
		t.Error("expected markers disposed on close")
	}

	// Second close is idempotent.
	if err := term.Close(); err != nil {
		t.Errorf("second close should succeed: %v", err)
	}
	if _, err := term.Write([]byte("test")); !errors.Is(err, ErrTerminalClosed) {
		t.Errorf("expected ErrTerminalClosed, got %v", err)
	}
	if err := term.Resize(100, 50); !errors.Is(err, ErrTerminalClosed) {
		t.Errorf("expected ErrTerminalClosed, got %v", err)
	}
}

func TestManagerShutdown(t *testing.T) {
	m := NewManager(ManagerConfig{})
	term := startOrSkip(t, m, Options{Shell: "/bin/sh"})

	m.Shutdown(5 * time.Second)
	waitDone(t, term)

	if _, err := m.Create(Options{Shell: "/bin/sh"}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("expected ErrManagerClosed, got %v", err)
	}
}

func TestTerminalResize(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{Shell: "/bin/sh", Cols: 80, Rows: 24})
	defer term.Close()

	if err := term.Resize(0, 0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if err := term.Resize(120, 40); err != nil {
		t.Fatalf("failed to resize: %v", err)
	}

	screen := term.Screen()
	if screen.Width() != 120 || screen.Height() != 40 {
		t.Errorf("expected 120x40, got %dx%d", screen.Width(), screen.Height())
	}
}

func TestTerminalSetName(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{Name: "original", Shell: "/bin/sh"})
	defer term.Close()

	term.SetName("updated")
	if term.Name() != "updated" {
		t.Errorf("expected name 'updated', got '%s'", term.Name())
	}
}

func TestTerminalWorkingDirectory(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{
		Shell:   "/bin/sh",
		Args:    []string{"-c", `printf '\033]7;/var/tmp\007'`},
		WorkDir: "/tmp",
	})
	defer term.Close()
	waitDone(t, term)

	if cwd := term.WorkingDirectory(); cwd != "/var/tmp" {
		t.Errorf("expected reported cwd /var/tmp, got %q", cwd)
	}
}

func TestOptionsDefaults(t *testing.T) {
	m := NewManager(ManagerConfig{
		DefaultCols:  100,
		DefaultRows:  50,
		Scrollback:   5000,
		DefaultShell: "/bin/sh",
	})
	defer m.Shutdown(5 * time.Second)

	term := startOrSkip(t, m, Options{})
	defer term.Close()

	screen := term.Screen()
	if screen.Width() != 100 || screen.Height() != 50 {
		t.Errorf("expected 100x50, got %dx%d", screen.Width(), screen.Height())
	}
}

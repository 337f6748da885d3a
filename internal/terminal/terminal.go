package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/window"
)

// Terminal is a command running on a PTY whose output feeds a Session.
type Terminal struct {
	id   string
	name string

	pty     PTY
	cmd     *exec.Cmd
	session *Session
	log     pslog.Logger

	mu       sync.RWMutex
	done     chan struct{}
	exitCode atomic.Int32
	closed   atomic.Bool

	onOutput func(data []byte)
	onClose  func()

	cwd     string
	cwdLock sync.RWMutex
}

// Options configures a new terminal.
type Options struct {
	// Name is a human-readable name for the terminal.
	Name string

	// Shell is the executable to run (defaults to $SHELL or /bin/sh).
	Shell string

	// Args are passed to Shell.
	Args []string

	// Login prepends -l to Args.
	Login bool

	// Env are additional environment variables.
	Env []string

	// WorkDir is the working directory of the command.
	WorkDir string

	// Cols is the number of columns (default 80).
	Cols int

	// Rows is the number of rows (default 24).
	Rows int

	// Scrollback is the number of scrollback rows (default 10000).
	Scrollback int

	// MaxMarkers caps live markers on the screen.
	MaxMarkers int

	// MaxLines is the default Tail budget of window reads.
	MaxLines int

	// CleanupThreshold is the marker registry sweep threshold.
	CleanupThreshold int

	Logger pslog.Logger

	// OnOutput is called with each chunk read from the PTY after it was
	// applied to the screen.
	OnOutput func(data []byte)

	// OnTitle is called when the terminal title changes.
	OnTitle func(title string)

	// OnClose is called when the terminal is closed.
	OnClose func()
}

func defaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// Start runs a terminal with the given options.
func Start(opts Options) (*Terminal, error) {
	if opts.Shell == "" {
		opts.Shell = defaultShell()
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Name == "" {
		opts.Name = "terminal"
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}

	path, err := exec.LookPath(opts.Shell)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrShellNotFound, opts.Shell)
	}

	args := opts.Args
	if opts.Login {
		args = append([]string{"-l"}, args...)
	}
	cmd := exec.Command(path, args...)
	cmd.Dir = opts.WorkDir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	pty, err := StartPTY(cmd, uint16(opts.Cols), uint16(opts.Rows))
	if err != nil {
		return nil, fmt.Errorf("start PTY: %w", err)
	}

	id := uuid.New().String()
	log := opts.Logger.With("terminal", id)

	t := &Terminal{
		id:   id,
		name: opts.Name,
		pty:  pty,
		cmd:  cmd,
		session: NewSession(SessionOptions{
			Cols:             opts.Cols,
			Rows:             opts.Rows,
			Scrollback:       opts.Scrollback,
			MaxMarkers:       opts.MaxMarkers,
			MaxLines:         opts.MaxLines,
			CleanupThreshold: opts.CleanupThreshold,
			Logger:           log,
			OnTitle:          opts.OnTitle,
		}),
		log:      log,
		done:     make(chan struct{}),
		onOutput: opts.OnOutput,
		onClose:  opts.OnClose,
		cwd:      opts.WorkDir,
	}
	t.exitCode.Store(-1)

	t.session.parser.SetOSCCallback(func(cmd int, data string) {
		// OSC 7 reports the working directory.
		if cmd == 7 {
			t.cwdLock.Lock()
			t.cwd = data
			t.cwdLock.Unlock()
		}
	})

	log.Info("terminal started", "shell", path, "pid", cmd.Process.Pid, "cols", opts.Cols, "rows", opts.Rows)
	go t.readLoop()
	return t, nil
}

// ID returns the terminal's unique identifier.
func (t *Terminal) ID() string {
	return t.id
}

// Name returns the terminal's display name.
func (t *Terminal) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// SetName updates the terminal's display name.
func (t *Terminal) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

// Write sends input to the command.
func (t *Terminal) Write(data []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrTerminalClosed
	}
	return t.pty.Write(data)
}

// WriteString sends a string to the command.
func (t *Terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// Session returns the session the output feeds.
func (t *Terminal) Session() *Session {
	return t.session
}

// Screen returns the current screen state.
func (t *Terminal) Screen() *Screen {
	return t.session.Screen()
}

// ReadBuffer reads a window of the terminal buffer.
func (t *Terminal) ReadBuffer(mode window.Mode, opts ...window.Option) window.Snapshot {
	return t.session.ReadBuffer(mode, opts...)
}

// Resize changes the terminal size.
func (t *Terminal) Resize(cols, rows int) error {
	if t.closed.Load() {
		return ErrTerminalClosed
	}
	if cols < 1 || rows < 1 {
		return ErrInvalidSize
	}
	if err := t.pty.Resize(uint16(cols), uint16(rows)); err != nil {
		return fmt.Errorf("resize PTY: %w", err)
	}
	return t.session.Resize(cols, rows)
}

// Close kills the command, waits for the read loop and disposes the
// session's markers.
func (t *Terminal) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.pty.Close()
	<-t.done

	t.session.Close()
	t.log.Info("terminal closed", "exit_code", t.ExitCode())

	if t.onClose != nil {
		t.onClose()
	}
	return nil
}

// Done returns a channel that is closed once the command exited and its
// output was consumed.
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

// ExitCode returns the exit code, or -1 while running.
func (t *Terminal) ExitCode() int {
	return int(t.exitCode.Load())
}

// IsRunning reports whether the command is still running.
func (t *Terminal) IsRunning() bool {
	select {
	case <-t.done:
		return false
	default:
		return !t.closed.Load()
	}
}

// WorkingDirectory returns the last directory reported by the shell.
func (t *Terminal) WorkingDirectory() string {
	t.cwdLock.RLock()
	defer t.cwdLock.RUnlock()
	return t.cwd
}

// PID returns the command's process id.
func (t *Terminal) PID() int {
	if t.cmd.Process == nil {
		return -1
	}
	return t.cmd.Process.Pid
}

// readLoop feeds PTY output into the session until the PTY fails. Linux
// reports the exit of the last slave holder as EIO, so any read error ends
// the loop.
func (t *Terminal) readLoop() {
	defer close(t.done)

	buf := make([]byte, 32*1024)
	for {
		n, err := t.pty.Read(buf)
		if n > 0 {
			data := buf[:n]
			if ferr := t.session.Feed(data); ferr != nil {
				break
			}
			if t.onOutput != nil {
				t.onOutput(data)
			}
		}
		if err != nil {
			if !t.closed.Load() {
				t.log.Debug("pty read ended", "err", err)
			}
			break
		}
	}

	err := t.cmd.Wait()
	state := t.cmd.ProcessState
	if state == nil {
		t.log.Debug("wait failed", "err", err)
		return
	}
	t.exitCode.Store(int32(state.ExitCode()))
	t.log.Debug("command exited", "exit_code", state.ExitCode())
}

// EventPublisher publishes terminal events.
type EventPublisher interface {
	Publish(eventType string, data map[string]any)
}

// ManagerConfig configures a terminal manager.
type ManagerConfig struct {
	// DefaultShell is the default command (defaults to $SHELL).
	DefaultShell string

	DefaultCols int
	DefaultRows int

	// Scrollback is the default scrollback size.
	Scrollback int

	// MaxLines is the default Tail budget of window reads.
	MaxLines int

	// CleanupThreshold is the default marker registry sweep threshold.
	CleanupThreshold int

	// EventBus receives terminal.created and terminal.closed events.
	EventBus EventPublisher

	Logger pslog.Logger
}

// Manager tracks running terminals.
type Manager struct {
	mu        sync.RWMutex
	terminals map[string]*Terminal

	cfg ManagerConfig
	log pslog.Logger

	closed atomic.Bool
}

// NewManager creates a terminal manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.DefaultShell == "" {
		cfg.DefaultShell = defaultShell()
	}
	if cfg.DefaultCols <= 0 {
		cfg.DefaultCols = 80
	}
	if cfg.DefaultRows <= 0 {
		cfg.DefaultRows = 24
	}
	if cfg.Scrollback <= 0 {
		cfg.Scrollback = DefaultScrollback
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}

	return &Manager{
		terminals: make(map[string]*Terminal),
		cfg:       cfg,
		log:       cfg.Logger,
	}
}

// Create starts a terminal and tracks it until it is closed.
func (m *Manager) Create(opts Options) (*Terminal, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	if opts.Shell == "" {
		opts.Shell = m.cfg.DefaultShell
	}
	if opts.Cols <= 0 {
		opts.Cols = m.cfg.DefaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = m.cfg.DefaultRows
	}
	if opts.Scrollback <= 0 {
		opts.Scrollback = m.cfg.Scrollback
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = m.cfg.MaxLines
	}
	if opts.CleanupThreshold <= 0 {
		opts.CleanupThreshold = m.cfg.CleanupThreshold
	}
	if opts.Logger == nil {
		opts.Logger = m.log
	}

	userClose := opts.OnClose
	var term *Terminal
	opts.OnClose = func() {
		m.mu.Lock()
		delete(m.terminals, term.id)
		m.mu.Unlock()

		m.publishEvent("terminal.closed", map[string]any{
			"id":       term.id,
			"name":     term.Name(),
			"exitCode": term.ExitCode(),
		})
		if userClose != nil {
			userClose()
		}
	}

	term, err := Start(opts)
	if err != nil {
		m.log.Warn("terminal start failed", "shell", opts.Shell, "err", err)
		return nil, err
	}

	m.mu.Lock()
	m.terminals[term.id] = term
	m.mu.Unlock()

	m.publishEvent("terminal.created", map[string]any{
		"id":   term.id,
		"name": term.Name(),
	})
	return term, nil
}

// Get returns a terminal by id.
func (m *Manager) Get(id string) (*Terminal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	term, ok := m.terminals[id]
	return term, ok
}

// List returns all tracked terminals.
func (m *Manager) List() []*Terminal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Terminal, 0, len(m.terminals))
	for _, term := range m.terminals {
		result = append(result, term)
	}
	return result
}

// Count returns the number of tracked terminals.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terminals)
}

// Close closes a terminal by id.
func (m *Manager) Close(id string) error {
	term, ok := m.Get(id)
	if !ok {
		return ErrTerminalNotFound
	}
	return term.Close()
}

// ReadBuffer reads a window of the terminal with the given id.
func (m *Manager) ReadBuffer(id string, mode window.Mode, opts ...window.Option) (window.Snapshot, error) {
	term, ok := m.Get(id)
	if !ok {
		return window.Snapshot{}, ErrTerminalNotFound
	}
	return term.ReadBuffer(mode, opts...), nil
}

// Shutdown closes every terminal, giving them timeout to finish.
func (m *Manager) Shutdown(timeout time.Duration) {
	if m.closed.Swap(true) {
		return
	}

	terminals := m.List()
	if len(terminals) == 0 {
		return
	}

	done := make(chan struct{})
	go func() {
		for _, term := range terminals {
			_ = term.Close()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		m.log.Warn("terminal shutdown timed out", "terminals", len(terminals), "timeout", timeout)
	}
}

func (m *Manager) publishEvent(eventType string, data map[string]any) {
	m.log.Debug("terminal event", "event", eventType, "terminal", data["id"])
	if m.cfg.EventBus == nil {
		return
	}
	data["timestamp"] = time.Now().UnixMilli()
	m.cfg.EventBus.Publish(eventType, data)
}

package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrTerminalClosed is returned by operations on a closed terminal or session.
	ErrTerminalClosed = errors.New("terminal is closed")

	// ErrTerminalNotFound is returned when a terminal id is unknown.
	ErrTerminalNotFound = errors.New("terminal not found")

	// ErrInvalidSize is returned for a non-positive terminal size.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrPTYNotSupported is returned on platforms without PTY support.
	ErrPTYNotSupported = errors.New("PTY not supported on this platform")

	// ErrShellNotFound is returned when the command executable cannot be found.
	ErrShellNotFound = errors.New("shell not found")

	// ErrManagerClosed is returned by operations on a closed manager.
	ErrManagerClosed = errors.New("terminal manager is closed")
)

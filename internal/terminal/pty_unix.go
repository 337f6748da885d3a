//go:build linux || darwin

package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func startPTY(cmd *exec.Cmd, cols, rows uint16) (PTY, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open ptmx: %w", err)
	}

	slavePath, err := unlockSlave(master)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("unlock pty: %w", err)
	}

	slave, err := os.OpenFile(slavePath, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("open %s: %w", slavePath, err)
	}
	// The child holds its own copy once started.
	defer slave.Close()

	if err := setWinSize(master, cols, rows); err != nil {
		master.Close()
		return nil, fmt.Errorf("set window size: %w", err)
	}

	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true

	if err := cmd.Start(); err != nil {
		master.Close()
		return nil, err
	}
	return &masterPTY{master: master}, nil
}

func setWinSize(f *os.File, cols, rows uint16) error {
	return unix.IoctlSetWinsize(int(f.Fd()), unix.TIOCSWINSZ, &unix.Winsize{
		Row: rows,
		Col: cols,
	})
}

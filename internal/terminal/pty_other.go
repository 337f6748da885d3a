//go:build !linux && !darwin

package terminal

import (
	"os"
	"os/exec"
)

func startPTY(*exec.Cmd, uint16, uint16) (PTY, error) {
	return nil, ErrPTYNotSupported
}

func setWinSize(*os.File, uint16, uint16) error {
	return ErrPTYNotSupported
}

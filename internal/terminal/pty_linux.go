package terminal

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// unlockSlave unlocks the slave side of master and returns its path.
func unlockSlave(master *os.File) (string, error) {
	fd := int(master.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		return "", err
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		return "", err
	}
	return "/dev/pts/" + strconv.Itoa(n), nil
}

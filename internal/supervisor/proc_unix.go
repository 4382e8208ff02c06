//go:build !windows

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setDetached starts the child in its own session so it survives the parent
// and does not receive the parent's terminal signals.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// terminate asks the process to stop.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

//go:build windows

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// wsaeaddrinuse is WSAEADDRINUSE from winsock.
const wsaeaddrinuse = syscall.Errno(10048)

// setDetached starts the child in a new process group so console control
// events sent to the parent do not reach it.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate stops the process. Windows has no SIGTERM equivalent for
// console-less children.
func terminate(p *os.Process) error {
	return p.Kill()
}

func isAddrInUse(err error) bool {
	return errors.Is(err, wsaeaddrinuse) || errors.Is(err, syscall.EADDRINUSE)
}

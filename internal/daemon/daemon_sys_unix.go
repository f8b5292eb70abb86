//go:build linux || darwin

package daemon

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// detach starts the child in its own session so it outlives the invoking terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// processExists reports whether pid is alive. EPERM means it exists under another user.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func terminate(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}

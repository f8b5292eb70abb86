//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

func detach(cmd *exec.Cmd) {}

// processExists relies on FindProcess opening a handle, which fails for a dead pid on Windows.
func processExists(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

// terminate kills the process. Windows has no SIGTERM, so rule runs in flight are lost.
func terminate(proc *os.Process) error {
	return proc.Kill()
}

package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Layout names the daemon's files under <home>/protected, next to the SQLite database.
type Layout struct {
	Dir  string
	PID  string // pid of the serving process
	Lock string // flock held while serving
	Addr string // listen address of the serving process
	Log  string // stderr of a detached daemon
}

// LayoutFor returns the file layout for home.
func LayoutFor(home string) Layout {
	dir := filepath.Join(home, "protected")
	return Layout{
		Dir:  dir,
		PID:  filepath.Join(dir, "daemon.pid"),
		Lock: filepath.Join(dir, "daemon.lock"),
		Addr: filepath.Join(dir, "daemon.addr"),
		Log:  filepath.Join(dir, "daemon.log"),
	}
}

// writeRuntime records pid and addr. The returned func removes both files.
func (l Layout) writeRuntime(pid int, addr string) (func(), error) {
	if err := os.WriteFile(l.PID, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, err
	}
	_ = os.WriteFile(l.Addr, []byte(addr+"\n"), 0o644)
	return func() {
		_ = os.Remove(l.PID)
		_ = os.Remove(l.Addr)
	}, nil
}

// readRuntime returns the recorded pid (0 when absent or unreadable) and addr.
func (l Layout) readRuntime() (int, string) {
	pb, err := os.ReadFile(l.PID)
	if err != nil {
		return 0, ""
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pb)))
	if err != nil || pid <= 0 {
		return 0, ""
	}
	var addr string
	if ab, err := os.ReadFile(l.Addr); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	return pid, addr
}

package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sravan-boop/taskflow/pkg/models"
)

func TestStartForeground_emptyHome(t *testing.T) {
	t.Parallel()
	err := StartForeground(context.Background(), StartOptions{Home: ""})
	if err == nil {
		t.Fatal("StartForeground empty home: expected error")
	}
}

func TestStatus_notRunning(t *testing.T) {
	t.Parallel()
	st, err := Status(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Errorf("Status on empty home: got running pid %d", st.PID)
	}
}

func TestStatus_stalePidFileRemoved(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	layout := LayoutFor(home)
	if err := os.MkdirAll(layout.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Far above any default pid_max.
	if err := os.WriteFile(layout.PID, []byte(strconv.Itoa(1<<30)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Status(context.Background(), home)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatal("stale pid reported as running")
	}
	if _, err := os.Stat(layout.PID); !os.IsNotExist(err) {
		t.Errorf("stale pid file not removed: %v", err)
	}
}

func TestStop_notRunning(t *testing.T) {
	t.Parallel()
	stopped, err := Stop(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped {
		t.Error("Stop on empty home reported stopped")
	}
}

func TestLayout(t *testing.T) {
	t.Parallel()
	home := filepath.Join("x", "home")
	l := LayoutFor(home)
	if l.Dir != filepath.Join(home, "protected") {
		t.Fatalf("Dir = %q", l.Dir)
	}
	for name, got := range map[string]string{"pid": l.PID, "lock": l.Lock, "addr": l.Addr, "log": l.Log} {
		if filepath.Dir(got) != l.Dir {
			t.Errorf("%s path %q not under %q", name, got, l.Dir)
		}
	}
}

func TestLayout_runtimeFiles(t *testing.T) {
	t.Parallel()
	l := LayoutFor(t.TempDir())
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if pid, _ := l.readRuntime(); pid != 0 {
		t.Fatalf("pid before write = %d", pid)
	}
	cleanup, err := l.writeRuntime(4242, "127.0.0.1:9999")
	if err != nil {
		t.Fatal(err)
	}
	if pid, addr := l.readRuntime(); pid != 4242 || addr != "127.0.0.1:9999" {
		t.Fatalf("readRuntime = %d %q", pid, addr)
	}
	cleanup()
	if _, err := os.Stat(l.PID); !os.IsNotExist(err) {
		t.Fatalf("pid file left behind: %v", err)
	}
	if err := os.WriteFile(l.PID, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, _ := l.readRuntime(); pid != 0 {
		t.Fatalf("garbage pid parsed as %d", pid)
	}
}

func TestPprofMux(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(pprofMux())
	defer ts.Close()
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestStartForeground_servesUntilCancelled(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartForeground(ctx, StartOptions{Home: home, Addr: addr, ScanInterval: time.Hour})
	}()

	var health models.Health
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&health)
			_ = resp.Body.Close()
			if err == nil {
				break
			}
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("daemon did not come up: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if health.Status != "ok" {
		t.Errorf("health status = %q", health.Status)
	}

	st, err := Status(ctx, home)
	if err != nil || !st.Running || st.PID != os.Getpid() || st.Addr != addr {
		t.Errorf("Status while serving = %+v, %v", st, err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("StartForeground did not return after cancel")
	}
	if _, err := os.Stat(LayoutFor(home).PID); !os.IsNotExist(err) {
		t.Errorf("pid file left behind: %v", err)
	}
}

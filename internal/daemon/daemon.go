package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/httpapi"
	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/internal/store"
)

var errNotRunning = errors.New("taskflow is not running")

const shutdownTimeout = 15 * time.Second

// StartForeground serves the HTTP API and runs the due-date scanner until ctx is cancelled.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}
	if opts.Addr == "" {
		opts.Addr = config.DefaultAddr
	}
	layout := LayoutFor(opts.Home)
	if err := os.MkdirAll(layout.Dir, 0o755); err != nil {
		return err
	}

	lock, err := acquireLock(layout.Lock)
	if err != nil {
		return err
	}
	defer lock.release()

	startPprof(ctx, opts.PprofAddr)

	// Postgres migrates on connect.
	if opts.DBDriver != "postgres" {
		if err := store.EnsureSchema(opts.Home); err != nil {
			return err
		}
	}

	if err := checkAddrAvailable(opts.Addr); err != nil {
		return err
	}
	cleanup, err := layout.writeRuntime(os.Getpid(), opts.Addr)
	if err != nil {
		return err
	}
	defer cleanup()

	srvOpts := httpapi.ServerOptions{
		Home:          opts.Home,
		Addr:          opts.Addr,
		Dev:           opts.Dev,
		APIKey:        opts.APIKey,
		DBDriver:      opts.DBDriver,
		DBURL:         opts.DBURL,
		SeedDemo:      opts.SeedDemo,
		ScanInterval:  opts.ScanInterval,
		DueSoonWindow: opts.DueSoonWindow,
		Capabilities:  opts.Capabilities,
	}
	if opts.EnableOtel {
		shutdownOtel := initOtel(ctx, &srvOpts)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(sctx)
		}()
	}
	app, err := httpapi.NewApp(srvOpts)
	if err != nil {
		return err
	}
	return serve(ctx, app)
}

// initOtel sets up the meter and tracer providers and points srvOpts at the Prometheus handler.
// Failures are logged and leave the server without /metrics.
func initOtel(ctx context.Context, srvOpts *httpapi.ServerOptions) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	metricsHandler, err := otel.InitMeterProvider(ctx, "taskflow")
	if err != nil {
		slog.Warn("otel meter init failed, metrics disabled", "err", err)
		return noop
	}
	srvOpts.MetricsHandler = metricsHandler
	srvOpts.UseOtelHTTP = true
	if err := otel.InitMetrics(ctx); err != nil {
		slog.Warn("otel instruments init failed", "err", err)
	}
	shutdown, err := otel.InitTracerProvider(ctx, "taskflow", nil)
	if err != nil {
		slog.Warn("otel tracer init failed", "err", err)
		return noop
	}
	return shutdown
}

// serve runs the server and scanner in one errgroup. The first to fail, or ctx, stops both.
func serve(ctx context.Context, app *httpapi.App) error {
	ln, err := net.Listen("tcp", app.Server.Addr)
	if err != nil {
		_ = app.Close()
		return err
	}
	slog.Info("daemon starting", "addr", ln.Addr().String(), "home", app.Home)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := app.Server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		app.Scanner.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Server.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	if cerr := app.Close(); cerr != nil {
		slog.Warn("close store failed", "err", cerr)
	}
	slog.Info("daemon stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

// StartBackground re-executes the current binary as `serve` detached from the terminal.
// Settings not passed as flags are re-read by the child from config and env.
func StartBackground(ctx context.Context, opts StartOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	layout := LayoutFor(opts.Home)
	if err := os.MkdirAll(layout.Dir, 0o755); err != nil {
		return 0, err
	}
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("taskflow already running (pid %d)", st.PID)
	}

	logFile := opts.LogFile
	if logFile == "" {
		logFile = layout.Log
	}
	stderr, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// Kept open for child lifetime; closing here may break writes on some platforms.

	args := []string{"serve", "--home", opts.Home}
	if opts.Addr != "" {
		args = append(args, "--addr", opts.Addr)
	}
	if opts.Dev {
		args = append(args, "--dev")
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}
	if opts.EnableOtel {
		args = append(args, "--otel")
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := Status(ctx, opts.Home); st.Running {
			return st.PID, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cmd.Process.Pid, nil
}

// Stop sends SIGTERM to the running daemon and waits for it to exit, killing it after 15s.
func Stop(ctx context.Context, home string) (bool, error) {
	st, err := Status(ctx, home)
	if err != nil {
		return false, err
	}
	if !st.Running {
		return false, nil
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return false, errNotRunning
	}
	if err := terminate(proc); err != nil {
		return false, err
	}
	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if st2, _ := Status(ctx, home); !st2.Running {
			return true, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = proc.Kill()
	return true, nil
}

// Status reads the pid and addr files. A stale pid file is removed.
func Status(ctx context.Context, home string) (StatusInfo, error) {
	layout := LayoutFor(home)
	pid, addr := layout.readRuntime()
	if pid == 0 {
		return StatusInfo{Running: false}, nil
	}
	if !processExists(pid) {
		_ = os.Remove(layout.PID)
		return StatusInfo{Running: false}, nil
	}
	if addr == "" {
		addr = "unknown"
	}
	return StatusInfo{Running: true, PID: pid, Addr: addr}, nil
}

func checkAddrAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use", addr)
	}
	_ = ln.Close()
	return nil
}

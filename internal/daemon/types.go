package daemon

import (
	"time"

	"github.com/sravan-boop/taskflow/internal/capabilities"
)

// StartOptions configures the daemon process.
type StartOptions struct {
	Home          string
	Addr          string // listen address, e.g. "127.0.0.1:4317"
	Dev           bool   // permissive CORS
	PprofAddr     string // if set, serve net/http/pprof here
	APIKey        string
	DBDriver      string // "sqlite" (default) or "postgres"
	DBURL         string // for postgres: connection string (or TASKFLOW_DATABASE_URL)
	SeedDemo      bool
	EnableOtel    bool // Prometheus /metrics, otelhttp request metrics and trace provider
	ScanInterval  time.Duration
	DueSoonWindow time.Duration
	Capabilities  *capabilities.Registry // failure alert targets; nil means none
	LogFile       string                 // background mode only: where the child's stderr goes
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}

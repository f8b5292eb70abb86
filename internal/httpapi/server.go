package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/capabilities"
	"github.com/sravan-boop/taskflow/internal/scanner"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/internal/store/postgres"
	"github.com/sravan-boop/taskflow/internal/tasks"
	"github.com/sravan-boop/taskflow/internal/ui"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// Version is reported by /health.
var Version = "dev"

// ActorHeader names the user a request acts for.
const ActorHeader = "X-Actor-ID"

// anonymousActor is used when a request carries no ActorHeader.
const anonymousActor = "anonymous"

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets permissive CORS headers for dev mode.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, "+ActorHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server, its store and the due-date scanner.
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string        // if set, require X-API-Key header or query api_key
	DBDriver       string        // "sqlite" (default) or "postgres"
	DBURL          string        // for postgres: connection string (or TASKFLOW_DATABASE_URL)
	Store          store.Store   // if set, used instead of opening one; App.Close closes it
	SeedDemo       bool          // create the "Getting started" project on an empty store
	MetricsHandler http.Handler  // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool          // if true, wrap handler with otelhttp for request metrics
	ScanInterval   time.Duration // due-date scanner poll interval
	DueSoonWindow  time.Duration // due-date scanner look-ahead
	Capabilities   *capabilities.Registry
}

// App holds the HTTP server and the components behind it.
type App struct {
	Server       *http.Server
	Hub          *SSEHub
	Store        store.Store
	Tasks        *tasks.Service
	Scanner      *scanner.DueDateScanner
	Capabilities *capabilities.Registry
	Home         string
}

// NewApp opens the store, wires the task service, rule runner and scanner, and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	st := opts.Store
	if st == nil {
		var err error
		if opts.DBDriver == "postgres" {
			st, err = postgres.Open(opts.DBURL)
		} else {
			st, err = store.Open(opts.Home)
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.SeedDemo {
		if err := st.SeedDemo(context.Background()); err != nil {
			slog.Warn("seed demo project failed", "err", err)
		}
	}

	hub := NewSSEHub()
	reg := opts.Capabilities
	if reg == nil {
		reg = capabilities.NewRegistry()
	}
	runner := automation.NewRunner(st)
	if !reg.Empty() {
		runner.Notifier = reg
	}
	dispatcher := automation.NewDispatcher(runner)
	svc := tasks.New(st)
	svc.Dispatcher = dispatcher
	svc.Publisher = hub

	app := &App{
		Hub:          hub,
		Store:        st,
		Tasks:        svc,
		Capabilities: reg,
		Home:         opts.Home,
		Scanner: &scanner.DueDateScanner{
			Store:      st,
			Dispatcher: dispatcher,
			Interval:   opts.ScanInterval,
			Window:     opts.DueSoonWindow,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.Health{Status: "ok", Version: Version})
	})
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	mux.HandleFunc("GET /stream", hub.Handler())
	mux.Handle("GET /ui/", http.StripPrefix("/ui", ui.Handler()))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})
	app.registerProjectRoutes(mux)
	app.registerTaskRoutes(mux)
	app.registerRuleRoutes(mux)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "taskflow")
	}
	app.Server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return app, nil
}

// Close waits for dispatched rule runs and closes the store. Call it after Server.Shutdown.
func (a *App) Close() error {
	a.Tasks.Wait()
	return a.Store.Close()
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" || path == "/" || strings.HasPrefix(path, "/ui/") {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func actor(r *http.Request) string {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return anonymousActor
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// queryLimit parses ?limit=, falling back to def.
func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// writeError maps store and service errors to a status code.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tasks.ErrInvalid), errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

var errBadRequest = errors.New("bad request")

package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sravan-boop/taskflow/pkg/models"
)

func newTestServer(t *testing.T, opts ServerOptions) (*App, *httptest.Server) {
	t.Helper()
	if opts.Home == "" {
		opts.Home = t.TempDir()
	}
	app, err := NewApp(opts)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = app.Close()
	})
	return app, ts
}

// call sends body as JSON (or raw when it is a string) and decodes the response into out.
func call(t *testing.T, ts *httptest.Server, method, path string, body, out any) int {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "user-7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestServerSmoke(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{Addr: "127.0.0.1:0", SeedDemo: true})

	var health models.Health
	if code := call(t, ts, http.MethodGet, "/health", nil, &health); code != 200 || health.Status != "ok" {
		t.Fatalf("/health = %d %+v", code, health)
	}

	var projects []models.Project
	if code := call(t, ts, http.MethodGet, "/projects", nil, &projects); code != 200 {
		t.Fatalf("GET /projects status=%d", code)
	}
	if len(projects) != 1 || projects[0].Name != "Getting started" {
		t.Fatalf("seeded projects = %+v", projects)
	}

	// SSE should produce initial connected event quickly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	sseResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer func() { _ = sseResp.Body.Close() }()
	sc := bufio.NewScanner(sseResp.Body)
	found := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"type":"connected"`) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("did not see connected event")
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ok\n") })
	_, ts := newTestServer(t, ServerOptions{Addr: ":0", APIKey: "secret", MetricsHandler: metrics})

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s without key: %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/projects")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /projects without key: %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/projects", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /projects with key: %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/projects?api_key=secret")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /projects with api_key query: %d", resp.StatusCode)
	}
}

func TestCORSPreflightInDevMode(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{Dev: true})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/projects", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("OPTIONS status=%d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), ActorHeader) {
		t.Fatalf("allow headers = %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{})
	big := `{"name":"` + strings.Repeat("x", models.DefaultMaxRequestBodyBytes+10) + `"}`
	if code := call(t, ts, http.MethodPost, "/projects", big, nil); code != http.StatusBadRequest {
		t.Fatalf("oversized body status=%d", code)
	}
}

func TestBoardPage(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{APIKey: "secret"})

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := noRedirect.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/ui/" {
		t.Fatalf("GET / = %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	for _, path := range []string{"/ui/", "/ui/projects/abc"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<html") {
			t.Errorf("GET %s without key = %d", path, resp.StatusCode)
		}
	}

	resp, err = http.Get(ts.URL + "/projects")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /projects without key = %d, want 401", resp.StatusCode)
	}
}

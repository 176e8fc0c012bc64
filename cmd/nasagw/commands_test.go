package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/nasagw/internal/config"
)

var ctx = context.Background()

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := out
	out = &buf
	t.Cleanup(func() { out = old })
	return &buf
}

func captureNotices(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := errOut
	errOut = &buf
	t.Cleanup(func() { errOut = old })
	return &buf
}

func disableColor(t *testing.T) {
	t.Helper()
	old := noColor
	noColor = true
	t.Cleanup(func() { noColor = old })
}

func TestStatus_Healthy(t *testing.T) {
	disableColor(t)
	buf := captureOutput(t)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","message":"NASA Framework API is running"}`))
	}))
	defer srv.Close()

	if err := showStatus(ctx, newAPIClient(srv.URL+"/")); err != nil {
		t.Fatalf("showStatus: %v", err)
	}
	if gotPath != "/api/health" {
		t.Errorf("path = %q, want /api/health", gotPath)
	}
	if !strings.Contains(buf.String(), "Server: OK at "+srv.URL) {
		t.Errorf("output = %q", buf.String())
	}
	if !strings.Contains(buf.String(), "NASA Framework API is running") {
		t.Errorf("output missing message: %q", buf.String())
	}
}

func TestStatus_ServerError(t *testing.T) {
	disableColor(t)
	captureOutput(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Route not found"}`))
	}))
	defer srv.Close()

	err := showStatus(ctx, newAPIClient(srv.URL))
	if err == nil || !strings.Contains(err.Error(), "server returned 404") {
		t.Errorf("err = %v, want server returned 404", err)
	}
}

func TestStatus_Unreachable(t *testing.T) {
	disableColor(t)
	buf := captureOutput(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := showStatus(ctx, newAPIClient(url))
	if err == nil || !strings.Contains(err.Error(), "is nasagw running") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(buf.String(), "unreachable") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConfigCommand_MasksSecrets(t *testing.T) {
	disableColor(t)
	buf := captureOutput(t)
	notices := captureNotices(t)
	t.Chdir(t.TempDir())
	t.Setenv("NASA_API_KEY", "nasa-secret-value-9876")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-secret-value-5432")
	t.Setenv("PORT", "")

	rootCmd.SetArgs([]string{"config", "--no-color"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}

	got := buf.String()
	if strings.Contains(got, "nasa-secret-value") || strings.Contains(got, "sk-or-secret-value") {
		t.Errorf("config output leaks a secret:\n%s", got)
	}
	for _, want := range []string{"nasa.api_key = ********9876", "($NASA_API_KEY)", "server.port = 5000", "eonet.base_url = "} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if notices.String() != "✓ configuration is valid\n" {
		t.Errorf("notices = %q", notices.String())
	}
}

func TestConfigCommand_ReportsMissingCredentials(t *testing.T) {
	disableColor(t)
	captureOutput(t)
	notices := captureNotices(t)
	t.Chdir(t.TempDir())
	t.Setenv("NASA_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	rootCmd.SetArgs([]string{"config"})
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Errorf("err = %v, want missing OPENROUTER_API_KEY", err)
	}
	if !strings.HasPrefix(notices.String(), "⚠ configuration is not valid") {
		t.Errorf("notices = %q", notices.String())
	}
}

func TestNotice(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	buf := captureNotices(t)

	noColor = true
	notice(noticeStep, "listening on %s", ":5000")
	if buf.String() != "→ listening on :5000\n" {
		t.Errorf("plain notice = %q", buf.String())
	}

	buf.Reset()
	noColor = false
	notice(noticeFail, "boom")
	if buf.String() != colorRed+"✗ boom"+colorReset+"\n" {
		t.Errorf("colored notice = %q", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	buf := captureOutput(t)

	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "nasagw version dev\n" {
		t.Errorf("output = %q", got)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorRed, "hello"); result != "hello" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorRed, "hello"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("probe", "feature", "APOD")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json handler output not JSON: %q", buf.String())
	}
	if line["msg"] != "probe" || line["feature"] != "APOD" {
		t.Errorf("line = %v", line)
	}

	buf.Reset()
	logger = newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestWriteTimeout(t *testing.T) {
	cfg := config.Config{
		Upstream: config.UpstreamConfig{Timeout: 30 * time.Second},
		Enhance:  config.EnhanceConfig{Timeout: 45 * time.Second},
	}
	if got := writeTimeout(cfg); got != 55*time.Second {
		t.Errorf("writeTimeout = %s, want 55s", got)
	}
}

func testConfig() config.Config {
	return config.Config{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		NASA:      config.NASAConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"},
		Assistant: config.AssistantConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1", Model: "m:free"},
		Upstream:  config.UpstreamConfig{Timeout: time.Second},
		Enhance:   config.EnhanceConfig{Command: []string{"true"}, Timeout: time.Second, MaxConcurrent: 1},
		Metrics:   config.MetricsConfig{Enabled: true},
	}
}

func TestNewHandler(t *testing.T) {
	h := newHandler(testConfig())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Error("metrics missing Go runtime collector")
	}
}

func TestNewHandler_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	h := newHandler(cfg)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want 404", rr.Code)
	}
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server = config.ServerConfig{Host: "127.0.0.1", Port: freePort(t)}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runServer(runCtx, cfg) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + cfg.Server.Addr() + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServer returned %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("runServer did not stop after cancel")
	}
}

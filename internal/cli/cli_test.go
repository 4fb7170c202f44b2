package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	code := run(context.Background(), root, args, &errOut)
	return code, out.String(), errOut.String()
}

func decodeRecord(t *testing.T, out string) record {
	t.Helper()
	var r record
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	return r
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestDo_Success(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1}`)
	})

	code, out, stderr := runCLI(t, "", "do", "GET", srv.URL+"/items/1", "-o", "json")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	r := decodeRecord(t, out)
	if r.Status != 200 || r.Body != `{"id":1}` || r.Kind != "" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.URL != srv.URL+"/items/1" {
		t.Errorf("unexpected url %s", r.URL)
	}
}

func TestDo_TextOutput(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	code, out, _ := runCLI(t, "", "do", "get", srv.URL+"/ping", "--no-color")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"GET " + srv.URL + "/ping", "200 OK", "pong\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestDo_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"missing"}`)
	})

	code, out, stderr := runCLI(t, "", "do", "GET", srv.URL+"/x", "-o", "yaml")
	if code != ExitFailure {
		t.Fatalf("expected exit %d, got %d", ExitFailure, code)
	}
	for _, want := range []string{"kind: server_error", "status: 404", "Description: missing", "severity: bug"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
	if stderr != "" {
		t.Errorf("reported outcomes must not be repeated on stderr, got %q", stderr)
	}
}

func TestDo_PlainTextServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	code, out, _ := runCLI(t, "", "do", "GET", srv.URL, "-o", "json")
	if code != ExitFailure {
		t.Fatalf("expected exit %d, got %d", ExitFailure, code)
	}
	if r := decodeRecord(t, out); !strings.HasSuffix(r.Error, "Description: upstream down") {
		t.Errorf("unexpected error %q", r.Error)
	}
}

func TestDo_Subscribers(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "shared")
	})

	code, out, _ := runCLI(t, "", "do", "GET", srv.URL, "-s", "3", "-o", "json")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var records []record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Subscriber != i+1 || r.Status != 200 || r.Body != "shared" {
			t.Errorf("unexpected record %d: %+v", i, r)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected one exchange, got %d", hits.Load())
	}
}

func TestDo_SchemaViolation(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1}`)
	})
	schema := filepath.Join(t.TempDir(), "item.json")
	if err := os.WriteFile(schema, []byte(`{"type":"object","required":["name"]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "", "do", "GET", srv.URL, "--schema", schema, "-o", "json")
	if code != ExitResponseError {
		t.Fatalf("expected exit %d, got %d", ExitResponseError, code)
	}
	if r := decodeRecord(t, out); r.Kind != "parse_failure" || r.Severity != "abort" {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestDo_JSONBodyFromStdin(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})

	code, out, _ := runCLI(t, `{"a": 1}`, "do", "POST", srv.URL, "--json", "-d", "-", "-o", "json")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if r := decodeRecord(t, out); r.Body != `{"a":1}` {
		t.Errorf("unexpected echoed body %q", r.Body)
	}
}

func TestDo_BodyFromFile(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
	path := filepath.Join(t.TempDir(), "body.txt")
	if err := os.WriteFile(path, []byte("from file"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, out, _ := runCLI(t, "", "do", "PUT", srv.URL, "-d", "@"+path, "-o", "json")
	if r := decodeRecord(t, out); r.Body != "from file" {
		t.Errorf("unexpected echoed body %q", r.Body)
	}
}

func TestDo_FlagsReachTheServer(t *testing.T) {
	var seen atomic.Value
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.Path + "?" + r.URL.RawQuery + " " + r.Header.Get("X-Test"))
	})

	code, _, stderr := runCLI(t, "", "do", "GET", "/items",
		"--base-url", srv.URL+"/api",
		"-q", "page=2",
		"-H", "X-Test: yes",
		"--retries", "2",
	)
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if got, _ := seen.Load().(string); got != "/api/items?page=2 yes" {
		t.Errorf("unexpected request %q", got)
	}
}

func TestDo_BaseURLFromEnv(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	})
	t.Setenv("HDCLI_TRANSPORT_BASE_URL", srv.URL)

	code, out, stderr := runCLI(t, "", "do", "GET", "/from-env", "--env-prefix", "HDCLI", "-o", "json")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr)
	}
	if r := decodeRecord(t, out); r.Body != "/from-env" {
		t.Errorf("unexpected body %q", r.Body)
	}
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	code, out, _ := runCLI(t, "", "do", "GET", url, "-o", "json")
	if code != ExitNetworkError {
		t.Fatalf("expected exit %d, got %d", ExitNetworkError, code)
	}
	if r := decodeRecord(t, out); r.Kind != "transport_failure" || r.Status != 0 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing url", []string{"do", "GET"}},
		{"bad header", []string{"do", "GET", "/x", "-H", "no-colon"}},
		{"bad query", []string{"do", "GET", "/x", "-q", "novalue"}},
		{"unknown output", []string{"do", "GET", "/x", "-o", "xml"}},
		{"no subscribers", []string{"do", "GET", "/x", "-s", "0"}},
		{"zero requests", []string{"bench", "GET", "/x", "-n", "0"}},
		{"unknown flag", []string{"do", "GET", "/x", "--bogus"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tc.args...)
			if code != ExitUsageError {
				t.Errorf("expected exit %d, got %d", ExitUsageError, code)
			}
			if !strings.HasPrefix(stderr, "error:") {
				t.Errorf("expected error on stderr, got %q", stderr)
			}
		})
	}
}

func TestConfigErrors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(bad, []byte("transport: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown http2 mode", []string{"do", "GET", "http://127.0.0.1/x", "--http2", "h3"}},
		{"invalid config file", []string{"do", "GET", "http://127.0.0.1/x", "--config", bad}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, "", tc.args...); code != ExitConfigError {
				t.Errorf("expected exit %d, got %d", ExitConfigError, code)
			}
		})
	}
}

func TestBench(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	code, out, _ := runCLI(t, "", "bench", "GET", srv.URL, "-n", "20", "-c", "4", "-o", "json")
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var report benchReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if report.Requests != 20 || report.Succeeded != 20 || report.Failed != 0 || report.Outcomes[outcomeOK] != 20 {
		t.Errorf("unexpected report %+v", report)
	}
	if hits.Load() != 20 {
		t.Errorf("expected 20 exchanges, got %d", hits.Load())
	}
	if report.MaxMS <= 0 || report.P50MS > report.MaxMS {
		t.Errorf("unexpected latencies %+v", report)
	}
}

func TestBench_Failures(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	code, out, _ := runCLI(t, "", "bench", "GET", srv.URL, "-n", "5", "-c", "2", "--no-color")
	if code != ExitFailure {
		t.Fatalf("expected exit %d, got %d", ExitFailure, code)
	}
	for _, want := range []string{"requests: 5", "failed: 5", "server_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != ExitSuccess || !strings.HasPrefix(out, "httpdispatch ") {
		t.Errorf("unexpected version output %q (exit %d)", out, code)
	}

	_, out, _ = runCLI(t, "", "version", "-o", "json")
	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil || info.Version == "" {
		t.Errorf("unexpected JSON version output %q: %v", out, err)
	}
}

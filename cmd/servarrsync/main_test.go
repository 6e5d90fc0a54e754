package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestURLFromBind(t *testing.T) {
	cases := []struct {
		bind string
		want string
	}{
		{"0.0.0.0:5000", "http://127.0.0.1:5000"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"[::]:5000", "http://127.0.0.1:5000"},
		{"nonsense", defaultServerURL},
	}
	for _, tc := range cases {
		if got := urlFromBind(tc.bind); got != tc.want {
			t.Errorf("urlFromBind(%q) = %q, want %q", tc.bind, got, tc.want)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestStatusCommandRendersHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"running": true,
			"workerAlive": true,
			"queueDepth": 2,
			"inFlight": 3,
			"recentHistory": [
				{"timestamp":"2026-08-30T10:00:00Z","label":"radarr","path":"/y/Movies/Heat (1995)/","status":"ok","duration":21000000000}
			]
		}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, "status", "--server", ts.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running")
	requireContains(t, out, "2 queued, 3 in flight")
	requireContains(t, out, "Heat (1995)")
}

func TestSyncCommandPostsManualTrigger(t *testing.T) {
	var gotUser, gotPass, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPath = body.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"queued","path":"/y/Movies/Heat (1995)/"}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, "sync", "/x/Movies/Heat (1995)", "--server", ts.URL, "--user", "admin", "--pass", "secret")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "Queued /y/Movies/Heat (1995)/")
	if gotUser != "admin" || gotPass != "secret" {
		t.Fatalf("credentials = %q/%q", gotUser, gotPass)
	}
	if gotPath != "/x/Movies/Heat (1995)" {
		t.Fatalf("posted path = %q", gotPath)
	}
}

package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
)

func TestConsoleHandlerIncludesComponentPrefixAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	scoped := logging.NewComponentLogger(logger, "worker")
	scoped.Info("task queued", logging.String(logging.FieldPath, "/mnt/tv/Show"), logging.Int("depth", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO worker: task queued") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "path=/mnt/tv/Show") {
		t.Fatalf("expected path field in line: %q", line)
	}
	if !strings.Contains(line, "depth=2") {
		t.Fatalf("expected depth field in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("mapping applied", logging.String(logging.FieldPath, "/mnt/tv/Show Name (2020)"))
	if !strings.Contains(buf.String(), `path="/mnt/tv/Show Name (2020)"`) {
		t.Fatalf("expected quoted path, got %q", buf.String())
	}
}

func TestJSONHandlerUsesShortKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hello", logging.Bool("ok", true))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode JSON log line: %v", err)
	}
	if decoded["msg"] != "hello" {
		t.Fatalf("expected msg key, got %v", decoded)
	}
	if decoded["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", decoded["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn level, got %q", buf.String())
	}
	logger.Error("loud", logging.Error(nil))
	if !strings.Contains(buf.String(), "ERROR loud") {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}

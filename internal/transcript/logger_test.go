package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, dir string) Logger {
	t.Helper()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return logger
}

// waitForLines polls until the session's transcript file holds want lines.
func waitForLines(t *testing.T, path string, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) >= want && lines[0] != "" {
				return lines
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d lines in %s", want, path)
	return nil
}

func TestLoggerWritesNDJSONPerSession(t *testing.T) {
	dir := t.TempDir()
	logger := newTestLogger(t, dir)

	logger.Log(Event{SessionKey: "s1", Role: "user", Content: "hello"})
	logger.Log(Event{SessionKey: "s1", Role: "assistant", Content: "hi back"})
	logger.Log(Event{SessionKey: "s2", Role: "user", Content: "other session"})

	lines := waitForLines(t, filepath.Join(dir, "s1.ndjson"), 2)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines for s1, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Line is not valid JSON: %v", err)
	}
	if first.Role != "user" || first.Content != "hello" {
		t.Errorf("Wrong first event: %+v", first)
	}
	if first.Timestamp == "" {
		t.Error("Expected timestamp stamped on enqueue")
	}
	if _, err := time.Parse(time.RFC3339Nano, first.Timestamp); err != nil {
		t.Errorf("Timestamp not RFC3339Nano: %q", first.Timestamp)
	}

	otherLines := waitForLines(t, filepath.Join(dir, "s2.ndjson"), 1)
	if len(otherLines) != 1 {
		t.Errorf("Expected 1 line for s2, got %d", len(otherLines))
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	dir := t.TempDir()
	logger := newTestLogger(t, dir)

	for i := 0; i < 10; i++ {
		logger.Log(Event{SessionKey: "s1", Role: "user", Content: "queued"})
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "s1.ndjson"))
	if err != nil {
		t.Fatalf("Transcript file missing after Close: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 10 {
		t.Errorf("Expected all 10 queued events flushed, got %d", len(lines))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger := newTestLogger(t, t.TempDir())
	if err := logger.Close(); err != nil {
		t.Fatalf("First Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Enabled: false, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := logger.(NopLogger); !ok {
		t.Fatalf("Expected NopLogger when disabled, got %T", logger)
	}

	logger.Log(Event{SessionKey: "s1", Role: "user", Content: "dropped"})
	logger.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Disabled logger created files: %v", entries)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"abc-123_X.y", "abc-123_X.y"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"has space", "has_space"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := sanitizeKey(tt.key); got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

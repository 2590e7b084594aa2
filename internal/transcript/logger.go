// Package transcript provides asynchronous NDJSON logging of chat turns.
// Logging is strictly off-path: a full queue drops the event and a write
// failure is logged, never surfaced to the turn that produced it.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event is one logged transcript entry.
type Event struct {
	Timestamp  string         `json:"ts"`
	SessionKey string         `json:"session_key"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Logger records transcript events.
type Logger interface {
	// Log enqueues an event. It never blocks the caller.
	Log(event Event)
	// Close drains the queue and releases resources.
	Close() error
}

// NopLogger discards all events.
type NopLogger struct{}

// Log implements Logger.
func (NopLogger) Log(Event) {}

// Close implements Logger.
func (NopLogger) Close() error { return nil }

// fileLogger appends NDJSON lines to one file per session key.
type fileLogger struct {
	dir    string
	queue  chan Event
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// New creates a transcript logger. When disabled it returns a NopLogger.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return NopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript log directory: %w", err)
	}

	fl := &fileLogger{
		dir:    cfg.Dir,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go fl.run()
	return fl, nil
}

// Log enqueues the event, stamping the time when absent. Events are dropped
// when the queue is full.
func (l *fileLogger) Log(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("transcript queue full, dropping event",
			"session_key", event.SessionKey,
			"role", event.Role)
	}
}

// Close stops the worker after the queue drains.
func (l *fileLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *fileLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		l.write(event)
	}
}

func (l *fileLogger) write(event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("failed to marshal transcript event", "error", err)
		return
	}

	path := filepath.Join(l.dir, sanitizeKey(event.SessionKey)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.logger.Warn("failed to open transcript file", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Debug("failed to close transcript file", "path", path, "error", closeErr)
		}
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("failed to append transcript event", "path", path, "error", err)
	}
}

// sanitizeKey maps a session key onto a safe file name. Keys are opaque
// client-supplied strings, so anything outside a conservative set is
// replaced.
func sanitizeKey(key string) string {
	if key == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Memory records are stored
// as one JSON document per session key.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // serializes session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_key TEXT PRIMARY KEY,
		memory_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadMemory retrieves the memory record for a session key. A missing row
// yields the all-empty default record.
func (s *SQLiteStore) LoadMemory(ctx context.Context, sessionKey string) (*domain.Memory, error) {
	query := `SELECT memory_json FROM sessions WHERE session_key = ?`

	var memoryJSON string
	err := s.db.QueryRowContext(ctx, query, sessionKey).Scan(&memoryJSON)
	if err == sql.ErrNoRows {
		return domain.NewMemory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var mem domain.Memory
	if err := json.Unmarshal([]byte(memoryJSON), &mem); err != nil {
		return nil, fmt.Errorf("decode memory for session %s: %w", sessionKey, err)
	}
	mem.Normalize()
	return &mem, nil
}

// SaveMemory persists the full memory record for a session key.
func (s *SQLiteStore) SaveMemory(ctx context.Context, sessionKey string, mem *domain.Memory) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	memoryJSON, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO sessions (session_key, memory_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET
			memory_json = excluded.memory_json,
			updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, sessionKey, string(memoryJSON), now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// CleanupIdleSessions deletes sessions not written to within the retention
// period.
func (s *SQLiteStore) CleanupIdleSessions(ctx context.Context, retention time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-retention).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup idle sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/domain"
)

// Repository defines the interface for persisting per-session memory.
// Callers guarantee at most one writer per session key at a time; the store
// does not provide transactional multi-key semantics.
type Repository interface {
	// LoadMemory retrieves the memory record for a session key. When no
	// record exists it returns the all-empty default, not an error.
	LoadMemory(ctx context.Context, sessionKey string) (*domain.Memory, error)

	// SaveMemory persists the full memory record for a session key,
	// creating the row on first save.
	SaveMemory(ctx context.Context, sessionKey string, mem *domain.Memory) error

	// CleanupIdleSessions deletes sessions not written to within the
	// retention period and returns how many were removed.
	CleanupIdleSessions(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

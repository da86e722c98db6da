// Package checkpoint records per-file snapshots taken before risky operations,
// so callers can roll a file back to any earlier state. The orchestration
// layer calls CreateCheckpoint before mutations performed outside an active
// sandbox; this package only stores and retrieves the history.
package checkpoint

import (
	"context"
	"time"
)

// Checkpoint is one stored snapshot of a file.
type Checkpoint struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"file_path"`
	Content      string    `json:"content"`
	Description  string    `json:"description"`
	TriggerEvent string    `json:"trigger_event"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the checkpoint collaborator contract. Implementations never
// overwrite history; every CreateCheckpoint call appends a new snapshot.
type Store interface {
	// CreateCheckpoint stores a snapshot and returns its id.
	CreateCheckpoint(ctx context.Context, filePath, content, description, triggerEvent string) (string, error)
	// Get returns a checkpoint by id.
	Get(ctx context.Context, id string) (*Checkpoint, error)
	// ListForFile returns all checkpoints for a file, newest first.
	ListForFile(ctx context.Context, filePath string) ([]*Checkpoint, error)
	// Prune deletes checkpoints older than the retention period and returns
	// how many were removed.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
	// Close releases the underlying storage.
	Close() error
}

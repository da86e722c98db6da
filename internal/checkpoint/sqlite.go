package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/floyd-ai/floyd/internal/logger"
)

// ErrNotFound is returned when no checkpoint exists for an id.
var ErrNotFound = errors.New("checkpoint not found")

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	content TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	trigger_event TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_file_path ON checkpoints(file_path, created_at DESC);
`

// SQLiteStore is the default Store implementation, backed by a local SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the checkpoint database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CreateCheckpoint stores a snapshot and returns its id.
func (s *SQLiteStore) CreateCheckpoint(ctx context.Context, filePath, content, description, triggerEvent string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, file_path, content, description, trigger_event, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, filePath, content, description, triggerEvent, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to store checkpoint for %s: %w", filePath, err)
	}

	logger.Debug("checkpoint %s created for %s (%s)", id, filePath, triggerEvent)
	return id, nil
}

// Get returns a checkpoint by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, content, description, trigger_event, created_at
		 FROM checkpoints WHERE id = ?`, id)

	cp := &Checkpoint{}
	err := row.Scan(&cp.ID, &cp.FilePath, &cp.Content, &cp.Description, &cp.TriggerEvent, &cp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// ListForFile returns all checkpoints for a file, newest first.
func (s *SQLiteStore) ListForFile(ctx context.Context, filePath string) ([]*Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_path, content, description, trigger_event, created_at
		 FROM checkpoints WHERE file_path = ? ORDER BY created_at DESC`, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for %s: %w", filePath, err)
	}
	defer rows.Close()

	var checkpoints []*Checkpoint
	for rows.Next() {
		cp := &Checkpoint{}
		if err := rows.Scan(&cp.ID, &cp.FilePath, &cp.Content, &cp.Description, &cp.TriggerEvent, &cp.CreatedAt); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// Prune deletes checkpoints older than the retention period.
func (s *SQLiteStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Info("pruned %d checkpoints older than %s", removed, retention)
	}
	return removed, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

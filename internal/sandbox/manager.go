// Package sandbox gives fully autonomous execution a consequence-free
// playground: a real copy of the project tree where tools write freely, with
// an explicit, reviewable commit step before anything touches the real tree.
// A single directory-backed session is supported at a time; a dry-run variant
// does the same bookkeeping purely in memory.
package sandbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/floyd-ai/floyd/internal/logger"
)

// Named errors for caller bugs; these indicate misuse, not recoverable runtime
// conditions.
var (
	// ErrSessionActive is returned by Start while another session is active.
	ErrSessionActive = errors.New("a sandbox session is already active")
	// ErrNoActiveSession is returned by operations that require an active
	// session when there is none.
	ErrNoActiveSession = errors.New("no active sandbox session")
)

// Options configure sandbox sessions.
type Options struct {
	// ExcludePatterns replaces DefaultExcludes when non-empty.
	ExcludePatterns []string
	// AutoCleanup removes the sandbox directory and clears the session
	// reference after commit or discard.
	AutoCleanup bool
	// TempDir is where sandbox clones are created. Empty means os.TempDir.
	TempDir string
}

// Manager owns at most one sandbox session and the bookkeeping around it.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	session *Session
}

// NewManager creates a sandbox manager. No session exists until Start.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Start clones projectRoot into a fresh temp directory and begins a session.
// It fails with ErrSessionActive if a session is already active.
func (m *Manager) Start(projectRoot string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.State == SessionActive {
		return nil, ErrSessionActive
	}

	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	patterns := m.opts.ExcludePatterns
	if len(patterns) == 0 {
		patterns = DefaultExcludes
	}
	excludes, err := newExcludeMatcher(patterns)
	if err != nil {
		return nil, err
	}

	id := newSessionID()
	tempDir := m.opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	sandboxRoot := filepath.Join(tempDir, "floyd-"+id)

	logger.Info("starting sandbox session %s: cloning %s -> %s", id, absRoot, sandboxRoot)
	if err := copyTree(absRoot, sandboxRoot, excludes); err != nil {
		os.RemoveAll(sandboxRoot)
		return nil, fmt.Errorf("failed to clone project tree: %w", err)
	}

	now := time.Now()
	m.session = &Session{
		ID:          id,
		Type:        TypeDirectory,
		ProjectRoot: absRoot,
		SandboxRoot: sandboxRoot,
		State:       SessionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return m.snapshotLocked(), nil
}

// ActiveSession returns a copy of the current session, or nil when none
// exists.
func (m *Manager) ActiveSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return m.snapshotLocked()
}

// IsActive reports whether a session is currently active.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.State == SessionActive
}

func (m *Manager) snapshotLocked() *Session {
	snapshot := *m.session
	snapshot.Changes = make([]FileChange, len(m.session.Changes))
	copy(snapshot.Changes, m.session.Changes)
	return &snapshot
}

// TranslatePath maps a real project path to its sandbox equivalent. Paths
// outside the project tree pass through untouched rather than being forced
// inside the sandbox. With no active session the path is returned unchanged.
func (m *Manager) TranslatePath(realPath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.State != SessionActive {
		return realPath
	}
	return rebase(realPath, m.session.ProjectRoot, m.session.SandboxRoot)
}

// TranslateToReal is the exact inverse of TranslatePath for paths inside the
// sandbox tree, with the same passthrough rule for everything else.
func (m *Manager) TranslateToReal(sandboxPath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.State != SessionActive {
		return sandboxPath
	}
	return rebase(sandboxPath, m.session.SandboxRoot, m.session.ProjectRoot)
}

// rebase re-anchors path from one root to another. Paths that escape the root
// (relative path starting with .. ) are returned unchanged.
func rebase(path, fromRoot, toRoot string) string {
	rel, err := filepath.Rel(fromRoot, path)
	if err != nil {
		return path
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return path
	}
	if rel == "." {
		return toRoot
	}
	return filepath.Join(toRoot, rel)
}

// TrackChange records a file mutation inside the sandbox. A later change to
// the same sandbox path overwrites the earlier record (last-write-wins). With
// no active session this is a no-op.
func (m *Manager) TrackChange(sandboxPath string, changeType ChangeType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.State != SessionActive {
		return
	}

	originalPath := rebase(sandboxPath, m.session.SandboxRoot, m.session.ProjectRoot)
	now := time.Now()

	for i := range m.session.Changes {
		if m.session.Changes[i].SandboxPath == sandboxPath {
			m.session.Changes[i].ChangeType = changeType
			m.session.Changes[i].Timestamp = now
			m.session.UpdatedAt = now
			return
		}
	}

	m.session.Changes = append(m.session.Changes, FileChange{
		OriginalPath: originalPath,
		SandboxPath:  sandboxPath,
		ChangeType:   changeType,
		Timestamp:    now,
	})
	m.session.UpdatedAt = now
	logger.Debug("sandbox tracked %s: %s", changeType, originalPath)
}

// Commit replays tracked changes onto the real project tree in recorded order.
// Each change succeeds or fails independently; one failure never stops the
// rest. The session transitions to committed and, with auto-cleanup enabled,
// the sandbox directory is removed and the session reference cleared.
func (m *Manager) Commit() (*CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.State != SessionActive {
		return nil, ErrNoActiveSession
	}

	result := &CommitResult{
		Committed: []string{},
		Failed:    []string{},
	}

	for _, change := range m.session.Changes {
		if err := m.applyChange(change, result); err != nil {
			logger.Warn("commit failed for %s: %v", change.OriginalPath, err)
			result.Failed = append(result.Failed, change.OriginalPath)
		}
	}
	result.Success = len(result.Failed) == 0

	m.session.State = SessionCommitted
	m.session.UpdatedAt = time.Now()
	logger.Info("sandbox session %s committed: %d applied, %d failed, %d skipped",
		m.session.ID, len(result.Committed), len(result.Failed), len(result.Skipped))

	m.cleanupLocked()
	return result, nil
}

// applyChange replays one tracked change. It appends to result.Committed or
// result.Skipped on success and returns an error for the caller to record as
// failed.
func (m *Manager) applyChange(change FileChange, result *CommitResult) error {
	switch change.ChangeType {
	case ChangeCreated, ChangeModified:
		if same, err := contentIdentical(change.SandboxPath, change.OriginalPath); err == nil && same {
			result.Skipped = append(result.Skipped, change.OriginalPath)
			return nil
		}
		if err := copyFile(change.SandboxPath, change.OriginalPath); err != nil {
			return err
		}
		result.Committed = append(result.Committed, change.OriginalPath)
		return nil
	case ChangeDeleted:
		// Removing an already-absent file is not an error.
		if err := os.Remove(change.OriginalPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		result.Committed = append(result.Committed, change.OriginalPath)
		return nil
	default:
		return fmt.Errorf("unknown change type %q", change.ChangeType)
	}
}

// contentIdentical compares two files by xxhash digest. Any read error is
// reported so the caller falls back to copying.
func contentIdentical(a, b string) (bool, error) {
	da, err := digestFile(a)
	if err != nil {
		return false, err
	}
	db, err := digestFile(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

func digestFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Discard abandons the session without replaying any change and performs the
// same cleanup as Commit.
func (m *Manager) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.State != SessionActive {
		return ErrNoActiveSession
	}

	m.session.State = SessionDiscarded
	m.session.UpdatedAt = time.Now()
	logger.Info("sandbox session %s discarded (%d changes dropped)", m.session.ID, len(m.session.Changes))

	m.cleanupLocked()
	return nil
}

// cleanupLocked removes the sandbox directory and drops the session reference
// when auto-cleanup is enabled.
func (m *Manager) cleanupLocked() {
	if !m.opts.AutoCleanup {
		return
	}
	if err := os.RemoveAll(m.session.SandboxRoot); err != nil {
		logger.Warn("failed to remove sandbox directory %s: %v", m.session.SandboxRoot, err)
	}
	m.session = nil
}

// FileContents holds both sides of a file diff. A nil side means the file does
// not exist there, which covers created and deleted files cleanly.
type FileContents struct {
	Original *string `json:"original"`
	Modified *string `json:"modified"`
}

// GetFileDiff reads the real and sandbox copies of a file independently.
func (m *Manager) GetFileDiff(sandboxPath string) (*FileContents, error) {
	m.mu.Lock()
	if m.session == nil || m.session.State != SessionActive {
		m.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	originalPath := rebase(sandboxPath, m.session.SandboxRoot, m.session.ProjectRoot)
	m.mu.Unlock()

	contents := &FileContents{}
	if data, err := os.ReadFile(originalPath); err == nil {
		s := string(data)
		contents.Original = &s
	}
	if data, err := os.ReadFile(sandboxPath); err == nil {
		s := string(data)
		contents.Modified = &s
	}
	return contents, nil
}

package sandbox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Type identifies the isolation backend of a session.
type Type string

const (
	// TypeDirectory is a disk-backed clone of the project tree.
	TypeDirectory Type = "directory"
	// TypeDocker is reserved for a container-backed backend. No such backend
	// ships yet; the value exists so session records stay forward compatible.
	TypeDocker Type = "docker"
	// TypeDryRun is the in-memory, preview-only variant.
	TypeDryRun Type = "dryrun"
)

// SessionState tracks the lifecycle of a sandbox session.
type SessionState string

const (
	SessionInactive  SessionState = "inactive"
	SessionActive    SessionState = "active"
	SessionCommitted SessionState = "committed"
	SessionDiscarded SessionState = "discarded"
)

// ChangeType classifies a tracked file mutation.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// FileChange records one file mutation inside the sandbox. Changes are keyed
// by sandbox path; a later change to the same path overwrites the earlier
// record's type and timestamp rather than appending a duplicate.
type FileChange struct {
	OriginalPath string     `json:"original_path"`
	SandboxPath  string     `json:"sandbox_path"`
	ChangeType   ChangeType `json:"change_type"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Session is one isolated copy of the project tree, active until committed or
// discarded.
type Session struct {
	ID          string       `json:"id"`
	Type        Type         `json:"type"`
	ProjectRoot string       `json:"project_root"`
	SandboxRoot string       `json:"sandbox_root"`
	State       SessionState `json:"state"`
	Changes     []FileChange `json:"changes"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CommitResult reports what actually landed on disk after a commit. Success is
// true exactly when no change failed. Skipped lists files whose sandbox
// content was byte-identical to the real tree and needed no copy.
type CommitResult struct {
	Committed []string `json:"committed"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped,omitempty"`
	Success   bool     `json:"success"`
}

// newSessionID generates a unique, time-ordered session identifier.
func newSessionID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// Timestamp alone still gives uniqueness in practice.
		return fmt.Sprintf("sandbox-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("sandbox-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

package sandbox

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/floyd-ai/floyd/internal/consts"
)

// DryRunSandbox simulates file mutations entirely in memory for "show me what
// would happen" previews. It never touches disk; reads of untracked paths
// report nothing so callers fall back to the real filesystem themselves.
type DryRunSandbox struct {
	mu          sync.Mutex
	projectRoot string
	active      bool
	files       map[string]*dryRunEntry
	order       []string
}

type dryRunEntry struct {
	content    string
	changeType ChangeType
	timestamp  time.Time
}

// DryRunChange is one entry in the preview list.
type DryRunChange struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"change_type"`
	Preview    string     `json:"preview"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewDryRunSandbox creates an inactive dry-run sandbox.
func NewDryRunSandbox() *DryRunSandbox {
	return &DryRunSandbox{
		files: make(map[string]*dryRunEntry),
	}
}

// Start records the project root and clears any previously tracked state.
func (d *DryRunSandbox) Start(projectRoot string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projectRoot = projectRoot
	d.active = true
	d.files = make(map[string]*dryRunEntry)
	d.order = nil
}

// IsActive reports whether the dry run has been started and not ended.
func (d *DryRunSandbox) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// relKey normalizes a path to the tracking key used internally.
func (d *DryRunSandbox) relKey(path string) string {
	if d.projectRoot == "" {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(d.projectRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Clean(path)
	}
	return rel
}

// WriteFile records a write. The first write to a path is created, every write
// after that is modified.
func (d *DryRunSandbox) WriteFile(path, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}

	key := d.relKey(path)
	if entry, ok := d.files[key]; ok {
		entry.content = content
		entry.changeType = ChangeModified
		entry.timestamp = time.Now()
		return
	}
	d.files[key] = &dryRunEntry{
		content:    content,
		changeType: ChangeCreated,
		timestamp:  time.Now(),
	}
	d.order = append(d.order, key)
}

// DeleteFile records a deletion with empty content.
func (d *DryRunSandbox) DeleteFile(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}

	key := d.relKey(path)
	if entry, ok := d.files[key]; ok {
		entry.content = ""
		entry.changeType = ChangeDeleted
		entry.timestamp = time.Now()
		return
	}
	d.files[key] = &dryRunEntry{
		changeType: ChangeDeleted,
		timestamp:  time.Now(),
	}
	d.order = append(d.order, key)
}

// ReadFile returns the tracked content for a path. ok is false both for paths
// marked deleted and for untracked paths; callers needing the pre-existing
// content of an untracked path must read the real file themselves.
func (d *DryRunSandbox) ReadFile(path string) (content string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, tracked := d.files[d.relKey(path)]
	if !tracked || entry.changeType == ChangeDeleted {
		return "", false
	}
	return entry.content, true
}

// GetChanges returns a preview of all tracked changes in first-touch order,
// with content truncated for display.
func (d *DryRunSandbox) GetChanges() []DryRunChange {
	d.mu.Lock()
	defer d.mu.Unlock()

	changes := make([]DryRunChange, 0, len(d.order))
	for _, key := range d.order {
		entry := d.files[key]
		preview := entry.content
		if len(preview) > consts.MaxDryRunPreviewLength {
			preview = preview[:consts.MaxDryRunPreviewLength] + "..."
		}
		changes = append(changes, DryRunChange{
			Path:       key,
			ChangeType: entry.changeType,
			Preview:    preview,
			Timestamp:  entry.timestamp,
		})
	}
	return changes
}

// End clears all state.
func (d *DryRunSandbox) End() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projectRoot = ""
	d.active = false
	d.files = make(map[string]*dryRunEntry)
	d.order = nil
}

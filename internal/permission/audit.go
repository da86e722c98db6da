package permission

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
)

// Decision is the recorded outcome of a permission request.
type Decision string

const (
	// DecisionGranted means execution was allowed to proceed.
	DecisionGranted Decision = "GRANTED"
	// DecisionDenied means execution was refused.
	DecisionDenied Decision = "DENIED"
)

// AuditEntry records one permission decision. Entries are append-only for the
// process lifetime.
type AuditEntry struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"tool_name"`
	Level     Level     `json:"permission_level"`
	Target    string    `json:"target"`
	Decision  Decision  `json:"decision"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditStats summarizes the audit trail.
type AuditStats struct {
	Total   int           `json:"total"`
	Granted int           `json:"granted"`
	Denied  int           `json:"denied"`
	ByLevel map[Level]int `json:"by_level"`
}

func newAuditEntry(toolName string, level Level, target string, decision Decision) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		ToolName:  toolName,
		Level:     level,
		Target:    target,
		Decision:  decision,
		Timestamp: time.Now(),
	}
}

// GetAuditHistory returns a copy of all recorded audit entries in order.
func (g *Gate) GetAuditHistory() []AuditEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := make([]AuditEntry, len(g.audit))
	copy(history, g.audit)
	return history
}

// GetAuditStats returns aggregate counts over the audit trail.
func (g *Gate) GetAuditStats() AuditStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := AuditStats{
		ByLevel: make(map[Level]int),
	}
	for _, entry := range g.audit {
		stats.Total++
		if entry.Decision == DecisionGranted {
			stats.Granted++
		} else {
			stats.Denied++
		}
		stats.ByLevel[entry.Level]++
	}
	return stats
}

// ClearAuditHistory discards all recorded entries.
func (g *Gate) ClearAuditHistory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audit = nil
}

// ExportAudit writes the audit trail as indented JSON.
func (g *Gate) ExportAudit(w io.Writer) error {
	history := g.GetAuditHistory()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(history)
}

package permission

// Level is the static risk classification of a tool. It is an intrinsic
// property of the tool definition and never changes at runtime.
type Level string

const (
	// LevelNone marks tools that never require confirmation (read-only
	// operations).
	LevelNone Level = "none"
	// LevelModerate marks tools that mutate state but are routinely approved
	// (file writes inside the project).
	LevelModerate Level = "moderate"
	// LevelDangerous marks tools that can cause irreversible damage (shell
	// commands, file deletion). These always prompt, even under auto-confirm.
	LevelDangerous Level = "dangerous"
)

// levelUnknown is recorded in the audit trail when a request names a tool the
// registry has never seen. It is not a valid level for registration.
const levelUnknown Level = "unknown"

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelModerate, LevelDangerous:
		return true
	}
	return false
}

package consts

import "time"

// Audit trail limits
const (
	// MaxAuditTargetLength is the maximum length of the target string recorded
	// in an audit entry before truncation
	MaxAuditTargetLength = 50
)

// Interrupt handling defaults
const (
	// DefaultConsecutiveWindow is the window within which repeated interrupts
	// are treated as escalating rather than independent
	DefaultConsecutiveWindow = 2000 * time.Millisecond
	// DefaultForceExitThreshold is the number of rapid interrupts that trigger
	// an unconditional force exit
	DefaultForceExitThreshold = 3
)

// Sandbox limits
const (
	// MaxDryRunPreviewLength is the maximum content length shown in a dry-run
	// change preview before truncation
	MaxDryRunPreviewLength = 100
	// CopyBufferSize is the buffer size used when cloning files into a sandbox
	CopyBufferSize = 64 * 1024
)

// Checkpoint defaults
const (
	// DefaultCheckpointRetention is how long checkpoints are kept before
	// Prune removes them
	DefaultCheckpointRetention = 30 * 24 * time.Hour
)

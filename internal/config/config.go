package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PermissionConfig controls the permission gate behavior
type PermissionConfig struct {
	// AutoConfirm approves moderate tools without prompting. Dangerous tools
	// always prompt regardless of this flag.
	AutoConfirm bool `json:"auto_confirm"`
	// LegacyDenyUninitialized restores the old behavior of silently denying
	// when no prompt callback is registered, instead of returning a
	// configuration error. Off by default.
	LegacyDenyUninitialized bool `json:"legacy_deny_uninitialized,omitempty"`
}

// InterruptConfig controls interrupt escalation
type InterruptConfig struct {
	// ConsecutiveWindowMs is the window in milliseconds within which repeated
	// interrupts escalate. Zero means the built-in default.
	ConsecutiveWindowMs int `json:"consecutive_window_ms,omitempty"`
	// ForceExitThreshold is the number of rapid interrupts that force an exit.
	// Zero means the built-in default.
	ForceExitThreshold int `json:"force_exit_threshold,omitempty"`
}

// SandboxConfig controls sandbox sessions
type SandboxConfig struct {
	// ExcludePatterns replaces the default directory exclude list when set.
	// Patterns containing '*' are treated as wildcards, otherwise as exact
	// entry names.
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	// AutoCleanup removes the sandbox directory after commit or discard.
	AutoCleanup bool `json:"auto_cleanup"`
	// TempDir overrides where sandbox clones are created.
	TempDir string `json:"temp_dir,omitempty"`
}

// Config represents application configuration
type Config struct {
	WorkingDir     string           `json:"working_dir"`
	LogLevel       string           `json:"log_level"` // debug, info, warn, error, none
	LogPath        string           `json:"-"`
	CheckpointDB   string           `json:"checkpoint_db,omitempty"`
	YoloMode       bool             `json:"yolo_mode"`
	Permissions    PermissionConfig `json:"permissions"`
	Interrupts     InterruptConfig  `json:"interrupts"`
	Sandbox        SandboxConfig    `json:"sandbox"`
	CommandTimeout int              `json:"command_timeout_seconds"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "floyd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "floyd")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "floyd")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "floyd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "floyd")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "floyd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "floyd")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "floyd")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		WorkingDir:     ".",
		LogLevel:       "info",
		LogPath:        filepath.Join(stateDir, "floyd.log"),
		CheckpointDB:   filepath.Join(stateDir, "checkpoints.db"),
		CommandTimeout: 30,
		Sandbox: SandboxConfig{
			AutoCleanup: true,
		},
	}
}

// Load reads configuration from path, falling back to defaults for missing
// files and fields.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.WorkingDir == "" {
		config.WorkingDir = "."
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	stateDir := defaultStateDir()
	if config.LogPath == "" {
		config.LogPath = filepath.Join(stateDir, "floyd.log")
	}
	if config.CheckpointDB == "" {
		config.CheckpointDB = filepath.Join(stateDir, "checkpoints.db")
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = 30
	}

	return config, nil
}

// Save writes configuration to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

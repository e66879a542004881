// Package config handles configuration loading and validation for savedeck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers for the history blob.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Built-in panel action names for keybindings.
const (
	ActionOverwrite = "overwrite"
	ActionDelete    = "delete"
	ActionRecord    = "record"
)

// defaultKeybindings provides built-in keybindings that users can override.
var defaultKeybindings = map[string]Keybinding{
	"o": {
		Action:  ActionOverwrite,
		Help:    "overwrite",
		Confirm: "Overwrite this file with the current document?",
	},
	"d": {
		Action:  ActionDelete,
		Help:    "delete",
		Confirm: "Remove this entry from history?",
	},
	"a": {
		Action: ActionRecord,
		Help:   "add current",
	},
}

// Config holds the application configuration.
type Config struct {
	History     HistoryConfig         `yaml:"history"`
	Storage     StorageConfig         `yaml:"storage"`
	Thumbnails  ThumbnailConfig       `yaml:"thumbnails"`
	Access      AccessConfig          `yaml:"access"`
	Formats     FormatsConfig         `yaml:"formats"`
	Log         LogConfig             `yaml:"log"`
	Panel       PanelConfig           `yaml:"panel"`
	Keybindings map[string]Keybinding `yaml:"keybindings"`
	DataDir     string                `yaml:"-"` // set by caller, not from config file
}

// HistoryConfig controls the history list.
type HistoryConfig struct {
	MaxRecords int `yaml:"max_records"`
}

// StorageConfig selects the backend for the history blob.
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// ThumbnailConfig controls thumbnail rendering.
type ThumbnailConfig struct {
	MaxSize int `yaml:"max_size"`
	Quality int `yaml:"quality"`
}

// AccessConfig controls which files can be reopened from a raw path.
type AccessConfig struct {
	// FullAccess allows path based recovery for any file.
	FullAccess bool `yaml:"full_access"`
	// Roots are glob patterns (doublestar syntax) path recovery may resolve.
	Roots []string `yaml:"roots"`
	// SessionTTL bounds write handle lifetime.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// FormatsConfig controls save formats.
type FormatsConfig struct {
	Default string `yaml:"default"`
	// Converter is a shell command template producing formats without a
	// native encoder from an intermediate PNG.
	Converter string `yaml:"converter"`
}

// LogConfig controls log file rotation.
type LogConfig struct {
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
}

// PanelConfig controls the interactive panel.
type PanelConfig struct {
	ConfirmDelete    bool `yaml:"confirm_delete"`
	ConfirmOverwrite bool `yaml:"confirm_overwrite"`
}

// Keybinding defines a panel keybinding action.
type Keybinding struct {
	Action  string `yaml:"action"`  // built-in action name (overwrite, delete, record)
	Help    string `yaml:"help"`    // help text shown in the panel
	Sh      string `yaml:"sh"`      // shell command template run against the selected record
	Confirm string `yaml:"confirm"` // confirmation prompt (empty = no confirm)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		History:    HistoryConfig{MaxRecords: 50},
		Storage:    StorageConfig{Driver: DriverJSON},
		Thumbnails: ThumbnailConfig{MaxSize: 256, Quality: 80},
		Access: AccessConfig{
			Roots:      []string{},
			SessionTTL: 10 * time.Minute,
		},
		Formats: FormatsConfig{Default: "PNG"},
		Log:     LogConfig{MaxSizeMB: 10, MaxBackups: 3},
		Panel: PanelConfig{
			ConfirmDelete:    true,
			ConfirmOverwrite: true,
		},
		Keybindings: map[string]Keybinding{},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			cfg.DataDir = dataDir
		}
	}

	cfg.Keybindings = mergeKeybindings(defaultKeybindings, cfg.Keybindings)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.History.MaxRecords == 0 {
		c.History.MaxRecords = defaults.History.MaxRecords
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Thumbnails.MaxSize == 0 {
		c.Thumbnails.MaxSize = defaults.Thumbnails.MaxSize
	}
	if c.Thumbnails.Quality == 0 {
		c.Thumbnails.Quality = defaults.Thumbnails.Quality
	}
	if c.Access.SessionTTL == 0 {
		c.Access.SessionTTL = defaults.Access.SessionTTL
	}
	if c.Formats.Default == "" {
		c.Formats.Default = defaults.Formats.Default
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
}

// mergeKeybindings merges user keybindings into defaults.
// User keybindings override defaults for the same key.
func mergeKeybindings(defaults, user map[string]Keybinding) map[string]Keybinding {
	result := make(map[string]Keybinding, len(defaults)+len(user))
	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// Validate performs the cheap structural checks needed to start.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.History.MaxRecords < 1 {
		return fmt.Errorf("history.max_records must be at least 1")
	}

	if !isValidDriver(c.Storage.Driver) {
		return fmt.Errorf("storage.driver %q is not one of json, sqlite", c.Storage.Driver)
	}

	if c.Access.SessionTTL < 0 {
		return fmt.Errorf("access.session_ttl cannot be negative")
	}

	for key, kb := range c.Keybindings {
		if kb.Action == "" && kb.Sh == "" {
			return fmt.Errorf("keybinding %q must have either action or sh", key)
		}
		if kb.Action != "" && kb.Sh != "" {
			return fmt.Errorf("keybinding %q cannot have both action and sh", key)
		}
		if kb.Action != "" && !isValidAction(kb.Action) {
			return fmt.Errorf("keybinding %q has invalid action %q", key, kb.Action)
		}
	}

	return nil
}

// HistoryFile returns the path of the JSON history store.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "history.json")
}

// HistoryDB returns the path of the SQLite history store.
func (c *Config) HistoryDB() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ThumbnailDir returns the thumbnail cache directory.
func (c *Config) ThumbnailDir() string {
	return filepath.Join(c.DataDir, "thumbnails")
}

// SecretFile returns the path of the token signing key.
func (c *Config) SecretFile() string {
	return filepath.Join(c.DataDir, "token.key")
}

func isValidDriver(driver string) bool {
	switch driver {
	case DriverJSON, DriverSQLite:
		return true
	default:
		return false
	}
}

func isValidAction(action string) bool {
	switch action {
	case ActionOverwrite, ActionDelete, ActionRecord:
		return true
	default:
		return false
	}
}

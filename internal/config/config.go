// Package config provides configuration management for quadpane with Viper integration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/quadpane/quadpane/internal/connector"
)

// File permission constants
const (
	dirPerm  = 0755 // Standard directory permissions (rwxr-xr-x)
	filePerm = 0644 // Standard file permissions (rw-r--r--)
)

// Config represents the complete configuration for quadpane.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	State     StateConfig     `mapstructure:"state" yaml:"state"`
	Favicons  FaviconConfig   `mapstructure:"favicons" yaml:"favicons"`
	Shortcuts ShortcutsConfig `mapstructure:"shortcuts" yaml:"shortcuts"`
}

// ServerConfig holds the HTTP host surface configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// BusyTimeout returns the sqlite busy timeout as a duration.
func (c DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// HistoryConfig holds history retention configuration.
type HistoryConfig struct {
	MaxEntries    int `mapstructure:"max_entries" yaml:"max_entries"`
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
	RecentLimit   int `mapstructure:"recent_limit" yaml:"recent_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StateConfig holds URL state encoding configuration.
type StateConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// Debounce returns the quiet window before a layout change is re-encoded.
func (c StateConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// FaviconConfig holds favicon resolution configuration.
type FaviconConfig struct {
	FetchTimeoutMS int `mapstructure:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`
	CacheTTLHours  int `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"`
}

// FetchTimeout returns the per-request favicon fetch timeout.
func (c FaviconConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// CacheTTL returns how long a resolved icon URL stays fresh.
func (c FaviconConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// ShortcutsConfig holds the keyboard shortcut table. Bindings maps
// engine actions to the key chords that invoke them from inside a pane;
// OpenModifier names the click modifier per platform that routes a link
// into the neighboring pane.
type ShortcutsConfig struct {
	Bindings     map[string][]string `mapstructure:"bindings" yaml:"bindings"`
	OpenModifier map[string]string   `mapstructure:"open_modifier" yaml:"open_modifier"`
}

// shortcutActions maps config action names to connector actions.
var shortcutActions = map[string]connector.Action{
	"move_left":        connector.ActionMoveLeft,
	"move_right":       connector.ActionMoveRight,
	"remove_pane":      connector.ActionRemovePane,
	"detach_pane":      connector.ActionDetachPane,
	"toggle_full_pane": connector.ActionToggleFull,
}

// ShortcutMap renders the bindings as the connector's lookup table.
// Unknown actions and unparseable chords are skipped; Load rejects them
// before a config gets this far.
func (c ShortcutsConfig) ShortcutMap() connector.ShortcutMap {
	bindings := make(map[string]connector.Action)
	for name, chords := range c.Bindings {
		action, ok := shortcutActions[name]
		if !ok {
			continue
		}
		for _, chord := range chords {
			bindings[chord] = action
		}
	}
	return connector.NewShortcutMap(bindings)
}

// OpenModifierFor returns the click modifier for the given GOOS,
// falling back to cmd on darwin and ctrl everywhere else.
func (c ShortcutsConfig) OpenModifierFor(goos string) string {
	if mod, ok := c.OpenModifier[goos]; ok && mod != "" {
		return strings.ToLower(mod)
	}
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	// Viper resolves the extension itself; the default file is YAML.
	v.SetConfigName("config")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Current directory for development

	v.SetEnvPrefix("QUADPANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific environment variables
	bindings := map[string]string{
		"server.addr":               "SERVER_ADDR",
		"database.path":             "DATABASE_PATH",
		"database.busy_timeout_ms":  "DATABASE_BUSY_TIMEOUT_MS",
		"history.max_entries":       "HISTORY_MAX_ENTRIES",
		"history.retention_days":    "HISTORY_RETENTION_DAYS",
		"history.recent_limit":      "HISTORY_RECENT_LIMIT",
		"logging.level":             "LOGGING_LEVEL",
		"logging.format":            "LOGGING_FORMAT",
		"state.debounce_ms":         "STATE_DEBOUNCE_MS",
		"favicons.fetch_timeout_ms": "FAVICONS_FETCH_TIMEOUT_MS",
		"favicons.cache_ttl_hours":  "FAVICONS_CACHE_TTL_HOURS",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, "QUADPANE_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	return &Manager{
		viper:     v,
		callbacks: make([]func(*Config), 0),
	}, nil
}

// NewManagerWithFile creates a manager pinned to an explicit config file
// instead of the XDG search path. An empty path behaves like NewManager.
func NewManagerWithFile(path string) (*Manager, error) {
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	if path != "" {
		m.viper.SetConfigFile(path)
	}
	return m, nil
}

// Load loads the configuration from file and environment variables.
// A missing config file is created with defaults, alongside its JSON
// schema.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if err := m.createDefaultConfig(); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
			if err := m.viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read created config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return m.applyLocked()
}

// applyLocked unmarshals, normalizes and validates the loaded values.
// Must be called with the write lock held.
func (m *Manager) applyLocked() error {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set database path if not specified
	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}

	config.Logging.Level = strings.ToLower(config.Logging.Level)
	config.Logging.Format = strings.ToLower(config.Logging.Format)

	if err := validateConfig(config); err != nil {
		return err
	}

	m.config = config
	return nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// Watch starts watching the config file for changes and reloads
// automatically. A reload that fails validation keeps the previous
// configuration.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return nil
	}

	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(_ fsnotify.Event) {
		if err := m.reload(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to reload config: %v\n", err)
			return
		}

		m.mu.RLock()
		config := m.config
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.RUnlock()

		for _, callback := range callbacks {
			callback(config)
		}
	})

	m.watching = true
	return nil
}

// OnConfigChange registers a callback function to be called when config changes.
func (m *Manager) OnConfigChange(callback func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)
}

func (m *Manager) reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.viper.ReadInConfig(); err != nil {
		return err
	}
	return m.applyLocked()
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("server.addr", defaults.Server.Addr)

	m.viper.SetDefault("database.busy_timeout_ms", defaults.Database.BusyTimeoutMS)

	m.viper.SetDefault("history.max_entries", defaults.History.MaxEntries)
	m.viper.SetDefault("history.retention_days", defaults.History.RetentionDays)
	m.viper.SetDefault("history.recent_limit", defaults.History.RecentLimit)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)

	m.viper.SetDefault("state.debounce_ms", defaults.State.DebounceMS)

	m.viper.SetDefault("favicons.fetch_timeout_ms", defaults.Favicons.FetchTimeoutMS)
	m.viper.SetDefault("favicons.cache_ttl_hours", defaults.Favicons.CacheTTLHours)

	m.viper.SetDefault("shortcuts.bindings", defaults.Shortcuts.Bindings)
	m.viper.SetDefault("shortcuts.open_modifier", defaults.Shortcuts.OpenModifier)
}

// createDefaultConfig creates a default configuration file and its
// JSON schema next to it.
func (m *Manager) createDefaultConfig() error {
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}

	configData, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configFile, configData, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := GenerateSchemaFile(); err != nil {
		return err
	}

	fmt.Printf("Created default configuration file: %s\n", configFile)
	return nil
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

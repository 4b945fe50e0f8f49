// Package config provides default configuration values for quadpane.
package config

// Default configuration constants
const (
	// Server defaults
	defaultListenAddr = "127.0.0.1:8747"

	// Database defaults
	defaultBusyTimeoutMS = 5000 // ms

	// History defaults
	defaultMaxHistoryEntries = 10000 // entries
	defaultRetentionDays     = 365   // 1 year
	defaultRecentLimit       = 20    // entries per listing

	// State encoding defaults
	defaultStateDebounceMS = 300 // ms

	// Favicon defaults
	defaultFaviconTimeoutMS = 5000 // ms
	defaultFaviconTTLHours  = 168  // 1 week
)

// DefaultConfig returns the default configuration values for quadpane.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: defaultListenAddr,
		},
		Database: DatabaseConfig{
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		History: HistoryConfig{
			MaxEntries:    defaultMaxHistoryEntries,
			RetentionDays: defaultRetentionDays,
			RecentLimit:   defaultRecentLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console", // console or json
		},
		State: StateConfig{
			DebounceMS: defaultStateDebounceMS,
		},
		Favicons: FaviconConfig{
			FetchTimeoutMS: defaultFaviconTimeoutMS,
			CacheTTLHours:  defaultFaviconTTLHours,
		},
		Shortcuts: DefaultShortcuts(),
	}
}

// DefaultShortcuts returns the default keyboard shortcut table. The
// move actions carry both axes; a session translates them along the
// layout's own axis, so arrow-up moves a pane up in vertical mode.
func DefaultShortcuts() ShortcutsConfig {
	return ShortcutsConfig{
		Bindings: map[string][]string{
			"move_left":        {"ctrl+shift+arrowleft", "ctrl+shift+arrowup"},
			"move_right":       {"ctrl+shift+arrowright", "ctrl+shift+arrowdown"},
			"remove_pane":      {"ctrl+shift+x"},
			"detach_pane":      {"ctrl+shift+d"},
			"toggle_full_pane": {"ctrl+shift+f"},
		},
		OpenModifier: map[string]string{
			"linux":   "ctrl",
			"windows": "ctrl",
			"darwin":  "cmd",
		},
	}
}

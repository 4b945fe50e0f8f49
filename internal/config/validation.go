// Package config provides validation utilities for configuration values.
package config

import (
	"fmt"
	"strings"

	"github.com/quadpane/quadpane/internal/connector"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	if config.Server.Addr == "" {
		validationErrors = append(validationErrors, "server.addr cannot be empty")
	}

	// Validate numeric ranges
	if config.Database.BusyTimeoutMS < 0 {
		validationErrors = append(validationErrors, "database.busy_timeout_ms must be non-negative")
	}
	if config.History.MaxEntries < 0 {
		validationErrors = append(validationErrors, "history.max_entries must be non-negative")
	}
	if config.History.RetentionDays < 0 {
		validationErrors = append(validationErrors, "history.retention_days must be non-negative")
	}
	if config.History.RecentLimit < 0 {
		validationErrors = append(validationErrors, "history.recent_limit must be non-negative")
	}
	if config.State.DebounceMS < 0 {
		validationErrors = append(validationErrors, "state.debounce_ms must be non-negative")
	}
	if config.Favicons.FetchTimeoutMS < 0 {
		validationErrors = append(validationErrors, "favicons.fetch_timeout_ms must be non-negative")
	}
	if config.Favicons.CacheTTLHours < 0 {
		validationErrors = append(validationErrors, "favicons.cache_ttl_hours must be non-negative")
	}

	// Validate logging values
	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level must be one of: trace, debug, info, warn, error (got: %s)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "console", "json":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format must be 'console' or 'json' (got: %s)", config.Logging.Format))
	}

	// Check for unknown actions, unparseable chords and duplicate
	// chords across actions in the shortcut table
	seenChords := make(map[string]string)
	for action, chords := range config.Shortcuts.Bindings {
		if _, ok := shortcutActions[action]; !ok {
			validationErrors = append(validationErrors, fmt.Sprintf("shortcuts.bindings.%s is not a known action", action))
			continue
		}
		if len(chords) == 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("shortcuts.bindings.%s must have at least one key chord", action))
		}
		for _, chord := range chords {
			normalized := connector.ParseChord(chord)
			if normalized == "" {
				validationErrors = append(validationErrors, fmt.Sprintf("shortcuts.bindings.%s contains unparseable chord '%s'", action, chord))
				continue
			}
			if existingAction, exists := seenChords[normalized]; exists && existingAction != action {
				validationErrors = append(validationErrors, fmt.Sprintf("duplicate key chord '%s' found in shortcut actions '%s' and '%s'", chord, existingAction, action))
			}
			seenChords[normalized] = action
		}
	}

	// Validate open modifiers
	for goos, mod := range config.Shortcuts.OpenModifier {
		switch strings.ToLower(mod) {
		case "ctrl", "control", "alt", "option", "shift", "meta", "cmd", "super", "win":
			// Valid
		default:
			validationErrors = append(validationErrors, fmt.Sprintf("shortcuts.open_modifier.%s must be a modifier key (got: %s)", goos, mod))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadpane/quadpane/internal/connector"
)

// isolateXDG points the XDG directories at a temp tree so tests never
// touch the real user configuration.
func isolateXDG(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("ENV", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	return filepath.Join(tmp, "config", appName), filepath.Join(tmp, "data", appName)
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	configDir, dataDir := isolateXDG(t)

	mgr, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	assert.FileExists(t, filepath.Join(configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(configDir, "config.schema.json"))

	cfg := mgr.Get()
	assert.Equal(t, defaultListenAddr, cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, defaultStateDebounceMS, cfg.State.DebounceMS)
	assert.Equal(t, filepath.Join(dataDir, databaseName), cfg.Database.Path)
	assert.NotEmpty(t, cfg.Shortcuts.Bindings["remove_pane"])
}

func TestLoadReadsExistingFile(t *testing.T) {
	configDir, _ := isolateXDG(t)
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := []byte("server:\n  addr: 127.0.0.1:9000\nstate:\n  debounce_ms: 50\n")
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0o644))

	mgr, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 50, cfg.State.DebounceMS)
	// Unset sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, defaultFaviconTimeoutMS, cfg.Favicons.FetchTimeoutMS)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	isolateXDG(t)
	t.Setenv("QUADPANE_LOGGING_LEVEL", "debug")
	t.Setenv("QUADPANE_SERVER_ADDR", "127.0.0.1:9100")

	mgr, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	configDir, _ := isolateXDG(t)
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := []byte("logging:\n  level: loud\n")
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0o644))

	mgr, err := NewManager()
	require.NoError(t, err)

	err = mgr.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidateConfig_Shortcuts(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name: "unknown action",
			mutate: func(cfg *Config) {
				cfg.Shortcuts.Bindings["rotate_pane"] = []string{"ctrl+r"}
			},
			wantErr: "rotate_pane",
		},
		{
			name: "empty chord list",
			mutate: func(cfg *Config) {
				cfg.Shortcuts.Bindings["remove_pane"] = nil
			},
			wantErr: "at least one key chord",
		},
		{
			name: "unparseable chord",
			mutate: func(cfg *Config) {
				cfg.Shortcuts.Bindings["remove_pane"] = []string{"ctrl+"}
			},
			wantErr: "unparseable chord",
		},
		{
			name: "duplicate chord across actions",
			mutate: func(cfg *Config) {
				cfg.Shortcuts.Bindings["remove_pane"] = []string{"ctrl+shift+d"}
			},
			wantErr: "duplicate key chord",
		},
		{
			name: "bad open modifier",
			mutate: func(cfg *Config) {
				cfg.Shortcuts.OpenModifier["linux"] = "hyper"
			},
			wantErr: "shortcuts.open_modifier.linux",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestShortcutMapResolvesSpellings(t *testing.T) {
	m := DefaultShortcuts().ShortcutMap()

	action, ok := m.Resolve(connector.KeyPress{Key: "ArrowRight", Modifiers: []string{"Shift", "Control"}})
	require.True(t, ok)
	assert.Equal(t, connector.ActionMoveRight, action)

	action, ok = m.Resolve(connector.KeyPress{Key: "x", Modifiers: []string{"ctrl", "shift"}})
	require.True(t, ok)
	assert.Equal(t, connector.ActionRemovePane, action)

	_, ok = m.Resolve(connector.KeyPress{Key: "x"})
	assert.False(t, ok)
}

func TestOpenModifierFor(t *testing.T) {
	tests := []struct {
		name      string
		shortcuts ShortcutsConfig
		goos      string
		want      string
	}{
		{name: "default linux", shortcuts: DefaultShortcuts(), goos: "linux", want: "ctrl"},
		{name: "default darwin", shortcuts: DefaultShortcuts(), goos: "darwin", want: "cmd"},
		{name: "unconfigured darwin", shortcuts: ShortcutsConfig{}, goos: "darwin", want: "cmd"},
		{name: "unconfigured other", shortcuts: ShortcutsConfig{}, goos: "freebsd", want: "ctrl"},
		{
			name:      "explicit override",
			shortcuts: ShortcutsConfig{OpenModifier: map[string]string{"linux": "ALT"}},
			goos:      "linux",
			want:      "alt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shortcuts.OpenModifierFor(tt.goos))
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(defaultStateDebounceMS), cfg.State.Debounce().Milliseconds())
	assert.Equal(t, int64(defaultFaviconTimeoutMS), cfg.Favicons.FetchTimeout().Milliseconds())
	assert.Equal(t, float64(defaultFaviconTTLHours), cfg.Favicons.CacheTTL().Hours())
	assert.Equal(t, int64(defaultBusyTimeoutMS), cfg.Database.BusyTimeout().Milliseconds())
}

func TestSchemaJSONNamesYAMLKeys(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	schema := string(data)
	assert.Contains(t, schema, `"server"`)
	assert.Contains(t, schema, `"debounce_ms"`)
	assert.Contains(t, schema, `"open_modifier"`)
	assert.Contains(t, schema, "https://github.com/quadpane/quadpane/config.schema.json")
}

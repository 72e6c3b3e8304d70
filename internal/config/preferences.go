// ABOUTME: Client-side preferences loaded from a TOML file under the XDG config dir
// ABOUTME: Covers backend URL, chat defaults, and export settings

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Preferences holds the client-side settings for the chat and export commands.
type Preferences struct {
	Backend BackendPrefs `toml:"backend"`
	Chat    ChatPrefs    `toml:"chat"`
	Export  ExportPrefs  `toml:"export"`
}

// BackendPrefs selects which backend the client talks to.
type BackendPrefs struct {
	URL string `toml:"url"`
}

// ChatPrefs holds defaults applied to new conversations.
type ChatPrefs struct {
	Model          string `toml:"model"`
	PermissionMode string `toml:"permission_mode"`
	WorkingDir     string `toml:"working_dir"`
}

// ExportPrefs holds defaults for transcript export.
type ExportPrefs struct {
	Format string `toml:"format"` // "markdown", "json", or "html"
}

// DefaultPreferences returns the settings used when no preferences file exists.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Backend: BackendPrefs{URL: "http://127.0.0.1:8700"},
		Export:  ExportPrefs{Format: "markdown"},
	}
}

// PreferencesPath returns the location of the preferences file, honoring
// XDG_CONFIG_HOME and falling back to ~/.config.
func PreferencesPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "cui", "preferences.toml"), nil
}

// LoadPreferences reads preferences from the given path. A missing file is
// not an error: defaults are returned. Environment variables in the format
// ${VAR_NAME} are expanded.
func LoadPreferences(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	prefs := DefaultPreferences()
	if _, err := toml.Decode(expanded, prefs); err != nil {
		return nil, fmt.Errorf("parsing preferences: %w", err)
	}

	if err := prefs.Validate(); err != nil {
		return nil, fmt.Errorf("validating preferences: %w", err)
	}

	return prefs, nil
}

// Validate checks that preference values are usable.
func (p *Preferences) Validate() error {
	if p.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	switch p.Export.Format {
	case "", "markdown", "json", "html":
	default:
		return fmt.Errorf("export.format must be markdown, json, or html (got %q)", p.Export.Format)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the per-user configuration directory.
const AppName = "convo"

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/convo/convo.yaml → ~/.config/convo/convo.yaml → ./convo.yaml
func ResolveConfigPath() (string, error) {
	candidates := []string{filepath.Join(DefaultConfigDir(), AppName+".yaml"), AppName + ".yaml"}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultConfigDir returns the per-user configuration directory.
// Uses $XDG_CONFIG_HOME/convo if set, otherwise ~/.config/convo.
func DefaultConfigDir() string {
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// DefaultHistoryPath returns the default backing file for a history backend.
func DefaultHistoryPath(backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(DefaultConfigDir(), "session-history.db")
	}
	return filepath.Join(DefaultConfigDir(), "session-history.json")
}

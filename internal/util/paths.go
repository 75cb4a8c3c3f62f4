package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// TabbyConfigDir returns the Tabby configuration directory for the current
// platform. The TABSYNC_TABBY_DIR environment variable overrides it.
func TabbyConfigDir() string {
	if v := os.Getenv("TABSYNC_TABBY_DIR"); v != "" {
		return v
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tabby")
	case "darwin":
		return filepath.Join(HomeDir(), "Library", "Application Support", "tabby")
	default:
		return filepath.Join(HomeDir(), ".config", "tabby")
	}
}

// TabsyncConfigPath returns the tabsync configuration directory.
// The TABSYNC_CONFIG_DIR environment variable overrides it.
func TabsyncConfigPath() string {
	if v := os.Getenv("TABSYNC_CONFIG_DIR"); v != "" {
		return v
	}
	return filepath.Join(HomeDir(), ".config", "tabsync")
}

// TabsyncBackupsPath returns the default backup storage directory
func TabsyncBackupsPath() string {
	return filepath.Join(TabsyncConfigPath(), "backups")
}

// ExpandPath expands a leading ~ and resolves relative paths against baseDir.
// Returns an empty string for empty input.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return filepath.Join(baseDir, path)
}

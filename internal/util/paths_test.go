package util

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTabbyConfigDirOverride(t *testing.T) {
	t.Setenv("TABSYNC_TABBY_DIR", "/custom/tabby")
	AssertEqual(t, TabbyConfigDir(), "/custom/tabby")
}

func TestTabbyConfigDirDefault(t *testing.T) {
	t.Setenv("TABSYNC_TABBY_DIR", "")
	dir := TabbyConfigDir()
	if !strings.Contains(dir, "tabby") {
		t.Errorf("TabbyConfigDir() = %q, expected a tabby directory", dir)
	}
}

func TestTabsyncConfigPathOverride(t *testing.T) {
	t.Setenv("TABSYNC_CONFIG_DIR", "/custom/tabsync")
	AssertEqual(t, TabsyncConfigPath(), "/custom/tabsync")
	AssertEqual(t, TabsyncBackupsPath(), filepath.Join("/custom/tabsync", "backups"))
}

func TestExpandPath(t *testing.T) {
	home := HomeDir()

	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{"empty", "", "/base", ""},
		{"bare tilde", "~", "/base", home},
		{"tilde prefix", "~/configs/tabby", "/base", filepath.Join(home, "configs", "tabby")},
		{"absolute", "/etc/tabby", "/base", "/etc/tabby"},
		{"relative", "configs", "/base", filepath.Join("/base", "configs")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AssertEqual(t, ExpandPath(tt.path, tt.baseDir), tt.want)
		})
	}
}

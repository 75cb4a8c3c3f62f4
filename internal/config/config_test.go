package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tabsync/tabsync/internal/resolve"
	"github.com/tabsync/tabsync/internal/util"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	util.AssertEqual(t, cfg.Remote.Kind, "gist")
	util.AssertEqual(t, cfg.Remote.GistFilename, "config.yaml")
	util.AssertEqual(t, cfg.Remote.Timeout, 30*time.Second)
	util.AssertEqual(t, cfg.Remote.MaxAttempts, uint(4))
	util.AssertEqual(t, cfg.Sync.Strategy, "newest")
	util.AssertEqual(t, cfg.Backup.MaxBackups, 20)
	util.AssertEqual(t, filepath.Base(cfg.Local.ConfigPath), "config.yaml")
	util.AssertEqual(t, filepath.Base(cfg.Local.MetadataPath), ".sync_metadata.json")

	util.AssertNoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TABSYNC_CONFIG_DIR", util.CreateTempDir(t))

	cfg, err := Load()
	util.AssertNoError(t, err)
	util.AssertEqual(t, cfg.Remote.Kind, "gist")
	util.AssertEqual(t, Exists(), false)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("TABSYNC_CONFIG_DIR", util.CreateTempDir(t))

	cfg := Default()
	cfg.Remote.GistID = "gist-123"
	cfg.Sync.Strategy = "merge"
	cfg.Backup.MaxBackups = 5
	util.AssertNoError(t, cfg.Save())

	util.AssertEqual(t, Exists(), true)

	loaded, err := Load()
	util.AssertNoError(t, err)
	util.AssertEqual(t, loaded.Remote.GistID, "gist-123")
	util.AssertEqual(t, loaded.Sync.Strategy, "merge")
	util.AssertEqual(t, loaded.Backup.MaxBackups, 5)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TABSYNC_CONFIG_DIR", util.CreateTempDir(t))
	t.Setenv("TABSYNC_REMOTE_KIND", "bucket")
	t.Setenv("TABSYNC_REMOTE_ENDPOINT", "https://objects.example.com")
	t.Setenv("TABSYNC_REMOTE_BUCKET", "configs")
	t.Setenv("TABSYNC_REMOTE_KEY", "tabby/config.yaml")
	t.Setenv("TABSYNC_REMOTE_TIMEOUT", "5s")
	t.Setenv("TABSYNC_REMOTE_MAX_ATTEMPTS", "2")
	t.Setenv("TABSYNC_SYNC_STRATEGY", "local")
	t.Setenv("TABSYNC_SYNC_MERGE_ESCALATES", "yes")
	t.Setenv("TABSYNC_BACKUP_MAX", "7")

	cfg, err := Load()
	util.AssertNoError(t, err)

	util.AssertEqual(t, cfg.Remote.Kind, "bucket")
	util.AssertEqual(t, cfg.Remote.Endpoint, "https://objects.example.com")
	util.AssertEqual(t, cfg.Remote.Timeout, 5*time.Second)
	util.AssertEqual(t, cfg.Remote.MaxAttempts, uint(2))
	util.AssertEqual(t, cfg.Sync.Strategy, "local")
	util.AssertEqual(t, cfg.Sync.MergeEscalates, true)
	util.AssertEqual(t, cfg.Backup.MaxBackups, 7)

	util.AssertNoError(t, cfg.Validate())
}

func TestGetStrategyFallsBackToNewest(t *testing.T) {
	cfg := Default()
	cfg.Sync.Strategy = "bogus"
	util.AssertEqual(t, cfg.GetStrategy(), resolve.StrategyNewest)

	cfg.Sync.Strategy = "cloud"
	util.AssertEqual(t, cfg.GetStrategy(), resolve.StrategyCloud)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"empty config path", func(c *Config) { c.Local.ConfigPath = "" }, true},
		{"unknown strategy", func(c *Config) { c.Sync.Strategy = "random" }, true},
		{"unknown backend kind", func(c *Config) { c.Remote.Kind = "ftp" }, true},
		{"bucket without endpoint", func(c *Config) { c.Remote.Kind = "bucket" }, true},
		{"bucket fully specified", func(c *Config) {
			c.Remote.Kind = "bucket"
			c.Remote.Endpoint = "https://objects.example.com"
			c.Remote.Bucket = "configs"
			c.Remote.Key = "tabby/config.yaml"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := util.CreateTempDir(t)
	t.Setenv("TABSYNC_CONFIG_DIR", dir)
	t.Setenv("TABSYNC_GITHUB_TOKEN", "")
	t.Setenv("TABSYNC_BUCKET_TOKEN", "")

	util.WriteFile(t, filepath.Join(dir, "credentials.toml"),
		"[github]\ntoken = \"ghp_file\"\n\n[bucket]\ntoken = \"bkt_file\"\n")

	creds, err := LoadCredentials()
	util.AssertNoError(t, err)
	util.AssertEqual(t, creds.GitHub.Token, "ghp_file")
	util.AssertEqual(t, creds.Bucket.Token, "bkt_file")
}

func TestCredentialsEnvironmentWins(t *testing.T) {
	dir := util.CreateTempDir(t)
	t.Setenv("TABSYNC_CONFIG_DIR", dir)
	t.Setenv("TABSYNC_GITHUB_TOKEN", "ghp_env")

	util.WriteFile(t, filepath.Join(dir, "credentials.toml"),
		"[github]\ntoken = \"ghp_file\"\n")

	creds, err := LoadCredentials()
	util.AssertNoError(t, err)
	util.AssertEqual(t, creds.GitHub.Token, "ghp_env")
}

func TestCredentialsMissingFileIsFine(t *testing.T) {
	t.Setenv("TABSYNC_CONFIG_DIR", util.CreateTempDir(t))
	t.Setenv("TABSYNC_GITHUB_TOKEN", "")
	t.Setenv("TABSYNC_BUCKET_TOKEN", "")

	creds, err := LoadCredentials()
	util.AssertNoError(t, err)
	util.AssertEqual(t, creds.GitHub.Token, "")
}

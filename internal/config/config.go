// Package config provides configuration management for tabsync.
// It supports a YAML configuration file, environment variable overrides,
// and sensible defaults; credentials live in a separate TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tabsync/tabsync/internal/resolve"
	"github.com/tabsync/tabsync/internal/util"
)

// Config represents the complete tabsync configuration.
type Config struct {
	// Local configures the synchronized file and its sidecar records
	Local LocalConfig `yaml:"local"`

	// Remote configures the storage backend
	Remote RemoteConfig `yaml:"remote"`

	// Sync configures reconciliation behavior
	Sync SyncConfig `yaml:"sync"`

	// Backup configures backup behavior
	Backup BackupConfig `yaml:"backup"`
}

// LocalConfig holds the local file layout.
type LocalConfig struct {
	// ConfigPath is the synchronized configuration file
	ConfigPath string `yaml:"config_path"`
	// MetadataPath is the sync metadata record
	MetadataPath string `yaml:"metadata_path"`
}

// RemoteConfig holds storage backend settings.
type RemoteConfig struct {
	// Kind selects the backend (gist, bucket)
	Kind string `yaml:"kind"`
	// GistID is the gist identifier; created lazily on first push if empty
	GistID string `yaml:"gist_id,omitempty"`
	// GistFilename is the file inside the gist
	GistFilename string `yaml:"gist_filename,omitempty"`
	// Endpoint, Bucket, and Key locate the object for the bucket backend
	Endpoint string `yaml:"endpoint,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Key      string `yaml:"key,omitempty"`
	// Timeout bounds each network call
	Timeout time.Duration `yaml:"timeout"`
	// MaxAttempts bounds retries of transient faults
	MaxAttempts uint `yaml:"max_attempts"`
}

// SyncConfig holds reconciliation settings.
type SyncConfig struct {
	// Strategy is the conflict resolution strategy
	Strategy string `yaml:"strategy"`
	// MergeEscalates routes merges with conflict markers to the manual flow
	MergeEscalates bool `yaml:"merge_escalates"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Location is the backup directory path
	Location string `yaml:"location"`
	// MaxBackups bounds retention; zero keeps everything
	MaxBackups int `yaml:"max_backups"`
}

// Default returns the default configuration.
func Default() *Config {
	tabbyDir := util.TabbyConfigDir()
	return &Config{
		Local: LocalConfig{
			ConfigPath:   filepath.Join(tabbyDir, "config.yaml"),
			MetadataPath: filepath.Join(tabbyDir, ".sync_metadata.json"),
		},
		Remote: RemoteConfig{
			Kind:         "gist",
			GistFilename: "config.yaml",
			Timeout:      30 * time.Second,
			MaxAttempts:  4,
		},
		Sync: SyncConfig{
			Strategy:       string(resolve.StrategyNewest),
			MergeEscalates: false,
		},
		Backup: BackupConfig{
			Location:   util.TabsyncBackupsPath(),
			MaxBackups: 20,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.TabsyncConfigPath(), configFileName)
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg := Default()

	configPath := FilePath()
	// #nosec G304 - configPath is constructed from trusted config directory
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvironment()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern TABSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("TABSYNC_LOCAL_CONFIG_PATH"); v != "" {
		c.Local.ConfigPath = v
	}
	if v := os.Getenv("TABSYNC_LOCAL_METADATA_PATH"); v != "" {
		c.Local.MetadataPath = v
	}

	if v := os.Getenv("TABSYNC_REMOTE_KIND"); v != "" {
		c.Remote.Kind = v
	}
	if v := os.Getenv("TABSYNC_REMOTE_GIST_ID"); v != "" {
		c.Remote.GistID = v
	}
	if v := os.Getenv("TABSYNC_REMOTE_ENDPOINT"); v != "" {
		c.Remote.Endpoint = v
	}
	if v := os.Getenv("TABSYNC_REMOTE_BUCKET"); v != "" {
		c.Remote.Bucket = v
	}
	if v := os.Getenv("TABSYNC_REMOTE_KEY"); v != "" {
		c.Remote.Key = v
	}
	if v := os.Getenv("TABSYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		}
	}
	if v := os.Getenv("TABSYNC_REMOTE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			c.Remote.MaxAttempts = uint(n)
		}
	}

	if v := os.Getenv("TABSYNC_SYNC_STRATEGY"); v != "" {
		c.Sync.Strategy = v
	}
	if v := os.Getenv("TABSYNC_SYNC_MERGE_ESCALATES"); v != "" {
		c.Sync.MergeEscalates = parseBool(v)
	}

	if v := os.Getenv("TABSYNC_BACKUP_LOCATION"); v != "" {
		c.Backup.Location = v
	}
	if v := os.Getenv("TABSYNC_BACKUP_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backup.MaxBackups = n
		}
	}
}

// GetStrategy returns the conflict strategy from config, validating it.
func (c *Config) GetStrategy() resolve.Strategy {
	strategy := resolve.Strategy(c.Sync.Strategy)
	if strategy.IsValid() {
		return strategy
	}
	return resolve.StrategyNewest
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Local.ConfigPath == "" {
		return fmt.Errorf("local.config_path must be set")
	}
	if !resolve.Strategy(c.Sync.Strategy).IsValid() {
		return fmt.Errorf("unknown sync.strategy %q (valid: %s)", c.Sync.Strategy, strategyNames())
	}
	switch c.Remote.Kind {
	case "gist":
	case "bucket":
		if c.Remote.Endpoint == "" || c.Remote.Bucket == "" || c.Remote.Key == "" {
			return fmt.Errorf("bucket backend requires remote.endpoint, remote.bucket, and remote.key")
		}
	default:
		return fmt.Errorf("unknown remote.kind %q (valid: gist, bucket)", c.Remote.Kind)
	}
	return nil
}

func strategyNames() string {
	all := resolve.AllStrategies()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}

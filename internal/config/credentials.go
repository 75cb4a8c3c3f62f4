package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tabsync/tabsync/internal/util"
)

// Credentials holds the secrets for the remote backends, kept out of the
// main configuration file.
type Credentials struct {
	// GitHub configures the gist backend
	GitHub struct {
		Token string `toml:"token"`
	} `toml:"github"`

	// Bucket configures the object-storage backend
	Bucket struct {
		Token string `toml:"token"`
	} `toml:"bucket"`
}

// credentialsFileName is the name of the credentials file.
const credentialsFileName = "credentials.toml"

// CredentialsPath returns the path to the credentials file.
func CredentialsPath() string {
	return filepath.Join(util.TabsyncConfigPath(), credentialsFileName)
}

// LoadCredentials reads the credentials file and applies environment
// overrides (TABSYNC_GITHUB_TOKEN, TABSYNC_BUCKET_TOKEN). A missing file
// is fine when the tokens come from the environment.
func LoadCredentials() (*Credentials, error) {
	creds := &Credentials{}

	path := CredentialsPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, creds); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("TABSYNC_GITHUB_TOKEN"); v != "" {
		creds.GitHub.Token = v
	}
	if v := os.Getenv("TABSYNC_BUCKET_TOKEN"); v != "" {
		creds.Bucket.Token = v
	}

	return creds, nil
}

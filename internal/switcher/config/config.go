package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugolld/cc-api-switcher/internal/switcher/paths"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

// Defaults applied when the backing file is absent or a key is unset.
const (
	DefaultRetentionCount = 10
)

// Values is the flat key set persisted in config.json.
type Values struct {
	DefaultProfileDir    string   `json:"default_profile_dir,omitempty"`
	BackupRetentionCount int      `json:"backup_retention_count,omitempty"`
	AutoBackup           *bool    `json:"auto_backup,omitempty"`
	SearchOrder          []string `json:"search_order,omitempty"`
	DefaultTarget        string   `json:"default_target,omitempty"`
}

// Config is the persisted global configuration. Loading never creates
// anything on disk; directories appear only through EnsureProfilesDir,
// Save or Initialize.
type Config struct {
	storage *storage.Storage
	path    string
	values  Values
}

// Load reads the configuration file at path. A missing file yields defaults.
func Load(st *storage.Storage, path string) (*Config, error) {
	c := &Config{storage: st, path: path}
	data, err := st.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.values); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return c, nil
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration, creating the config directory if needed.
func (c *Config) Save() error {
	if err := c.storage.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c.values, "", "  ")
	if err != nil {
		return err
	}
	if err := c.storage.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("save config %s: %w", c.path, err)
	}
	return nil
}

// ProfilesDir returns the configured default profile directory, falling back
// to the global profiles directory under the config root.
func (c *Config) ProfilesDir() string {
	if c.values.DefaultProfileDir != "" {
		return c.values.DefaultProfileDir
	}
	return paths.GlobalProfilesDir()
}

// DefaultProfileDirRaw returns the configured value without the fallback.
func (c *Config) DefaultProfileDirRaw() string {
	return c.values.DefaultProfileDir
}

// RetentionCount returns how many backups to keep per target.
func (c *Config) RetentionCount() int {
	if c.values.BackupRetentionCount > 0 {
		return c.values.BackupRetentionCount
	}
	return DefaultRetentionCount
}

// AutoBackupEnabled reports whether switches back up the target by default.
func (c *Config) AutoBackupEnabled() bool {
	if c.values.AutoBackup == nil {
		return true
	}
	return *c.values.AutoBackup
}

// TargetPath returns the configured default target, falling back to the
// well-known settings file in the user's home directory.
func (c *Config) TargetPath() (string, error) {
	if c.values.DefaultTarget != "" {
		return c.values.DefaultTarget, nil
	}
	return paths.DefaultTargetPath()
}

// EnsureProfilesDir creates the profiles directory if needed and returns it.
func (c *Config) EnsureProfilesDir() (string, error) {
	dir := c.ProfilesDir()
	if err := c.storage.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create profiles directory: %w", err)
	}
	return dir, nil
}

// Initialize writes a fully populated default configuration and creates the
// config and profiles directories.
func (c *Config) Initialize() error {
	target, err := paths.DefaultTargetPath()
	if err != nil {
		return err
	}
	autoBackup := true
	c.values = Values{
		DefaultProfileDir:    paths.GlobalProfilesDir(),
		BackupRetentionCount: DefaultRetentionCount,
		AutoBackup:           &autoBackup,
		SearchOrder:          []string{"global", "local"},
		DefaultTarget:        target,
	}
	if err := c.Save(); err != nil {
		return err
	}
	_, err = c.EnsureProfilesDir()
	return err
}

// Get returns the string form of a configuration key, or ok=false for an
// unknown key.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case "default_profile_dir":
		return c.values.DefaultProfileDir, true
	case "backup_retention_count":
		return fmt.Sprintf("%d", c.RetentionCount()), true
	case "auto_backup":
		return fmt.Sprintf("%t", c.AutoBackupEnabled()), true
	case "default_target":
		return c.values.DefaultTarget, true
	default:
		return "", false
	}
}

// Set updates a configuration key from its string form. The caller must Save
// to persist the change.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_profile_dir":
		c.values.DefaultProfileDir = value
	case "backup_retention_count":
		var count int
		if _, err := fmt.Sscanf(value, "%d", &count); err != nil || count < 1 {
			return fmt.Errorf("backup_retention_count must be a positive integer, got %q", value)
		}
		c.values.BackupRetentionCount = count
	case "auto_backup":
		switch value {
		case "true":
			v := true
			c.values.AutoBackup = &v
		case "false":
			v := false
			c.values.AutoBackup = &v
		default:
			return fmt.Errorf("auto_backup must be true or false, got %q", value)
		}
	case "default_target":
		c.values.DefaultTarget = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

// Keys returns the settable configuration keys in display order.
func Keys() []string {
	return []string{"default_profile_dir", "backup_retention_count", "auto_backup", "default_target"}
}

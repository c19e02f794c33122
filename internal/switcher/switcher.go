// Package switcher wires the profile, locator, backup and engine subsystems
// into the surface the CLI consumes.
package switcher

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/hugolld/cc-api-switcher/internal/switcher/backup"
	"github.com/hugolld/cc-api-switcher/internal/switcher/config"
	"github.com/hugolld/cc-api-switcher/internal/switcher/engine"
	"github.com/hugolld/cc-api-switcher/internal/switcher/locator"
	"github.com/hugolld/cc-api-switcher/internal/switcher/paths"
	"github.com/hugolld/cc-api-switcher/internal/switcher/profile"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
	"github.com/hugolld/cc-api-switcher/internal/switcher/validator"
)

// Options configures a Switcher. Zero values fall back to the process
// environment and the persisted configuration.
type Options struct {
	Fs          afero.Fs
	Logger      *slog.Logger
	ExplicitDir string // legacy single-directory mode; disables hierarchical search
	TargetPath  string // overrides the configured default target
	BackupDir   string
	ConfigPath  string
	Cwd         string
	EnvDir      *string // nil reads CC_API_SWITCHER_PROFILE_DIR
}

// Switcher is the facade over the subsystems.
type Switcher struct {
	storage *storage.Storage
	cfg     *config.Config
	locator *locator.Locator
	backups *backup.Service
	engine  *engine.Engine
	logger  *slog.Logger

	explicitDir string
	envDir      string
	cwd         string
	targetPath  string
}

// New builds a Switcher from the options, loading persisted configuration if
// present. Nothing is created on disk.
func New(opts Options) (*Switcher, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	st := storage.New(fs)

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = paths.ConfigFilePath()
	}
	cfg, err := config.Load(st, configPath)
	if err != nil {
		return nil, err
	}

	targetPath := opts.TargetPath
	if targetPath == "" {
		targetPath, err = cfg.TargetPath()
		if err != nil {
			return nil, fmt.Errorf("resolve target path: %w", err)
		}
	}

	backupDir := opts.BackupDir
	if backupDir == "" {
		backupDir = paths.DefaultBackupDir()
	}

	envDir := os.Getenv(paths.EnvProfileDir)
	if opts.EnvDir != nil {
		envDir = *opts.EnvDir
	}

	cwd := opts.Cwd
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}

	backups := backup.New(st, backupDir, cfg.RetentionCount(), logger)
	return &Switcher{
		storage:     st,
		cfg:         cfg,
		locator:     locator.New(st),
		backups:     backups,
		engine:      engine.New(st, backups, logger),
		logger:      logger,
		explicitDir: opts.ExplicitDir,
		envDir:      envDir,
		cwd:         cwd,
		targetPath:  targetPath,
	}, nil
}

// Config returns the persisted configuration.
func (s *Switcher) Config() *config.Config {
	return s.cfg
}

// TargetPath returns the resolved target file path.
func (s *Switcher) TargetPath() string {
	return s.targetPath
}

// SearchDirs returns the ordered candidate directories for this invocation.
func (s *Switcher) SearchDirs() []paths.Dir {
	return paths.SearchDirs(s.explicitDir, s.envDir, s.cfg.DefaultProfileDirRaw(), s.cwd)
}

// Locate finds the file backing a named profile.
func (s *Switcher) Locate(name string) (string, error) {
	return s.locator.Find(name, s.SearchDirs())
}

// Load locates, reads and parses a named profile.
func (s *Switcher) Load(name string) (*profile.Profile, error) {
	path, err := s.Locate(name)
	if err != nil {
		return nil, err
	}
	return s.LoadFile(path, name)
}

// LoadFile reads and parses a profile file. An empty name is derived from
// the filename.
func (s *Switcher) LoadFile(path, name string) (*profile.Profile, error) {
	data, err := s.storage.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	if name == "" {
		name = profile.NameFromFilename(path)
	}
	return profile.Parse(data, name)
}

// ListAll enumerates the profiles visible from the search directories,
// first occurrence winning per name.
func (s *Switcher) ListAll() ([]locator.Entry, error) {
	return s.locator.ListAll(s.SearchDirs())
}

// Switch loads the named profile and makes it active. createBackup requests
// a backup of the existing target before it is replaced.
func (s *Switcher) Switch(name string, createBackup bool) (string, error) {
	p, err := s.Load(name)
	if err != nil {
		return "", err
	}
	return s.engine.SwitchTo(p, s.targetPath, createBackup)
}

// SwitchProfile makes an already-loaded profile active.
func (s *Switcher) SwitchProfile(p *profile.Profile, createBackup bool) (string, error) {
	return s.engine.SwitchTo(p, s.targetPath, createBackup)
}

// CreateBackup snapshots the current target. Returns "" when there is no
// target to back up.
func (s *Switcher) CreateBackup() (string, error) {
	return s.backups.Create(s.targetPath)
}

// ListBackups returns the target's backups, newest first.
func (s *Switcher) ListBackups() ([]backup.Record, error) {
	return s.backups.List(s.targetPath)
}

// Restore copies a backup over the target, backing up the current target
// first.
func (s *Switcher) Restore(backupPath string) error {
	return s.backups.Restore(backupPath, s.targetPath)
}

// Current returns the profile currently in the target file, or nil when the
// target does not exist.
func (s *Switcher) Current() (*profile.Profile, error) {
	return s.engine.Current(s.targetPath)
}

// Import copies an external profile JSON file into the global profiles
// directory under the given name (derived from the source filename when
// empty). The document must parse; validation issues are returned for
// display but do not block the import.
func (s *Switcher) Import(srcPath, name string) (string, []string, error) {
	if name == "" {
		name = profile.NameFromFilename(srcPath)
	}
	normalized, err := validator.NormalizeName(name)
	if err != nil {
		return "", nil, err
	}

	p, err := s.LoadFile(srcPath, normalized)
	if err != nil {
		return "", nil, err
	}

	dir, err := s.cfg.EnsureProfilesDir()
	if err != nil {
		return "", nil, err
	}

	data, err := p.Serialize()
	if err != nil {
		return "", nil, err
	}
	dst := filepath.Join(dir, paths.ProfileFileName(normalized))
	if err := s.storage.WriteFile(dst, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("write profile %s: %w", dst, err)
	}
	s.logger.Info("profile imported", "name", normalized, "path", dst)
	return dst, p.Validate(), nil
}

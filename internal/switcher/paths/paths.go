package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Well-known names used across the tool.
const (
	// EnvProfileDir overrides the highest-priority search directory.
	EnvProfileDir = "CC_API_SWITCHER_PROFILE_DIR"

	AppDirName      = "cc-api-switcher"
	ConfigFileName  = "config.json"
	ProfilesDirName = "profiles"
	BackupsDirName  = "backups"

	ClaudeDirName  = ".claude"
	TargetFileName = "settings.json"

	// ProfileSuffix is the expected profile filename suffix; a profile named
	// "deepseek" lives in deepseek_settings.json.
	ProfileSuffix = "_settings.json"
)

// Source tags identify which precedence tier produced a directory. They are
// display-only; resolution itself is first-match-wins.
const (
	SourceExplicit = "explicit"
	SourceEnv      = "env"
	SourceGlobal   = "global"
	SourceLocal    = "local"
)

// Dir is one candidate search directory with its source tag.
type Dir struct {
	Path   string
	Source string
}

// SearchDirs computes the ordered profile search directories, highest
// priority first. An explicit directory short-circuits everything else and
// becomes the only search path (legacy single-directory mode). Otherwise the
// order is: env-var directory, configured default (or the global profiles
// directory), current working directory. Directories need not exist; this is
// a pure function of its inputs.
func SearchDirs(explicit, envDir, configuredDefault, cwd string) []Dir {
	if explicit != "" {
		return []Dir{{Path: explicit, Source: SourceExplicit}}
	}

	var dirs []Dir
	if envDir != "" {
		dirs = append(dirs, Dir{Path: envDir, Source: SourceEnv})
	}
	if configuredDefault != "" {
		dirs = append(dirs, Dir{Path: configuredDefault, Source: SourceGlobal})
	} else {
		dirs = append(dirs, Dir{Path: GlobalProfilesDir(), Source: SourceGlobal})
	}
	dirs = append(dirs, Dir{Path: cwd, Source: SourceLocal})
	return dirs
}

// ConfigRoot returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigRoot() string {
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// ConfigFilePath returns the persisted configuration file path.
func ConfigFilePath() string {
	return filepath.Join(ConfigRoot(), ConfigFileName)
}

// GlobalProfilesDir returns the default global profiles directory.
func GlobalProfilesDir() string {
	return filepath.Join(ConfigRoot(), ProfilesDirName)
}

// DefaultBackupDir returns the default backup directory.
func DefaultBackupDir() string {
	return filepath.Join(ConfigRoot(), BackupsDirName)
}

// DefaultTargetPath returns the settings file the coding-assistant CLI reads.
func DefaultTargetPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ClaudeDirName, TargetFileName), nil
}

// ProfileFileName returns the expected filename for a profile name.
func ProfileFileName(name string) string {
	return name + ProfileSuffix
}

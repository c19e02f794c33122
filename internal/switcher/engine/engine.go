package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hugolld/cc-api-switcher/internal/switcher/backup"
	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/profile"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

// Engine orchestrates the switch operation: validate, backup, atomic write,
// permission hardening.
type Engine struct {
	storage *storage.Storage
	backups *backup.Service
	logger  *slog.Logger
}

// New creates a new Engine.
func New(st *storage.Storage, backups *backup.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{storage: st, backups: backups, logger: logger}
}

// SwitchTo replaces the target file with the profile's serialized form.
//
// The steps run in a fixed order: validation aborts before any filesystem
// access; a requested backup that fails prevents the write; the write itself
// is a sibling temp file renamed over the target, so a concurrent reader only
// ever sees the old or the new content. Hardening the target to 0600 happens
// last; when it fails the written content stays in place and the error is
// returned alongside the target path.
func (e *Engine) SwitchTo(p *profile.Profile, targetPath string, createBackup bool) (string, error) {
	if issues := p.Validate(); len(issues) > 0 {
		return "", &domain.ValidationError{Issues: issues}
	}

	if createBackup {
		if exists, err := e.storage.Exists(targetPath); err != nil {
			return "", fmt.Errorf("%w: check target: %v", domain.ErrBackupFailed, err)
		} else if exists {
			backupPath, err := e.backups.Create(targetPath)
			if err != nil {
				return "", err
			}
			e.logger.Info("target backed up before switch", "backup", backupPath)
		}
	}

	data, err := p.Serialize()
	if err != nil {
		return "", fmt.Errorf("%w: serialize profile: %v", domain.ErrWriteFailed, err)
	}
	if err := e.storage.WriteFileAtomic(targetPath, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}

	e.logger.Info("switched settings", "profile", p.Name, "target", targetPath)

	if err := e.storage.Chmod(targetPath, 0o600); err != nil {
		// Content is already in place; report without rolling back.
		return targetPath, fmt.Errorf("%w: harden target: %v", domain.ErrPermission, err)
	}
	return targetPath, nil
}

// Current reads and parses the target file, inferring a display name from
// the base URL. The inferred name exists only for show-style output and is
// never persisted. A missing target returns (nil, nil).
func (e *Engine) Current(targetPath string) (*profile.Profile, error) {
	data, err := e.storage.ReadFile(targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read target: %w", err)
	}

	p, err := profile.Parse(data, "current")
	if err != nil {
		return nil, err
	}
	p.Name = inferName(p)
	return p, nil
}

// inferName guesses a human-readable profile name from the base URL.
func inferName(p *profile.Profile) string {
	baseURL, _ := p.EnvString(profile.EnvBaseURL)
	baseURL = strings.ToLower(baseURL)
	switch {
	case strings.Contains(baseURL, "deepseek"):
		return "deepseek"
	case strings.Contains(baseURL, "bigmodel"):
		return "glm"
	case strings.Contains(baseURL, "minimaxi"):
		return "minimax"
	case strings.Contains(baseURL, "dashscope"):
		return "qwen"
	default:
		return "current-" + strings.ToLower(p.Provider())
	}
}

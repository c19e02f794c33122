package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

// timestampLayout is second-resolution and lexicographically sortable, so a
// naive sort by name approximates sort by time. Retention decisions use
// mtimes, not names.
const timestampLayout = "20060102_150405"

// Service creates timestamped backups of a target file and enforces a
// per-target retention count.
type Service struct {
	storage   *storage.Storage
	backupDir string
	keep      int
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new backup Service keeping at most keep backups per target.
func New(st *storage.Storage, backupDir string, keep int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		storage:   st,
		backupDir: backupDir,
		keep:      keep,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow allows overriding the clock for testing.
func (s *Service) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// BackupDir returns the backup directory path.
func (s *Service) BackupDir() string {
	return s.backupDir
}

// Create copies the target file into the backup directory as
// {base}.backup.{timestamp}, preserving the source mtime where possible, and
// then enforces retention. A missing target returns ("", nil).
func (s *Service) Create(targetPath string) (string, error) {
	if _, err := s.storage.Stat(targetPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: stat target: %v", domain.ErrBackupFailed, err)
	}

	if err := s.storage.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create backup directory: %v", domain.ErrBackupFailed, err)
	}

	base := filepath.Base(targetPath)
	backupPath := filepath.Join(s.backupDir, fmt.Sprintf("%s.backup.%s", base, s.now().Format(timestampLayout)))

	if err := s.storage.CopyFile(targetPath, backupPath, 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackupFailed, err)
	}

	s.logger.Info("backup created", "target", targetPath, "backup", backupPath)
	s.enforceRetention(base)
	return backupPath, nil
}

// Record describes one backup file, newest first in listings.
type Record struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns the backups for the target, newest first. The listing is
// recomputed on every call.
func (s *Service) List(targetPath string) ([]Record, error) {
	matches, err := s.storage.Glob(filepath.Join(s.backupDir, filepath.Base(targetPath)+".backup.*"))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var records []Record
	for _, match := range matches {
		info, err := s.storage.Stat(match)
		if err != nil {
			continue
		}
		records = append(records, Record{Path: match, ModTime: info.ModTime(), Size: info.Size()})
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].ModTime.Equal(records[j].ModTime) {
			return records[i].ModTime.After(records[j].ModTime)
		}
		return records[i].Path > records[j].Path
	})
	return records, nil
}

// Restore copies a backup over the target. The current target, when present,
// is backed up first so the restore itself can be undone by one more restore.
func (s *Service) Restore(backupPath, targetPath string) error {
	if exists, err := s.storage.Exists(backupPath); err != nil {
		return fmt.Errorf("check backup: %w", err)
	} else if !exists {
		return fmt.Errorf("%w: %s", domain.ErrBackupNotFound, backupPath)
	}

	if exists, err := s.storage.Exists(targetPath); err != nil {
		return fmt.Errorf("check target: %w", err)
	} else if exists {
		if _, err := s.Create(targetPath); err != nil {
			return err
		}
	}

	if err := s.storage.CopyFile(backupPath, targetPath, 0o600); err != nil {
		return fmt.Errorf("%w: restore: %v", domain.ErrWriteFailed, err)
	}
	if err := s.storage.Chmod(targetPath, 0o600); err != nil {
		return fmt.Errorf("%w: harden restored target: %v", domain.ErrPermission, err)
	}
	s.logger.Info("backup restored", "backup", backupPath, "target", targetPath)
	return nil
}

// enforceRetention deletes the oldest backups of base beyond the retention
// count. Deletion failures are swallowed; a stuck file must not abort the
// surrounding operation.
func (s *Service) enforceRetention(base string) {
	matches, err := s.storage.Glob(filepath.Join(s.backupDir, base+".backup.*"))
	if err != nil {
		s.logger.Warn("retention scan failed", "error", err)
		return
	}

	type aged struct {
		path    string
		modTime time.Time
	}
	var backups []aged
	for _, match := range matches {
		info, err := s.storage.Stat(match)
		if err != nil {
			continue
		}
		backups = append(backups, aged{path: match, modTime: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].modTime.After(backups[j].modTime)
		}
		return backups[i].path > backups[j].path
	})

	if len(backups) <= s.keep {
		return
	}
	for _, old := range backups[s.keep:] {
		if err := s.storage.Remove(old.path); err != nil {
			s.logger.Warn("failed to delete old backup", "path", old.path, "error", err)
			continue
		}
		s.logger.Debug("old backup deleted", "path", old.path)
	}
}

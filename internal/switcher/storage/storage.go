package storage

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Storage provides low-level file operations on top of an afero filesystem.
type Storage struct {
	fs afero.Fs
}

// New creates a new Storage instance.
func New(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// FileSystem returns the underlying filesystem.
func (s *Storage) FileSystem() afero.Fs {
	return s.fs
}

// ReadFile reads the entire file.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// WriteFile writes data to a file with the given permissions.
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(s.fs, path, data, perm)
}

// WriteFileAtomic writes data to a sibling temporary file and renames it over
// path. The temp file lives in the same directory so the rename stays on one
// filesystem, and its name carries the process id to avoid collisions between
// concurrent invocations.
func (s *Storage) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := afero.WriteFile(s.fs, tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// CopyFile copies src to dst atomically, preserving the source's modification
// time when it can be read.
func (s *Storage) CopyFile(src, dst string, perm os.FileMode) error {
	data, err := afero.ReadFile(s.fs, src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := s.WriteFileAtomic(dst, data, perm); err != nil {
		return err
	}
	if info, err := s.fs.Stat(src); err == nil {
		// Best effort; retention decisions read mtimes, not names.
		s.fs.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return nil
}

// Exists checks if a path exists.
func (s *Storage) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Stat returns file information.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

// MkdirAll creates a directory and any missing parents.
func (s *Storage) MkdirAll(path string, perm os.FileMode) error {
	return s.fs.MkdirAll(path, perm)
}

// ReadDir reads directory contents.
func (s *Storage) ReadDir(path string) ([]os.FileInfo, error) {
	return afero.ReadDir(s.fs, path)
}

// Glob returns the paths matching pattern.
func (s *Storage) Glob(pattern string) ([]string, error) {
	return afero.Glob(s.fs, pattern)
}

// Remove deletes a file.
func (s *Storage) Remove(path string) error {
	return s.fs.Remove(path)
}

// Chmod changes a file's permission bits.
func (s *Storage) Chmod(path string, perm os.FileMode) error {
	return s.fs.Chmod(path, perm)
}

// Chtimes changes file access and modification times.
func (s *Storage) Chtimes(path string, atime, mtime time.Time) error {
	return s.fs.Chtimes(path, atime, mtime)
}

package locator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/paths"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

// Locator finds profile files across an ordered list of search directories.
type Locator struct {
	storage *storage.Storage
}

// New creates a new Locator.
func New(st *storage.Storage) *Locator {
	return &Locator{storage: st}
}

// Find returns the path of the first directory containing the profile's
// expected file. In explicit single-directory mode the legacy {name}.json
// filename is accepted as a fallback. A miss across all directories yields
// domain.ErrProfileNotFound.
func (l *Locator) Find(name string, dirs []paths.Dir) (string, error) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir.Path, paths.ProfileFileName(name))
		if exists, err := l.storage.Exists(candidate); err != nil {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		} else if exists {
			return candidate, nil
		}

		if dir.Source == paths.SourceExplicit {
			legacy := filepath.Join(dir.Path, name+".json")
			if exists, err := l.storage.Exists(legacy); err != nil {
				return "", fmt.Errorf("check %s: %w", legacy, err)
			} else if exists {
				return legacy, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrProfileNotFound, name)
}

// Entry describes one discovered profile. Source is the tag of the
// precedence tier that produced the match; it is display-only.
type Entry struct {
	Name   string
	Path   string
	Source string
}

// ListAll globs each directory for profile files. A name discovered in an
// earlier directory masks same-named files in later directories. The result
// is sorted by name and recomputed on every call.
func (l *Locator) ListAll(dirs []paths.Dir) ([]Entry, error) {
	seen := map[string]struct{}{}
	var entries []Entry

	for _, dir := range dirs {
		matches, err := l.storage.Glob(filepath.Join(dir.Path, "*"+paths.ProfileSuffix))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir.Path, err)
		}
		for _, match := range matches {
			name := strings.TrimSuffix(filepath.Base(match), paths.ProfileSuffix)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			entries = append(entries, Entry{Name: name, Path: match, Source: dir.Source})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

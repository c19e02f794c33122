package locator

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/paths"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

func newTestLocator(t *testing.T) (*Locator, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(storage.New(fs)), fs
}

func writeProfile(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(`{"env":{}}`), 0o644); err != nil {
		t.Fatalf("setup %s: %v", path, err)
	}
}

func TestFind_FirstMatchWins(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/env/deepseek_settings.json")
	writeProfile(t, fs, "/global/deepseek_settings.json")

	dirs := []paths.Dir{
		{Path: "/env", Source: paths.SourceEnv},
		{Path: "/global", Source: paths.SourceGlobal},
		{Path: "/cwd", Source: paths.SourceLocal},
	}
	path, err := loc.Find("deepseek", dirs)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != "/env/deepseek_settings.json" {
		t.Errorf("Find = %q, want the env-tier match", path)
	}
}

func TestFind_LaterDirectoryUsedWhenEarlierMisses(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/cwd/qwen_settings.json")

	dirs := []paths.Dir{
		{Path: "/global", Source: paths.SourceGlobal},
		{Path: "/cwd", Source: paths.SourceLocal},
	}
	path, err := loc.Find("qwen", dirs)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != "/cwd/qwen_settings.json" {
		t.Errorf("Find = %q", path)
	}
}

func TestFind_NotFound(t *testing.T) {
	loc, _ := newTestLocator(t)
	dirs := []paths.Dir{{Path: "/nowhere", Source: paths.SourceGlobal}}
	_, err := loc.Find("missing", dirs)
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestFind_LegacyFallbackOnlyInExplicitMode(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/dir/glm.json")

	explicit := []paths.Dir{{Path: "/dir", Source: paths.SourceExplicit}}
	path, err := loc.Find("glm", explicit)
	if err != nil {
		t.Fatalf("Find in explicit mode failed: %v", err)
	}
	if path != "/dir/glm.json" {
		t.Errorf("Find = %q, want legacy fallback", path)
	}

	// The same file must not match through a non-explicit tier.
	global := []paths.Dir{{Path: "/dir", Source: paths.SourceGlobal}}
	if _, err := loc.Find("glm", global); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("legacy filename must not match in global mode, got %v", err)
	}
}

func TestFind_ExplicitPrefersStandardName(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/dir/glm_settings.json")
	writeProfile(t, fs, "/dir/glm.json")

	explicit := []paths.Dir{{Path: "/dir", Source: paths.SourceExplicit}}
	path, err := loc.Find("glm", explicit)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != "/dir/glm_settings.json" {
		t.Errorf("Find = %q, standard name should win over legacy", path)
	}
}

func TestListAll_EarlierDirectoryMasksLater(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/env/deepseek_settings.json")
	writeProfile(t, fs, "/global/deepseek_settings.json")
	writeProfile(t, fs, "/global/qwen_settings.json")
	writeProfile(t, fs, "/cwd/kimi_settings.json")

	dirs := []paths.Dir{
		{Path: "/env", Source: paths.SourceEnv},
		{Path: "/global", Source: paths.SourceGlobal},
		{Path: "/cwd", Source: paths.SourceLocal},
	}
	entries, err := loc.ListAll(dirs)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}

	// Sorted by name: deepseek, kimi, qwen.
	if entries[0].Name != "deepseek" || entries[0].Source != paths.SourceEnv {
		t.Errorf("deepseek should come from the env tier: %+v", entries[0])
	}
	if entries[0].Path != "/env/deepseek_settings.json" {
		t.Errorf("masked duplicate leaked: %+v", entries[0])
	}
	if entries[1].Name != "kimi" || entries[1].Source != paths.SourceLocal {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
	if entries[2].Name != "qwen" || entries[2].Source != paths.SourceGlobal {
		t.Errorf("unexpected entry: %+v", entries[2])
	}
}

func TestListAll_MissingDirectoriesSkipped(t *testing.T) {
	loc, fs := newTestLocator(t)
	writeProfile(t, fs, "/cwd/a_settings.json")

	dirs := []paths.Dir{
		{Path: "/does-not-exist", Source: paths.SourceEnv},
		{Path: "/cwd", Source: paths.SourceLocal},
	}
	entries, err := loc.ListAll(dirs)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "a" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

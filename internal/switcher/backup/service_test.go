package backup

// Tests for timestamped backups, count-based retention and restore.
// Retention decisions use modification times, not filenames.

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
	"github.com/hugolld/cc-api-switcher/internal/switcher/storage"
)

const testTarget = "/home/user/.claude/settings.json"

func newTestService(t *testing.T, keep int) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc := New(storage.New(fs), "/backups", keep, nil)
	svc.SetNow(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc, fs
}

func writeTarget(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, testTarget, []byte(content), 0o600); err != nil {
		t.Fatalf("setup target: %v", err)
	}
}

func TestCreate_MissingTarget(t *testing.T) {
	svc, fs := newTestService(t, 10)

	path, err := svc.Create(testTarget)
	if err != nil {
		t.Fatalf("Create should not error for a missing target: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
	entries, _ := afero.ReadDir(fs, "/backups")
	if len(entries) != 0 {
		t.Errorf("no backup should be created, found %d", len(entries))
	}
}

func TestCreate_NamingAndContent(t *testing.T) {
	svc, fs := newTestService(t, 10)
	writeTarget(t, fs, `{"env":{}}`)

	path, err := svc.Create(testTarget)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	want := "/backups/settings.json.backup.20240601_120000"
	if path != want {
		t.Errorf("backup path = %q, want %q", path, want)
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(content) != `{"env":{}}` {
		t.Errorf("backup content mismatch: %q", string(content))
	}
}

func TestCreate_PreservesSourceModTime(t *testing.T) {
	svc, fs := newTestService(t, 10)
	writeTarget(t, fs, "data")
	srcTime := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	if err := fs.Chtimes(testTarget, srcTime, srcTime); err != nil {
		t.Fatalf("set mtime: %v", err)
	}

	path, err := svc.Create(testTarget)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if !info.ModTime().Equal(srcTime) {
		t.Errorf("backup mtime = %v, want source mtime %v", info.ModTime(), srcTime)
	}
}

func TestRetention_EvictsOldestByModTime(t *testing.T) {
	const keep = 3
	svc, fs := newTestService(t, keep)
	writeTarget(t, fs, "content")

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < keep+2; i++ {
		stamp := base.Add(time.Duration(i) * time.Minute)
		svc.SetNow(func() time.Time { return stamp })
		// Keep target mtime in lockstep so preserved mtimes order the backups.
		if err := fs.Chtimes(testTarget, stamp, stamp); err != nil {
			t.Fatalf("set target mtime: %v", err)
		}
		if _, err := svc.Create(testTarget); err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
	}

	records, err := svc.List(testTarget)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != keep {
		t.Fatalf("expected %d backups after retention, got %d", keep, len(records))
	}
	// The survivors are the most recently modified ones.
	for i, record := range records {
		wantStamp := base.Add(time.Duration(keep+1-i) * time.Minute)
		if !record.ModTime.Equal(wantStamp) {
			t.Errorf("records[%d].ModTime = %v, want %v", i, record.ModTime, wantStamp)
		}
	}
}

func TestRetention_IndependentPerTarget(t *testing.T) {
	svc, fs := newTestService(t, 1)
	writeTarget(t, fs, "a")
	other := "/home/user/.claude/other.json"
	if err := afero.WriteFile(fs, other, []byte("b"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := svc.Create(testTarget); err != nil {
		t.Fatalf("Create target: %v", err)
	}
	if _, err := svc.Create(other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	entries, _ := afero.ReadDir(fs, "/backups")
	if len(entries) != 2 {
		t.Errorf("retention must be scoped per target basename, got %d files", len(entries))
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc, fs := newTestService(t, 10)

	times := []time.Time{
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	for i, stamp := range times {
		path := fmt.Sprintf("/backups/settings.json.backup.2024060%d", i)
		if err := afero.WriteFile(fs, path, []byte("x"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := fs.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("set mtime: %v", err)
		}
	}

	records, err := svc.List(testTarget)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].ModTime.After(records[i-1].ModTime) {
			t.Errorf("records not sorted newest first: %v before %v", records[i-1].ModTime, records[i].ModTime)
		}
	}
}

func TestList_IgnoresUnrelatedFiles(t *testing.T) {
	svc, fs := newTestService(t, 10)
	for _, name := range []string{
		"settings.json.backup.20240601_120000",
		"other.json.backup.20240601_120000",
		"notes.txt",
	} {
		if err := afero.WriteFile(fs, filepath.Join("/backups", name), []byte("x"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	records, err := svc.List(testTarget)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(records), records)
	}
	if !strings.HasPrefix(filepath.Base(records[0].Path), "settings.json.backup.") {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	svc, fs := newTestService(t, 10)
	writeTarget(t, fs, "original")

	err := svc.Restore("/backups/settings.json.backup.29991231_235959", testTarget)
	if err == nil {
		t.Fatal("expected error for missing backup")
	}
	if !errors.Is(err, domain.ErrBackupNotFound) {
		t.Errorf("expected ErrBackupNotFound, got %v", err)
	}

	content, _ := afero.ReadFile(fs, testTarget)
	if string(content) != "original" {
		t.Error("target must be left untouched when the backup is missing")
	}
}

func TestRestore_BacksUpCurrentTargetFirst(t *testing.T) {
	svc, fs := newTestService(t, 10)
	writeTarget(t, fs, "current")

	backupPath := "/backups/settings.json.backup.20240101_000000"
	if err := afero.WriteFile(fs, backupPath, []byte("older"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.Restore(backupPath, testTarget); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	content, _ := afero.ReadFile(fs, testTarget)
	if string(content) != "older" {
		t.Errorf("target content = %q, want restored bytes", string(content))
	}

	// The pre-restore target was snapshotted, so the restore is undoable.
	entries, _ := afero.ReadDir(fs, "/backups")
	if len(entries) != 2 {
		t.Fatalf("expected the original backup plus a new snapshot, got %d files", len(entries))
	}
	snapshot := "/backups/settings.json.backup.20240601_120000"
	data, err := afero.ReadFile(fs, snapshot)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != "current" {
		t.Errorf("snapshot content = %q, want pre-restore target", string(data))
	}
}

func TestRestore_NoTargetYet(t *testing.T) {
	svc, fs := newTestService(t, 10)
	backupPath := "/backups/settings.json.backup.20240101_000000"
	if err := afero.WriteFile(fs, backupPath, []byte("older"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.Restore(backupPath, testTarget); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	content, _ := afero.ReadFile(fs, testTarget)
	if string(content) != "older" {
		t.Errorf("target content = %q", string(content))
	}
}

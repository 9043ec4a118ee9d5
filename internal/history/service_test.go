package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reedfamily/bdspanel/internal/db"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "panel.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	return NewService(database, filepath.Join(dir, "old_logs")), dir
}

func TestArchiveMovesAndResetsLog(t *testing.T) {
	svc, dir := newService(t)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 13, 4, 5, 0, time.Local) }

	logPath := filepath.Join(dir, "server_log.txt")
	content := "Player connected: Alice, xuid: 1\n"
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := svc.Archive(logPath)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !strings.HasPrefix(a.Filename, "server_log_2024-05-01_13-04-05_") {
		t.Errorf("Filename = %q", a.Filename)
	}
	if a.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", a.SizeBytes, len(content))
	}

	archived, err := os.ReadFile(filepath.Join(svc.Dir(), a.Filename))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if string(archived) != content {
		t.Errorf("archive content = %q, want %q", archived, content)
	}

	live, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("live log missing after archive: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("live log not reset: %q", live)
	}
}

func TestArchiveRecordedWhenResetFails(t *testing.T) {
	svc, dir := newService(t)
	readOnly := errors.New("read-only file system")
	svc.resetLog = func(string) error { return readOnly }

	logPath := filepath.Join(dir, "server_log.txt")
	if err := os.WriteFile(logPath, []byte("Player connected: Alice, xuid: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := svc.Archive(logPath)
	if !errors.Is(err, readOnly) {
		t.Fatalf("Archive err = %v, want the reset error", err)
	}
	if a == nil {
		t.Fatal("Archive returned no archive for a moved log")
	}
	list, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("List = %+v, want the moved log recorded", list)
	}
	if _, err := os.Stat(filepath.Join(svc.Dir(), a.Filename)); err != nil {
		t.Errorf("archived file: %v", err)
	}
}

func TestArchiveNamesAreUnique(t *testing.T) {
	svc, dir := newService(t)
	fixed := time.Date(2024, 5, 1, 13, 4, 5, 0, time.Local)
	svc.now = func() time.Time { return fixed }

	logPath := filepath.Join(dir, "server_log.txt")
	names := map[string]bool{}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(logPath, []byte("line\n"), 0644); err != nil {
			t.Fatal(err)
		}
		a, err := svc.Archive(logPath)
		if err != nil {
			t.Fatalf("Archive: %v", err)
		}
		if names[a.Filename] {
			t.Fatalf("duplicate archive name %q", a.Filename)
		}
		names[a.Filename] = true
	}

	list, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("List returned %d archives, want 3", len(list))
	}
}

func TestArchiveMissingLog(t *testing.T) {
	svc, dir := newService(t)
	a, err := svc.Archive(filepath.Join(dir, "server_log.txt"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if a != nil {
		t.Errorf("Archive = %+v, want nil", a)
	}
}

func TestDelete(t *testing.T) {
	svc, dir := newService(t)
	logPath := filepath.Join(dir, "server_log.txt")
	if err := os.WriteFile(logPath, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := svc.Archive(logPath)
	if err != nil {
		t.Fatal(err)
	}
	path, err := svc.FilePath(a.ID)
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}

	if err := svc.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("archive file still present: %v", err)
	}
	if _, err := svc.FilePath(a.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("FilePath after delete err = %v, want sql.ErrNoRows", err)
	}
}

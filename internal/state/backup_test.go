// internal/state/backup_test.go
package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupRunOnce(t *testing.T) {
	dir := t.TempDir()
	store := Open(dir)
	defer store.Close()

	if err := store.Create(newSession("a")); err != nil {
		t.Fatal(err)
	}

	b := NewBackupScheduler(store, "@hourly", 3)
	if err := b.RunOnce(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(entries))
	}
}

func TestBackupPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	store := Open(dir)
	defer store.Close()
	if err := store.Create(newSession("a")); err != nil {
		t.Fatal(err)
	}

	b := NewBackupScheduler(store, "@hourly", 2)

	// Fake a set of old backups; timestamped names sort chronologically.
	backupDir := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"sessions-20200101-000000.json",
		"sessions-20200102-000000.json",
		"sessions-20200103-000000.json",
	} {
		if err := os.WriteFile(filepath.Join(backupDir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.RunOnce(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 backups after prune, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Name() == "sessions-20200101-000000.json" || e.Name() == "sessions-20200102-000000.json" {
			t.Errorf("expected oldest backups pruned, found %s", e.Name())
		}
	}
}

func TestBackupInvalidSchedule(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	b := NewBackupScheduler(store, "not a schedule", 2)
	if err := b.Start(); err == nil {
		b.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

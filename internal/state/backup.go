// internal/state/backup.go
package state

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// BackupScheduler periodically copies the sessions snapshot into a backups
// directory, keeping the newest N copies. Backups are a convenience on top
// of the single-file store, not a durability guarantee.
type BackupScheduler struct {
	store    *Store
	dir      string
	schedule string
	keep     int
	cron     *cron.Cron
}

// NewBackupScheduler creates a scheduler for the given store. schedule is a
// cron expression; keep is the number of backup files retained.
func NewBackupScheduler(store *Store, schedule string, keep int) *BackupScheduler {
	return &BackupScheduler{
		store:    store,
		dir:      filepath.Join(store.root, "backups"),
		schedule: schedule,
		keep:     keep,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the backup job and starts the cron ticker.
func (b *BackupScheduler) Start() error {
	_, err := b.cron.AddFunc(b.schedule, func() {
		if err := b.RunOnce(); err != nil {
			slog.Error("session backup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", b.schedule, err)
	}
	b.cron.Start()
	return nil
}

// Stop stops the cron ticker.
func (b *BackupScheduler) Stop() {
	b.cron.Stop()
}

// RunOnce flushes the store and writes one timestamped backup, then prunes
// backups beyond the keep count.
func (b *BackupScheduler) RunOnce() error {
	if err := b.store.Flush(); err != nil {
		return fmt.Errorf("flush before backup: %w", err)
	}

	data, err := os.ReadFile(b.store.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sessions snapshot: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create backups dir: %w", err)
	}

	name := fmt.Sprintf("sessions-%s.json", time.Now().Format("20060102-150405"))
	if err := os.WriteFile(filepath.Join(b.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	return b.prune()
}

func (b *BackupScheduler) prune() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) <= b.keep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-b.keep] {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil {
			slog.Warn("prune backup", "name", name, "error", err)
		}
	}
	return nil
}

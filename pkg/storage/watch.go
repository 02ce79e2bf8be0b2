package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Watch follows writes made to the database file by other processes (for
// example the CLI editing intentions while the server runs) and notifies
// subscribers of the keys they changed. It blocks until ctx is done.
func (d *DB) Watch(ctx context.Context, log Logger) error {
	if log == nil {
		log = nopLogger{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	// SQLite in WAL mode writes to sibling files, so watch the directory.
	dir := filepath.Dir(d.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	base := filepath.Base(d.path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Settings watcher error: %v", err)
		case <-pending:
			pending = nil
			if err := d.refresh(ctx); err != nil {
				log.Warnf("Could not reload settings after external change: %v", err)
				continue
			}
			log.Debugf("Reloaded settings from %s", d.path)
		}
	}
}

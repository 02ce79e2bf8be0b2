package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 100 * time.Millisecond
)

// DBLock serializes writers of the settings database across intender
// processes. The lock lives next to the database as <db>.lock.
type DBLock struct {
	flock *flock.Flock
}

func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	return &DBLock{flock: flock.New(absPath + lockFileSuffix)}, nil
}

// Path returns the lock file path.
func (l *DBLock) Path() string {
	return l.flock.Path()
}

// Lock acquires the lock, waiting until ctx is done if another process
// holds it.
func (l *DBLock) Lock(ctx context.Context) error {
	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.Path(), err)
	}
	if locked {
		return nil
	}

	Log.Infof("Settings database is being written by another intender process, waiting")
	locked, err = l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", l.Path(), err)
	}
	if !locked {
		return fmt.Errorf("waiting for %s: lock not acquired", l.Path())
	}
	return nil
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *DBLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.Path(), err)
	}
	return nil
}

// WithDBLock runs fn while holding the write lock of the database at dbPath.
func WithDBLock(ctx context.Context, dbPath string, fn func() error) error {
	lock, err := NewDBLock(dbPath)
	if err != nil {
		return err
	}
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			Log.Warnf("%v", err)
		}
	}()
	return fn()
}

// GetAbsDBPath resolves the database path, defaulting to
// ~/.config/intender/intender.sqlite. A leading ~ is expanded.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "intender", "intender.sqlite"), nil
	}
	expanded, err := homedir.Expand(dbPath)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

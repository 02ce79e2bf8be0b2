package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/storage"
)

// resolveDBPath returns the absolute settings database path and makes sure
// its directory exists.
func resolveDBPath() (string, error) {
	path, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return "", fmt.Errorf("could not resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func openStore() (*storage.DB, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	utils.Log.Debugf("Using settings database %s", path)
	return db, nil
}

// withStore runs fn against the settings database. Writers hold the
// database lock for the whole read-modify-write cycle.
func withStore(ctx context.Context, write bool, fn func(db *storage.DB) error) error {
	run := func() error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(db)
	}
	if !write {
		return run()
	}

	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	return utils.WithDBLock(ctx, path, run)
}

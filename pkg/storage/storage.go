package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// DB is a Store backed by a SQLite key-value table.
type DB struct {
	notifier

	sql  *sql.DB
	path string

	// last holds the values this process has seen most recently, so that
	// Watch only reports changes made elsewhere.
	mu   sync.Mutex
	last map[string]string
}

var _ Store = (*DB)(nil)

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS settings (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `); err != nil {
		db.Close()
		return nil, err
	}

	d := &DB{sql: db, path: path}
	values, err := d.readValues(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	d.last = values
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Get(ctx context.Context) (Settings, error) {
	values, err := d.readValues(ctx)
	if err != nil {
		return Settings{}, err
	}
	return decodeSettings(values)
}

func (d *DB) Set(ctx context.Context, p Patch) error {
	encoded, err := p.encode()
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	before := make(map[string]string, len(encoded))
	for k := range encoded {
		var v string
		err = tx.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", k).Scan(&v)
		switch {
		case err == sql.ErrNoRows:
			err = nil
		case err != nil:
			return err
		default:
			before[k] = v
		}
	}

	changed := changedKeys(before, encoded)
	for _, k := range changed {
		_, err = tx.ExecContext(ctx, `INSERT INTO settings(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, k, encoded[k])
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	d.mu.Lock()
	for _, k := range changed {
		d.last[k] = encoded[k]
	}
	d.mu.Unlock()

	d.notify(changed)
	return nil
}

// refresh re-reads the table and notifies subscribers about keys that
// changed since the last read or write of this process.
func (d *DB) refresh(ctx context.Context) error {
	values, err := d.readValues(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	changed := changedKeys(d.last, values)
	d.last = values
	d.mu.Unlock()

	d.notify(changed)
	return nil
}

func (d *DB) readValues(ctx context.Context) (map[string]string, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}

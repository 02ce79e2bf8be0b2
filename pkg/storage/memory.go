package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store, used by tests and by the engine when no
// database is configured.
type Memory struct {
	notifier

	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store that reports the defaults.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	values := make(map[string]string, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	m.mu.Unlock()
	return decodeSettings(values)
}

func (m *Memory) Set(ctx context.Context, p Patch) error {
	encoded, err := p.encode()
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed := changedKeys(m.values, encoded)
	for k, v := range encoded {
		m.values[k] = v
	}
	m.mu.Unlock()

	m.notify(changed)
	return nil
}

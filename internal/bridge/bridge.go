// Package bridge connects the engine to the browser-side event source. The
// browser posts events and polls for the commands the engine queued.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sw33tLie/intender/pkg/engine"
)

// ErrUnknownTab is returned when navigating a tab that is closed or was
// never reported.
var ErrUnknownTab = errors.New("bridge: unknown tab")

const (
	CommandNavigate = "navigate"

	defaultQueueSize = 256
)

// Command is an instruction for the browser side.
type Command struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// Bridge implements engine.Browser from the events it observes.
type Bridge struct {
	mu        sync.Mutex
	tabs      map[int]string
	active    int
	hasActive bool
	queue     []Command
	max       int
	wake      chan struct{}
}

var _ engine.Browser = (*Bridge)(nil)

// New returns an empty bridge.
func New() *Bridge {
	return &Bridge{
		tabs: make(map[int]string),
		max:  defaultQueueSize,
		wake: make(chan struct{}),
	}
}

// Observe updates the bridge's view of the browser. Call it for every event
// before handing the event to the engine.
func (b *Bridge) Observe(ev engine.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := ev.(type) {
	case engine.TabCreated:
		b.tabs[e.TabID] = e.URL
	case engine.TabRemoved:
		delete(b.tabs, e.TabID)
		if b.hasActive && b.active == e.TabID {
			b.hasActive = false
		}
	case engine.TabFocused:
		b.active, b.hasActive = e.TabID, true
		if _, ok := b.tabs[e.TabID]; !ok {
			b.tabs[e.TabID] = ""
		}
	case engine.BeforeNavigate:
		if _, ok := b.tabs[e.TabID]; !ok {
			b.tabs[e.TabID] = ""
		}
	case engine.NavigationCommitted:
		if e.FrameID == engine.TopFrame {
			b.tabs[e.TabID] = e.URL
		}
	case engine.TabUpdated:
		if _, ok := b.tabs[e.TabID]; !ok {
			b.tabs[e.TabID] = ""
		}
	}
}

// ActiveTab returns the last focused tab that is still open.
func (b *Bridge) ActiveTab(ctx context.Context) (engine.Tab, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasActive {
		return engine.Tab{}, false, nil
	}
	return engine.Tab{ID: b.active, URL: b.tabs[b.active]}, true, nil
}

// Navigate queues a navigate command for tabID.
func (b *Bridge) Navigate(ctx context.Context, tabID int, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[tabID]; !ok {
		return fmt.Errorf("navigate tab %d: %w", tabID, ErrUnknownTab)
	}
	b.queue = append(b.queue, Command{
		ID:    uuid.NewString(),
		Type:  CommandNavigate,
		TabID: tabID,
		URL:   url,
	})
	if len(b.queue) > b.max {
		b.queue = b.queue[len(b.queue)-b.max:]
	}
	close(b.wake)
	b.wake = make(chan struct{})
	return nil
}

// Drain removes and returns all queued commands.
func (b *Bridge) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmds := b.queue
	b.queue = nil
	return cmds
}

// Wait drains the queue, blocking until a command arrives or ctx is done.
func (b *Bridge) Wait(ctx context.Context) ([]Command, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			cmds := b.queue
			b.queue = nil
			b.mu.Unlock()
			return cmds, nil
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

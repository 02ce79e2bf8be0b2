package storage

import "sync"

// notifier fans out changed keys to subscribers.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]string)
}

func (n *notifier) Subscribe(fn func(changed []string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func([]string))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// notify calls subscribers outside the lock so they may call back into the
// store.
func (n *notifier) notify(changed []string) {
	if len(changed) == 0 {
		return
	}
	n.mu.Lock()
	subs := make([]func([]string), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(changed)
	}
}

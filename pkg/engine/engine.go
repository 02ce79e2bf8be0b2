// Package engine decides, for every browser event, whether a navigation may
// proceed or must be sent through the reflection page first.
//
// A Coordinator owns all per-tab and per-intention state. Events are handled
// one at a time: either directly through Handle from a single goroutine, or
// through Submit while Run drives the loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sw33tLie/intender/pkg/index"
	"github.com/sw33tLie/intender/pkg/storage"
)

// ErrStopped is returned by Submit once Run has returned.
var ErrStopped = errors.New("engine: coordinator stopped")

// Config wires a Coordinator to its environment.
type Config struct {
	// ReflectionURL is the absolute URL of the reflection page.
	ReflectionURL string
	Browser       Browser
	Store         storage.Store
	Log           Logger
	Metrics       *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is an immutable view of the settings and the index built from
// them.
type Snapshot struct {
	Settings storage.Settings
	Index    *index.Index
}

type envelope struct {
	ctx   context.Context
	ev    Event
	reply chan Decision
}

// Coordinator is the decision engine.
type Coordinator struct {
	browser    Browser
	store      storage.Store
	log        Logger
	metrics    *Metrics
	now        func() time.Time
	reflection reflectionPage

	snap atomic.Pointer[Snapshot]

	// Owned by the goroutine handling events.
	tabs     map[int]string
	activity *activity

	inbox chan envelope
	done  chan struct{}
}

// New returns a Coordinator with an empty index and default settings. Call
// Reload before handling events to install the stored intentions.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Browser == nil {
		return nil, errors.New("engine: browser is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	page, err := newReflectionPage(cfg.ReflectionURL)
	if err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Coordinator{
		browser:    cfg.Browser,
		store:      cfg.Store,
		log:        cfg.Log,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		reflection: page,
		tabs:       make(map[int]string),
		activity:   newActivity(),
		inbox:      make(chan envelope, 64),
		done:       make(chan struct{}),
	}
	c.snap.Store(&Snapshot{Settings: storage.DefaultSettings(), Index: index.Empty()})
	return c, nil
}

// Snapshot returns the settings and index currently in effect. It is safe
// to call from any goroutine.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Reload reads the settings and replaces the index atomically. On failure
// the previous snapshot stays in effect.
func (c *Coordinator) Reload(ctx context.Context) error {
	settings, err := c.store.Get(ctx)
	if err != nil {
		c.metrics.reloaded(0, err)
		return fmt.Errorf("loading settings: %w", err)
	}
	idx := index.Build(settings.Intentions)
	c.snap.Store(&Snapshot{Settings: settings, Index: idx})
	c.metrics.reloaded(idx.Len(), nil)
	c.log.Infof("Loaded %d intention(s) across %d domain(s)", idx.Len(), len(idx.Domains()))
	return nil
}

// Subscribe reloads the coordinator whenever the store reports a change.
func (c *Coordinator) Subscribe() (unsubscribe func()) {
	return c.store.Subscribe(func(changed []string) {
		c.log.Debugf("Settings changed: %v", changed)
		if err := c.Reload(context.Background()); err != nil {
			c.log.Errorf("Reload failed, keeping previous intentions: %v", err)
		}
	})
}

// Run handles submitted events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-c.inbox:
			d := c.Handle(env.ctx, env.ev)
			env.reply <- d
		}
	}
}

// Submit queues ev for the Run loop and waits for its decision.
func (c *Coordinator) Submit(ctx context.Context, ev Event) (Decision, error) {
	select {
	case <-c.done:
		return Decision{}, ErrStopped
	default:
	}
	env := envelope{ctx: ctx, ev: ev, reply: make(chan Decision, 1)}
	select {
	case c.inbox <- env:
	case <-c.done:
		return Decision{}, ErrStopped
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
	select {
	case d := <-env.reply:
		return d, nil
	case <-c.done:
		return Decision{}, ErrStopped
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// Handle processes a single event. It must not be called concurrently.
func (c *Coordinator) Handle(ctx context.Context, ev Event) Decision {
	c.metrics.observeEvent(ev)
	var d Decision
	switch e := ev.(type) {
	case BeforeNavigate:
		d = c.beforeNavigate(ctx, e)
	case NavigationCommitted:
		d = c.committed(e)
	case TabCreated:
		if e.URL != "" {
			c.tabs[e.TabID] = e.URL
		}
		d = allow(RuleNone)
	case TabRemoved:
		delete(c.tabs, e.TabID)
		c.activity.removeTab(e.TabID)
		d = allow(RuleNone)
	case TabUpdated:
		d = c.audibleChanged(e)
	case TabFocused:
		d = c.checkTab(ctx, e.TabID, "")
	case IdleStateChanged:
		if e.State != IdleActive {
			c.log.Debugf("Idle state is %s", e.State)
			d = allow(RuleNone)
			break
		}
		d = c.checkActiveTab(ctx)
	case InactivityCheck:
		d = c.checkActiveTab(ctx)
	case ReflectionCompleted:
		d = c.reflectionCompleted(e)
	default:
		c.log.Warnf("Ignoring unknown event %T", ev)
		d = allow(RuleNone)
	}
	c.metrics.observeDecision(d)
	return d
}

// redirect sends tabID to the reflection page for intentionID.
func (c *Coordinator) redirect(ctx context.Context, tabID int, target, intentionID string, rule Rule) Decision {
	dest := c.reflection.build(target, intentionID)
	c.activity.assign(tabID, intentionID, c.now())
	if err := c.browser.Navigate(ctx, tabID, dest); err != nil {
		c.metrics.redirectFailed()
		c.log.Warnf("Redirect of tab %d to reflection page failed: %v", tabID, err)
	}
	c.log.Debugf("Tab %d: %s -> reflection (%s, intention %s)", tabID, target, rule, intentionID)
	return Decision{Action: ActionRedirect, Rule: rule, IntentionID: intentionID, RedirectURL: dest}
}

// IsReflectionURL reports whether raw points at the reflection page.
func (c *Coordinator) IsReflectionURL(raw string) bool {
	return c.reflection.is(raw)
}

// ReflectionURL builds the reflection page URL for target and intentionID.
func (c *Coordinator) ReflectionURL(target, intentionID string) string {
	return c.reflection.build(target, intentionID)
}

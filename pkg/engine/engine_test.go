package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/intender/pkg/intention"
	"github.com/sw33tLie/intender/pkg/storage"
)

const reflectURL = "http://127.0.0.1:7777/reflect"

type navigation struct {
	TabID int
	URL   string
}

type fakeBrowser struct {
	mu          sync.Mutex
	active      Tab
	hasActive   bool
	activeErr   error
	navigateErr error
	navigations []navigation
}

func (b *fakeBrowser) ActiveTab(ctx context.Context) (Tab, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, b.hasActive, b.activeErr
}

func (b *fakeBrowser) Navigate(ctx context.Context, tabID int, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigations = append(b.navigations, navigation{TabID: tabID, URL: url})
	return b.navigateErr
}

func (b *fakeBrowser) focus(id int, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active, b.hasActive = Tab{ID: id, URL: url}, true
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) Get(ctx context.Context) (storage.Settings, error) {
	return storage.Settings{}, s.err
}

var testIntentions = []intention.Raw{
	{ID: "google", URL: "google.com", Phrase: "search one thing"},
	{ID: "maps", URL: "google.com/maps", Phrase: "find a place"},
	{ID: "news", URL: "news.ycombinator.com", Phrase: "read one story"},
}

type harness struct {
	c       *Coordinator
	browser *fakeBrowser
	store   *storage.Memory
	clock   *clock
}

func newHarness(t *testing.T, mode storage.InactivityMode, timeout time.Duration) *harness {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	raws := append([]intention.Raw(nil), testIntentions...)
	ms := timeout.Milliseconds()
	require.NoError(t, store.Set(ctx, storage.Patch{
		Intentions:          &raws,
		InactivityMode:      &mode,
		InactivityTimeoutMs: &ms,
	}))

	h := &harness{
		browser: &fakeBrowser{},
		store:   store,
		clock:   &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	c, err := New(Config{
		ReflectionURL: reflectURL,
		Browser:       h.browser,
		Store:         store,
		Metrics:       NewMetrics(prometheus.NewRegistry()),
		Now:           h.clock.now,
	})
	require.NoError(t, err)
	require.NoError(t, c.Reload(ctx))
	h.c = c
	return h
}

func (h *harness) handle(ev Event) Decision {
	return h.c.Handle(context.Background(), ev)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{ReflectionURL: reflectURL, Store: storage.NewMemory()})
	assert.Error(t, err)
	_, err = New(Config{ReflectionURL: reflectURL, Browser: &fakeBrowser{}})
	assert.Error(t, err)
	_, err = New(Config{ReflectionURL: "/reflect", Browser: &fakeBrowser{}, Store: storage.NewMemory()})
	assert.Error(t, err)
}

func TestBeforeNavigate_RedirectsIntoScope(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)

	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://www.google.com/search?q=go"})
	require.Equal(t, ActionRedirect, d.Action)
	assert.Equal(t, RuleIntention, d.Rule)
	assert.Equal(t, "google", d.IntentionID)

	require.Len(t, h.browser.navigations, 1)
	assert.Equal(t, 1, h.browser.navigations[0].TabID)
	assert.Equal(t, d.RedirectURL, h.browser.navigations[0].URL)

	target, id, ok := ParseReflectionURL(d.RedirectURL)
	require.True(t, ok)
	assert.Equal(t, "https://www.google.com/search?q=go", target)
	assert.Equal(t, "google", id)
	assert.True(t, h.c.IsReflectionURL(d.RedirectURL))
}

func TestBeforeNavigate_MostSpecificIntention(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)

	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://google.com/maps/place/paris"})
	assert.Equal(t, "maps", d.IntentionID)
}

func TestBeforeNavigate_Rules(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		ev    BeforeNavigate
		want  Rule
	}{
		{
			name: "subframe",
			ev:   BeforeNavigate{TabID: 1, FrameID: 3, URL: "https://google.com"},
			want: RuleNotTopFrame,
		},
		{
			name: "reflection page itself",
			ev:   BeforeNavigate{TabID: 1, URL: reflectURL + "?url=x&id=y"},
			want: RuleReflectionTarget,
		},
		{
			name: "same domain as the tab",
			setup: func(h *harness) {
				h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
			},
			ev:   BeforeNavigate{TabID: 1, URL: "https://google.com/maps"},
			want: RuleSameDomain,
		},
		{
			name: "leaving the reflection page",
			setup: func(h *harness) {
				h.handle(NavigationCommitted{TabID: 1, URL: reflectURL + "?url=https%3A%2F%2Fgoogle.com&id=google"})
			},
			ev:   BeforeNavigate{TabID: 1, URL: "https://google.com"},
			want: RuleReflectionOrigin,
		},
		{
			name: "opened from the active tab",
			setup: func(h *harness) {
				h.browser.focus(2, "https://news.ycombinator.com/")
			},
			ev:   BeforeNavigate{TabID: 5, URL: "https://news.ycombinator.com/item?id=1"},
			want: RuleActiveTabDomain,
		},
		{
			name: "active tab url comes from committed navigations",
			setup: func(h *harness) {
				h.handle(NavigationCommitted{TabID: 2, URL: "https://news.ycombinator.com/"})
				h.browser.focus(2, "")
			},
			ev:   BeforeNavigate{TabID: 5, URL: "https://news.ycombinator.com/item?id=1"},
			want: RuleActiveTabDomain,
		},
		{
			name: "no intention",
			ev:   BeforeNavigate{TabID: 1, URL: "https://example.org/"},
			want: RuleNoIntention,
		},
		{
			name: "unparseable url",
			ev:   BeforeNavigate{TabID: 1, URL: "::not a url"},
			want: RuleNoIntention,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, storage.InactivityAll, time.Minute)
			if tc.setup != nil {
				tc.setup(h)
			}
			d := h.handle(tc.ev)
			assert.Equal(t, ActionAllow, d.Action)
			assert.Equal(t, tc.want, d.Rule)
			assert.Empty(t, h.browser.navigations)
		})
	}
}

func TestBeforeNavigate_ActiveTabItselfDoesNotExempt(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.browser.focus(1, "https://google.com/")

	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://news.ycombinator.com/"})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestBeforeNavigate_ActiveTabErrorMeansNone(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.browser.activeErr = errors.New("no window")

	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://google.com"})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestBeforeNavigate_RedirectFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.browser.navigateErr = errors.New("tab closed")

	d := h.handle(BeforeNavigate{TabID: 9, URL: "https://google.com"})
	assert.Equal(t, ActionRedirect, d.Action)
	assert.Len(t, h.browser.navigations, 1)
}

func TestInactivity_RedirectsAfterTimeout(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})

	h.clock.advance(30 * time.Second)
	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, RuleInactivityRecent, d.Rule)

	h.clock.advance(2 * time.Minute)
	d = h.handle(TabFocused{TabID: 1})
	require.Equal(t, ActionRedirect, d.Action)
	assert.Equal(t, RuleInactivity, d.Rule)
	assert.Equal(t, "google", d.IntentionID)
	require.Len(t, h.browser.navigations, 1)

	// The redirect itself refreshes the scope.
	d = h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
}

func TestInactivity_FocusOutsideScope(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://example.org/"})
	h.clock.advance(time.Hour)

	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Empty(t, h.browser.navigations)
}

func TestInactivity_UnseenScopeIsFresh(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.clock.advance(time.Hour)

	d := h.handle(TabFocused{TabID: 4})
	assert.Equal(t, ActionAllow, d.Action)

	h.handle(TabCreated{TabID: 4, URL: "https://news.ycombinator.com/"})
	d = h.handle(TabFocused{TabID: 4})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, RuleInactivityRecent, d.Rule)
}

func TestInactivity_AudioExempts(t *testing.T) {
	h := newHarness(t, storage.InactivityAllExceptAudio, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://news.ycombinator.com/"})
	h.handle(NavigationCommitted{TabID: 2, URL: "https://news.ycombinator.com/item?id=2"})
	h.handle(TabUpdated{TabID: 2, Audible: true})

	h.clock.advance(10 * time.Minute)
	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, RuleInactivityExempt, d.Rule)

	h.handle(TabUpdated{TabID: 2, Audible: false})
	h.clock.advance(10 * time.Minute)
	d = h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestInactivity_AudioDoesNotExemptInModeAll(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://news.ycombinator.com/"})
	h.handle(TabUpdated{TabID: 1, Audible: true})

	h.clock.advance(10 * time.Minute)
	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestInactivity_ClosedAudibleTabStopsExempting(t *testing.T) {
	h := newHarness(t, storage.InactivityAllExceptAudio, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://news.ycombinator.com/"})
	h.handle(NavigationCommitted{TabID: 2, URL: "https://news.ycombinator.com/"})
	h.handle(TabUpdated{TabID: 2, Audible: true})
	h.handle(TabRemoved{TabID: 2})

	h.clock.advance(10 * time.Minute)
	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestInactivity_AudioStopIsNotActivity(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
	h.handle(TabCreated{TabID: 2, URL: "https://google.com/search"})

	h.clock.advance(10 * time.Minute)
	d := h.handle(TabUpdated{TabID: 2, Audible: false})
	assert.Equal(t, "google", d.IntentionID)

	d = h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestInactivity_AudioStartIsActivity(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
	h.handle(TabCreated{TabID: 2, URL: "https://google.com/"})

	h.clock.advance(10 * time.Minute)
	h.handle(TabUpdated{TabID: 2, Audible: true})

	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, RuleInactivityRecent, d.Rule)
}

func TestInactivity_Off(t *testing.T) {
	h := newHarness(t, storage.InactivityOff, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
	h.clock.advance(time.Hour)

	d := h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, RuleInactivityDisable, d.Rule)
}

func TestInactivity_HeartbeatChecksActiveTab(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
	h.clock.advance(5 * time.Minute)

	assert.Equal(t, ActionAllow, h.handle(InactivityCheck{}).Action, "no active tab")

	h.browser.focus(1, "https://google.com/")
	assert.Equal(t, ActionAllow, h.handle(IdleStateChanged{State: IdleLocked}).Action)

	d := h.handle(IdleStateChanged{State: IdleActive})
	assert.Equal(t, ActionRedirect, d.Action)

	h.clock.advance(5 * time.Minute)
	d = h.handle(InactivityCheck{})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestReflectionCompleted_RefreshesScope(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	h.handle(NavigationCommitted{TabID: 1, URL: "https://google.com/"})
	h.clock.advance(5 * time.Minute)

	d := h.handle(ReflectionCompleted{TabID: 1, IntentionID: "google"})
	assert.Equal(t, "google", d.IntentionID)

	d = h.handle(TabFocused{TabID: 1})
	assert.Equal(t, ActionAllow, d.Action)

	d = h.handle(ReflectionCompleted{TabID: 1, IntentionID: "missing"})
	assert.Empty(t, d.IntentionID)
}

func TestReload_KeepsSnapshotOnFailure(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	before := h.c.Snapshot()
	require.Equal(t, 3, before.Index.Len())

	h.c.store = failingStore{Store: h.store, err: errors.New("disk gone")}
	assert.Error(t, h.c.Reload(context.Background()))
	assert.Same(t, before, h.c.Snapshot())

	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://google.com"})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestSubscribe_ReloadsOnChange(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	unsubscribe := h.c.Subscribe()
	defer unsubscribe()

	raws := []intention.Raw{{ID: "x", URL: "example.org", Phrase: "one thing"}}
	require.NoError(t, h.store.Set(context.Background(), storage.Patch{Intentions: &raws}))

	assert.Equal(t, 1, h.c.Snapshot().Index.Len())
	d := h.handle(BeforeNavigate{TabID: 1, URL: "https://google.com"})
	assert.Equal(t, RuleNoIntention, d.Rule)
	d = h.handle(BeforeNavigate{TabID: 1, URL: "https://example.org/a"})
	assert.Equal(t, ActionRedirect, d.Action)
}

func TestRunSubmit(t *testing.T) {
	h := newHarness(t, storage.InactivityAll, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()

	d, err := h.c.Submit(context.Background(), BeforeNavigate{TabID: 1, URL: "https://google.com"})
	require.NoError(t, err)
	assert.Equal(t, ActionRedirect, d.Action)

	cancel()
	require.NoError(t, <-errc)

	_, err = h.c.Submit(context.Background(), TabFocused{TabID: 1})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestParseReflectionURL(t *testing.T) {
	_, _, ok := ParseReflectionURL(reflectURL + "?url=https%3A%2F%2Fexample.org")
	assert.False(t, ok)

	target, id, ok := ParseReflectionURL(reflectURL + "?url=https%3A%2F%2Fexample.org%2Fa%3Fb%3Dc&id=abc")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/a?b=c", target)
	assert.Equal(t, "abc", id)
}

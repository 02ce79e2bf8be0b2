package engine

import (
	"context"

	"github.com/sw33tLie/intender/pkg/scope"
)

// beforeNavigate applies the navigation rules in order. The first rule that
// allows the navigation wins; only a target inside an intention's scope is
// redirected.
func (c *Coordinator) beforeNavigate(ctx context.Context, ev BeforeNavigate) Decision {
	if ev.FrameID != TopFrame {
		return allow(RuleNotTopFrame)
	}
	if c.reflection.is(ev.URL) {
		return allow(RuleReflectionTarget)
	}

	source, known := c.tabs[ev.TabID]
	if known && scope.SameDomain(source, ev.URL) {
		return allow(RuleSameDomain)
	}
	if known && c.reflection.is(source) {
		return allow(RuleReflectionOrigin)
	}

	active, ok, err := c.browser.ActiveTab(ctx)
	if err != nil {
		c.log.Debugf("Active tab lookup failed, treating as none: %v", err)
		ok = false
	}
	if ok && active.ID != ev.TabID {
		activeURL := active.URL
		if activeURL == "" {
			activeURL = c.tabs[active.ID]
		}
		if scope.SameDomain(activeURL, ev.URL) {
			return allow(RuleActiveTabDomain)
		}
	}

	entry, found := c.Snapshot().Index.Lookup(ev.URL)
	if !found {
		return allow(RuleNoIntention)
	}
	return c.redirect(ctx, ev.TabID, ev.URL, entry.Intention.ID, RuleIntention)
}

// committed records the URL a tab now shows and which scope it belongs to.
func (c *Coordinator) committed(ev NavigationCommitted) Decision {
	if ev.FrameID != TopFrame {
		return allow(RuleNotTopFrame)
	}
	c.tabs[ev.TabID] = ev.URL
	if c.reflection.is(ev.URL) {
		return allow(RuleReflectionTarget)
	}
	entry, found := c.Snapshot().Index.Lookup(ev.URL)
	if !found {
		c.activity.leave(ev.TabID)
		return allow(RuleNoIntention)
	}
	c.activity.assign(ev.TabID, entry.Intention.ID, c.now())
	return Decision{Action: ActionAllow, Rule: RuleIntention, IntentionID: entry.Intention.ID}
}

func (c *Coordinator) reflectionCompleted(ev ReflectionCompleted) Decision {
	if _, ok := c.Snapshot().Index.Get(ev.IntentionID); !ok {
		c.log.Warnf("Reflection completed for unknown intention %q", ev.IntentionID)
		return allow(RuleNone)
	}
	if ev.TabID > 0 {
		c.activity.assign(ev.TabID, ev.IntentionID, c.now())
	} else {
		c.activity.touch(ev.IntentionID, c.now())
	}
	return Decision{Action: ActionAllow, Rule: RuleReflectionOrigin, IntentionID: ev.IntentionID}
}

package engine

import (
	"context"

	"github.com/sw33tLie/intender/pkg/storage"
)

// checkActiveTab runs the inactivity check against the focused tab.
func (c *Coordinator) checkActiveTab(ctx context.Context) Decision {
	active, ok, err := c.browser.ActiveTab(ctx)
	if err != nil {
		c.log.Debugf("Active tab lookup failed, skipping inactivity check: %v", err)
		return allow(RuleNone)
	}
	if !ok {
		return allow(RuleNone)
	}
	return c.checkTab(ctx, active.ID, active.URL)
}

// checkTab sends tabID back through the reflection page if the intention
// its URL belongs to has been inactive for longer than the timeout.
// Otherwise it counts as fresh activity.
func (c *Coordinator) checkTab(ctx context.Context, tabID int, url string) Decision {
	if url == "" {
		url = c.tabs[tabID]
	}
	if url == "" || c.reflection.is(url) {
		return allow(RuleNone)
	}
	snap := c.Snapshot()
	entry, found := snap.Index.Lookup(url)
	if !found {
		return allow(RuleNoIntention)
	}
	id := entry.Intention.ID
	now := c.now()

	switch snap.Settings.InactivityMode {
	case storage.InactivityAll, storage.InactivityAllExceptAudio:
	default:
		c.activity.assign(tabID, id, now)
		return Decision{Action: ActionAllow, Rule: RuleInactivityDisable, IntentionID: id}
	}

	if snap.Settings.InactivityMode == storage.InactivityAllExceptAudio && c.activity.isAudible(id) {
		c.activity.assign(tabID, id, now)
		return Decision{Action: ActionAllow, Rule: RuleInactivityExempt, IntentionID: id}
	}

	if c.activity.expired(id, now, snap.Settings.InactivityTimeout()) {
		return c.redirect(ctx, tabID, url, id, RuleInactivity)
	}
	c.activity.assign(tabID, id, now)
	return Decision{Action: ActionAllow, Rule: RuleInactivityRecent, IntentionID: id}
}

// audibleChanged tracks audio per tab. Only a tab starting playback counts as
// activity in its scope; stopping leaves the timestamp alone.
func (c *Coordinator) audibleChanged(ev TabUpdated) Decision {
	c.activity.setAudible(ev.TabID, ev.Audible)
	id, ok := c.activity.scopeOf(ev.TabID)
	if !ok {
		if url, known := c.tabs[ev.TabID]; known {
			if entry, found := c.Snapshot().Index.Lookup(url); found {
				id, ok = entry.Intention.ID, true
				c.activity.join(ev.TabID, id)
			}
		}
	}
	if ok && ev.Audible {
		c.activity.touch(id, c.now())
	}
	return Decision{Action: ActionAllow, Rule: RuleNone, IntentionID: id}
}

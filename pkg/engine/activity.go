package engine

import "time"

// activity tracks, per intention, when the user last showed intent and
// which tabs currently sit inside which intention's scope.
type activity struct {
	lastActive map[string]time.Time
	tabScope   map[int]string
	audible    map[int]struct{}
}

func newActivity() *activity {
	return &activity{
		lastActive: make(map[string]time.Time),
		tabScope:   make(map[int]string),
		audible:    make(map[int]struct{}),
	}
}

func (a *activity) touch(intentionID string, now time.Time) {
	if intentionID == "" {
		return
	}
	a.lastActive[intentionID] = now
}

// assign records tabID as belonging to intentionID and refreshes its
// timestamp.
func (a *activity) assign(tabID int, intentionID string, now time.Time) {
	a.tabScope[tabID] = intentionID
	a.touch(intentionID, now)
}

// join records tabID as belonging to intentionID without counting it as
// activity.
func (a *activity) join(tabID int, intentionID string) {
	a.tabScope[tabID] = intentionID
}

func (a *activity) leave(tabID int) {
	delete(a.tabScope, tabID)
}

func (a *activity) scopeOf(tabID int) (string, bool) {
	id, ok := a.tabScope[tabID]
	return id, ok
}

func (a *activity) setAudible(tabID int, audible bool) {
	if audible {
		a.audible[tabID] = struct{}{}
		return
	}
	delete(a.audible, tabID)
}

// isAudible reports whether any tab inside intentionID's scope is
// producing sound.
func (a *activity) isAudible(intentionID string) bool {
	for tabID := range a.audible {
		if a.tabScope[tabID] == intentionID {
			return true
		}
	}
	return false
}

func (a *activity) removeTab(tabID int) {
	delete(a.tabScope, tabID)
	delete(a.audible, tabID)
}

// expired reports whether intentionID has been inactive for longer than
// timeout. Intentions never seen before are not expired.
func (a *activity) expired(intentionID string, now time.Time, timeout time.Duration) bool {
	last, ok := a.lastActive[intentionID]
	if !ok {
		return false
	}
	return now.Sub(last) > timeout
}

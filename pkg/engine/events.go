package engine

// TopFrame is the frame identifier of a tab's main document. Events for
// subframes never trigger the reflection flow.
const TopFrame = 0

// Event is an input delivered by the browser-side event source.
type Event interface {
	eventName() string
}

// TabCreated is sent when a tab opens. URL is empty when the tab has not
// started loading.
type TabCreated struct {
	TabID int
	URL   string
}

// TabRemoved is sent when a tab closes.
type TabRemoved struct {
	TabID int
}

// TabUpdated carries the audible state of a tab.
type TabUpdated struct {
	TabID   int
	Audible bool
}

// TabFocused is sent when the user switches to a tab.
type TabFocused struct {
	TabID int
}

// BeforeNavigate is the decision point: a tab is about to load URL.
type BeforeNavigate struct {
	TabID   int
	FrameID int
	URL     string
}

// NavigationCommitted is sent once a tab has committed to URL.
type NavigationCommitted struct {
	TabID   int
	FrameID int
	URL     string
}

// IdleState is the coarse user presence signal.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// IdleStateChanged is sent when the system idle state changes.
type IdleStateChanged struct {
	State IdleState
}

// ReflectionCompleted is sent once the user restated the phrase of an
// intention on the reflection page shown in TabID. TabID is zero when the
// page could not tell which tab it runs in.
type ReflectionCompleted struct {
	TabID       int
	IntentionID string
}

// InactivityCheck forces an immediate inactivity check of the focused tab.
// It stands in for the idle signal in automated tests.
type InactivityCheck struct{}

func (TabCreated) eventName() string          { return "tab-created" }
func (TabRemoved) eventName() string          { return "tab-removed" }
func (TabUpdated) eventName() string          { return "tab-updated" }
func (TabFocused) eventName() string          { return "tab-focused" }
func (BeforeNavigate) eventName() string      { return "before-navigate" }
func (NavigationCommitted) eventName() string { return "navigation-committed" }
func (IdleStateChanged) eventName() string    { return "idle-state-changed" }
func (ReflectionCompleted) eventName() string { return "reflection-completed" }
func (InactivityCheck) eventName() string     { return "inactivity-check" }

// EventName returns a short identifier for ev, used in logs and metrics.
func EventName(ev Event) string {
	if ev == nil {
		return "unknown"
	}
	return ev.eventName()
}

// Action is the outcome of handling an event.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Rule names the rule that produced a decision.
type Rule string

const (
	RuleNone              Rule = ""
	RuleNotTopFrame       Rule = "not-top-frame"
	RuleReflectionTarget  Rule = "reflection-target"
	RuleSameDomain        Rule = "same-domain"
	RuleReflectionOrigin  Rule = "reflection-origin"
	RuleActiveTabDomain   Rule = "active-tab-domain"
	RuleNoIntention       Rule = "no-intention"
	RuleIntention         Rule = "intention"
	RuleInactivity        Rule = "inactivity"
	RuleInactivityExempt  Rule = "inactivity-exempt"
	RuleInactivityRecent  Rule = "inactivity-recent"
	RuleInactivityDisable Rule = "inactivity-off"
)

// Decision reports what the coordinator did with an event.
type Decision struct {
	Action      Action `json:"action"`
	Rule        Rule   `json:"rule,omitempty"`
	IntentionID string `json:"intentionId,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

func allow(rule Rule) Decision {
	return Decision{Action: ActionAllow, Rule: rule}
}

// Redirected reports whether the tab was sent to the reflection page.
func (d Decision) Redirected() bool {
	return d.Action == ActionRedirect
}

package storage

import (
	"context"
	"time"

	"github.com/sw33tLie/intender/pkg/intention"
)

// InactivityMode selects which scopes are re-checked after a period without
// activity.
type InactivityMode string

const (
	InactivityOff            InactivityMode = "off"
	InactivityAll            InactivityMode = "all"
	InactivityAllExceptAudio InactivityMode = "all-except-audio"
)

const (
	DefaultInactivityMode    = InactivityAllExceptAudio
	DefaultInactivityTimeout = 15 * time.Minute
	DefaultFuzzyMatching     = true
)

// ParseInactivityMode maps a stored string to a mode. Unknown values disable
// inactivity tracking.
func ParseInactivityMode(s string) InactivityMode {
	switch m := InactivityMode(s); m {
	case InactivityAll, InactivityAllExceptAudio:
		return m
	default:
		return InactivityOff
	}
}

// Settings is everything the user configures: the intentions and the
// behaviour of the reflection flow.
type Settings struct {
	Intentions          []intention.Raw `json:"intentions"`
	FuzzyMatching       bool            `json:"fuzzyMatching"`
	InactivityMode      InactivityMode  `json:"inactivityMode"`
	InactivityTimeoutMs int64           `json:"inactivityTimeoutMs"`
}

// DefaultSettings returns the settings used for keys that were never stored.
func DefaultSettings() Settings {
	return Settings{
		Intentions:          []intention.Raw{},
		FuzzyMatching:       DefaultFuzzyMatching,
		InactivityMode:      DefaultInactivityMode,
		InactivityTimeoutMs: DefaultInactivityTimeout.Milliseconds(),
	}
}

// InactivityTimeout returns the timeout as a duration.
func (s Settings) InactivityTimeout() time.Duration {
	return time.Duration(s.InactivityTimeoutMs) * time.Millisecond
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Intentions          *[]intention.Raw
	FuzzyMatching       *bool
	InactivityMode      *InactivityMode
	InactivityTimeoutMs *int64
}

// Store is the persistence contract: read the merged settings, merge a patch
// into them and get told which keys changed.
type Store interface {
	Get(ctx context.Context) (Settings, error)
	Set(ctx context.Context, p Patch) error
	// Subscribe registers fn to be called with the keys that changed. The
	// returned function removes the subscription.
	Subscribe(fn func(changed []string)) (unsubscribe func())
}

// Logger abstracts logging so callers can plug in logrus or anything else.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

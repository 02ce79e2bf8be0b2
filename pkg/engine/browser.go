package engine

import "context"

// Tab is the browser's view of a tab.
type Tab struct {
	ID  int
	URL string
}

// Browser is the host environment the coordinator drives.
type Browser interface {
	// ActiveTab returns the focused tab of the focused window. ok is false
	// when there is none.
	ActiveTab(ctx context.Context) (tab Tab, ok bool, err error)
	// Navigate sends tabID to url. Navigating a tab that has closed fails;
	// such failures are expected and only logged.
	Navigate(ctx context.Context, tabID int, url string) error
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

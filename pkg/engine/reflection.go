package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// Query parameters of the reflection page.
const (
	ParamTarget      = "url"
	ParamIntentionID = "id"
)

// reflectionPage recognizes and builds reflection page URLs.
type reflectionPage struct {
	base *url.URL
}

func newReflectionPage(raw string) (reflectionPage, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return reflectionPage{}, fmt.Errorf("parsing reflection url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return reflectionPage{}, fmt.Errorf("reflection url %q must be absolute", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return reflectionPage{base: u}, nil
}

// build returns the reflection page URL for an intercepted navigation.
func (p reflectionPage) build(target, intentionID string) string {
	u := *p.base
	q := url.Values{}
	q.Set(ParamTarget, target)
	q.Set(ParamIntentionID, intentionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// is reports whether raw points at the reflection page, whatever its query.
func (p reflectionPage) is(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, p.base.Scheme) &&
		strings.EqualFold(u.Host, p.base.Host) &&
		strings.TrimRight(u.Path, "/") == strings.TrimRight(p.base.Path, "/")
}

// ParseReflectionURL extracts the intercepted target and the intention
// identifier from a reflection page URL.
func ParseReflectionURL(raw string) (target, intentionID string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	q := u.Query()
	target, intentionID = q.Get(ParamTarget), q.Get(ParamIntentionID)
	if target == "" || intentionID == "" {
		return "", "", false
	}
	return target, intentionID, true
}

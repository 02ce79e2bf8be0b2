package scope

import (
	"strings"

	"github.com/sw33tLie/intender/pkg/lang"
)

// neutralSubdomains are service aliases that address the same site as the
// bare domain. They are accepted wherever a scope has no subdomain, on every
// domain: a google.com scope also matches mail.google.com, and a reddit.com
// scope matches m.reddit.com. A scope that names a subdomain does not get
// them.
var neutralSubdomains = map[string]struct{}{
	"m":      {},
	"mobile": {},
	"mail":   {},
}

// Matches reports whether target falls inside s. Domain equality is assumed
// to have been checked by the caller (the index groups scopes by Key); only
// the suffix, subdomain and path steps run here, in that order.
//
// Language tokens are wildcards wherever they occur. Non-language subdomains
// and suffixes are part of the identity of a scope.
func (s Scope) Matches(target Scope) bool {
	return s.matchSuffix(target) && s.matchSubdomain(target) && s.matchPath(target)
}

// MatchURL parses targetURL and checks it against s, including the domain.
func MatchURL(targetURL string, s Scope) bool {
	target, ok := Parse(targetURL)
	if !ok {
		return false
	}
	return target.Domain == s.Domain && s.Matches(target)
}

func (s Scope) matchSuffix(target Scope) bool {
	if s.HasLanguageSuffix {
		return true
	}
	return target.PublicSuffix == s.PublicSuffix || target.HasLanguageSuffix
}

func (s Scope) matchSubdomain(target Scope) bool {
	switch {
	case s.Subdomain == "":
		if target.Subdomain == "" || target.HasLanguageSubdomain {
			return true
		}
		_, neutral := neutralSubdomains[target.Subdomain]
		return neutral
	case s.HasLanguageSubdomain:
		return target.Subdomain == "" || target.HasLanguageSubdomain
	default:
		return target.Subdomain == s.Subdomain
	}
}

func (s Scope) matchPath(target Scope) bool {
	if s.Path == "" {
		return true
	}
	if strings.HasPrefix(target.Path, s.Path) {
		return true
	}
	if target.HasLanguagePathStart {
		_, rest := lang.ExtractLanguageFromPath(target.Path)
		if strings.HasPrefix(rest, s.Path) {
			return true
		}
	}
	if s.HasLanguagePathStart {
		_, rest := lang.ExtractLanguageFromPath(s.Path)
		if strings.HasPrefix(target.Path, rest) {
			return true
		}
	}
	return false
}

package scope

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sw33tLie/intender/internal/utils"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/idna"
)

// schemePrefix matches an RFC 3986 scheme at the start of the input. A "://"
// later in the path or query is not a scheme.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// icannOnly restricts public suffix lookups to the ICANN section of the list
// and disables the implicit "*" rule, so unknown TLDs fail to parse.
var icannOnly = &publicsuffix.FindOptions{IgnorePrivate: true}

// Normalize canonicalizes a user or browser supplied URL into a comparable
// form: no scheme, no leading "www.", no query or fragment, lowercase and no
// trailing slash. It returns false when the input does not resolve to a
// public, ICANN-registrable hostname (IP literals, localhost, intranet names
// and bare public suffixes are rejected).
//
// Normalize is idempotent: normalizing its own output returns the same string.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Without a scheme url.Parse puts the host into the path.
	if !schemePrefix.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}

	host, ok := normalizeHost(u.Hostname())
	if !ok {
		return "", false
	}

	// EscapedPath drops query and fragment and keeps percent-encoding stable
	// across repeated normalization.
	path := strings.ToLower(u.EscapedPath())
	path = strings.TrimRight(path, "/")

	return host + path, true
}

func normalizeHost(host string) (string, bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || utils.IsIP(host) {
		return "", false
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return "", false
	}

	for strings.HasPrefix(ascii, "www.") {
		ascii = strings.TrimPrefix(ascii, "www.")
	}

	if _, err := parseHost(ascii); err != nil {
		return "", false
	}
	return ascii, true
}

func parseHost(host string) (*publicsuffix.DomainName, error) {
	return publicsuffix.ParseFromListWithOptions(publicsuffix.DefaultList, host, icannOnly)
}

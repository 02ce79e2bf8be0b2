// Package scope turns website patterns into language-aware scopes and decides
// whether a navigated URL falls inside one.
package scope

import (
	"strings"

	"github.com/sw33tLie/intender/pkg/lang"
)

// Scope is the structured decomposition of a normalized URL. It is a value
// type: a Scope is never modified after Parse returns it, and parsing the
// same input twice yields equal values.
type Scope struct {
	// Domain is the registrable label without its suffix ("facebook").
	Domain string
	// PublicSuffix is the ICANN suffix ("com", "co.uk").
	PublicSuffix string
	// Subdomain holds every label left of Domain, or "" when there is none.
	Subdomain string
	// Path is the normalized path without a leading slash; "" matches any path.
	Path string
	// URLLength is the length of the normalized URL, used to order scopes by
	// specificity.
	URLLength int

	HasLanguageSuffix    bool
	HasLanguageSubdomain bool
	HasLanguagePathStart bool

	// OriginalURL is the input Parse was called with.
	OriginalURL string
}

// Parse normalizes raw and decomposes it into a Scope. It returns false when
// raw cannot be normalized.
func Parse(raw string) (Scope, bool) {
	normalized, ok := Normalize(raw)
	if !ok {
		return Scope{}, false
	}

	host, path, _ := strings.Cut(normalized, "/")
	sub, domain, suffix := splitHost(host)
	if domain == "" {
		return Scope{}, false
	}

	pathLang, _ := lang.ExtractLanguageFromPath(path)

	return Scope{
		Domain:               domain,
		PublicSuffix:         suffix,
		Subdomain:            sub,
		Path:                 path,
		URLLength:            len(normalized),
		HasLanguageSuffix:    lang.IsLanguageSuffix(suffix),
		HasLanguageSubdomain: sub != "" && lang.IsLanguageCode(sub),
		HasLanguagePathStart: pathLang != "",
		OriginalURL:          raw,
	}, true
}

// Key returns the index key of the scope. Keys deliberately omit the public
// suffix so that cross-suffix lookups (facebook.se vs facebook.com) consult
// the same bucket.
func (s Scope) Key() string {
	return s.Domain
}

// Host reassembles the hostname of the scope.
func (s Scope) Host() string {
	parts := make([]string, 0, 3)
	if s.Subdomain != "" {
		parts = append(parts, s.Subdomain)
	}
	parts = append(parts, s.Domain)
	if s.PublicSuffix != "" {
		parts = append(parts, s.PublicSuffix)
	}
	return strings.Join(parts, ".")
}

// SameDomain reports whether two URLs share a registrable domain label.
// Unparseable URLs never share a domain with anything.
func SameDomain(a, b string) bool {
	sa, ok := Parse(a)
	if !ok {
		return false
	}
	sb, ok := Parse(b)
	if !ok {
		return false
	}
	return sa.Domain == sb.Domain
}

// splitHost splits a hostname using the public suffix list, falling back to
// plain dot splitting if the list lookup fails.
func splitHost(host string) (sub, domain, suffix string) {
	if dn, err := parseHost(host); err == nil {
		return dn.TRD, dn.SLD, dn.TLD
	}
	return splitHostFallback(host)
}

// splitHostFallback treats the last label as suffix and the one before it as
// the domain. Only used when the suffix list cannot classify host.
func splitHostFallback(host string) (sub, domain, suffix string) {
	labels := strings.Split(host, ".")
	if len(labels) == 1 {
		return "", labels[0], ""
	}
	suffix = labels[len(labels)-1]
	domain = labels[len(labels)-2]
	sub = strings.Join(labels[:len(labels)-2], ".")
	return sub, domain, suffix
}

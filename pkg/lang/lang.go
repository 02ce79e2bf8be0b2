// Package lang classifies URL tokens (subdomains, public suffixes and path
// segments) that carry a language or country code. Intention matching treats
// such tokens as wildcards.
package lang

import (
	"strings"

	"golang.org/x/text/language"
)

// IsLanguageCode reports whether token is a two-letter ISO 639-1 code ("sv")
// or a language-country pair ("en-us") whose parts validate against ISO 639-1
// and ISO 3166-1 alpha-2.
func IsLanguageCode(token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if lang, country, ok := strings.Cut(token, "-"); ok {
		return isISO639_1(lang) && isCountryCode(country)
	}
	return isISO639_1(token)
}

// IsLanguageSuffix reports whether a public suffix is a country code TLD.
// Country TLDs are treated as language-bearing, so "se" is one and "com" or
// "co.uk" are not.
func IsLanguageSuffix(suffix string) bool {
	return isCountryCode(suffix)
}

// ExtractLanguageFromPath inspects the first segment of a path without a
// leading slash. If it is a language code, the code and the rest of the path
// are returned; otherwise lang is empty and rest is the path unchanged.
func ExtractLanguageFromPath(path string) (lang, rest string) {
	first, remainder, _ := strings.Cut(path, "/")
	if first == "" || !IsLanguageCode(first) {
		return "", path
	}
	return first, remainder
}

func isISO639_1(s string) bool {
	if len(s) != 2 || !isASCIILetters(s) {
		return false
	}
	_, err := language.ParseBase(s)
	return err == nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 || !isASCIILetters(s) {
		return false
	}
	region, err := language.ParseRegion(strings.ToUpper(s))
	if err != nil {
		return false
	}
	return region.IsCountry()
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

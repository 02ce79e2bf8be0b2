// Package intention models user rules pairing a website scope with the phrase
// the user has to restate before visiting it.
package intention

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sw33tLie/intender/pkg/scope"
)

// MaxPhraseLength bounds the phrase length, in runes.
const MaxPhraseLength = 200

var (
	ErrInvalidURL    = errors.New("url does not resolve to a public website")
	ErrEmptyPhrase   = errors.New("phrase is empty")
	ErrPhraseTooLong = errors.New("phrase is too long")
)

// Raw is an intention as the user authored it and as it is persisted. The URL
// may be invalid while the user is still editing it.
type Raw struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Phrase string `json:"phrase"`
}

// Intention is a parsed rule. Only parsed intentions take part in matching.
type Intention struct {
	ID     string
	Scope  scope.Scope
	Phrase string
}

// NewRaw returns an empty rule with a fresh identifier.
func NewRaw() Raw {
	return Raw{ID: uuid.NewString()}
}

// IsEmpty reports whether the rule is a blank placeholder.
func (r Raw) IsEmpty() bool {
	return strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.Phrase) == ""
}

// Validate reports the first problem that keeps r from being parsed.
func (r Raw) Validate() error {
	if _, ok := scope.Parse(r.URL); !ok {
		return ErrInvalidURL
	}
	phrase := strings.TrimSpace(r.Phrase)
	if phrase == "" {
		return ErrEmptyPhrase
	}
	if utf8.RuneCountInString(phrase) > MaxPhraseLength {
		return ErrPhraseTooLong
	}
	return nil
}

// Parse converts r into an Intention. The identifier is kept as is, so edits
// to the URL or phrase never change the identity of a rule.
func (r Raw) Parse() (Intention, error) {
	if err := r.Validate(); err != nil {
		return Intention{}, err
	}
	s, _ := scope.Parse(r.URL)
	return Intention{
		ID:     r.ID,
		Scope:  s,
		Phrase: strings.TrimSpace(r.Phrase),
	}, nil
}

// Raw converts i back to its persisted form, keeping the original URL text.
func (i Intention) Raw() Raw {
	return Raw{
		ID:     i.ID,
		URL:    i.Scope.OriginalURL,
		Phrase: i.Phrase,
	}
}

// Prune drops empty placeholders and assigns identifiers to rules missing one.
func Prune(raws []Raw) []Raw {
	out := make([]Raw, 0, len(raws))
	for _, r := range raws {
		if r.IsEmpty() {
			continue
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out = append(out, r)
	}
	return out
}

// ParseAll parses every valid rule and silently skips the rest.
func ParseAll(raws []Raw) []Intention {
	out := make([]Intention, 0, len(raws))
	for _, r := range raws {
		i, err := r.Parse()
		if err != nil {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Find returns the rule with the given identifier.
func Find(raws []Raw, id string) (Raw, bool) {
	for _, r := range raws {
		if r.ID == id {
			return r, true
		}
	}
	return Raw{}, false
}

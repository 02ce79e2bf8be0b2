// Package index groups parsed intentions by domain for navigation lookups.
package index

import (
	"sort"

	"github.com/sw33tLie/intender/pkg/intention"
	"github.com/sw33tLie/intender/pkg/scope"
)

// Entry pairs a scope with the intention it was derived from.
type Entry struct {
	Scope     scope.Scope
	Intention intention.Intention
}

// Index maps a domain key to its entries, most specific first. An Index is
// never modified after Build, so lookups need no locking; configuration
// changes produce a new Index instead.
type Index struct {
	buckets map[string][]Entry
	byID    map[string]intention.Intention
	size    int
}

// Build parses raws and indexes every valid intention. Invalid rules are
// skipped without error.
func Build(raws []intention.Raw) *Index {
	return FromIntentions(intention.ParseAll(raws))
}

// FromIntentions indexes already parsed intentions.
func FromIntentions(intentions []intention.Intention) *Index {
	idx := &Index{
		buckets: make(map[string][]Entry),
		byID:    make(map[string]intention.Intention, len(intentions)),
	}

	for _, in := range intentions {
		key := in.Scope.Key()
		idx.buckets[key] = append(idx.buckets[key], Entry{Scope: in.Scope, Intention: in})
		idx.byID[in.ID] = in
		idx.size++
	}

	// Stable keeps configuration order among scopes of equal length.
	for _, bucket := range idx.buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Scope.URLLength > bucket[j].Scope.URLLength
		})
	}

	return idx
}

// Empty returns an index without intentions.
func Empty() *Index {
	return FromIntentions(nil)
}

// Lookup returns the first entry, in specificity order, whose scope matches
// targetURL. It returns false when the URL cannot be parsed, its domain has no
// bucket, or no scope in the bucket matches.
func (idx *Index) Lookup(targetURL string) (Entry, bool) {
	target, ok := scope.Parse(targetURL)
	if !ok {
		return Entry{}, false
	}
	return idx.LookupScope(target)
}

// LookupScope is Lookup for an already parsed target.
func (idx *Index) LookupScope(target scope.Scope) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}
	for _, e := range idx.buckets[target.Key()] {
		if e.Scope.Matches(target) {
			return e, true
		}
	}
	return Entry{}, false
}

// Get returns the intention with the given identifier.
func (idx *Index) Get(id string) (intention.Intention, bool) {
	if idx == nil {
		return intention.Intention{}, false
	}
	in, ok := idx.byID[id]
	return in, ok
}

// Len returns the number of indexed intentions.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Domains returns the indexed domain keys in sorted order.
func (idx *Index) Domains() []string {
	if idx == nil {
		return nil
	}
	keys := make([]string, 0, len(idx.buckets))
	for k := range idx.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

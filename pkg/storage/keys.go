package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sw33tLie/intender/pkg/intention"
)

// Stored keys. Each key holds one JSON encoded value.
const (
	KeyIntentions          = "intentions"
	KeyFuzzyMatching       = "fuzzyMatching"
	KeyInactivityMode      = "inactivityMode"
	KeyInactivityTimeoutMs = "inactivityTimeoutMs"
)

// ErrUnknownKey is returned when parsing a patch for a key that is not stored.
var ErrUnknownKey = errors.New("unknown settings key")

// Keys lists every stored key.
var Keys = []string{KeyIntentions, KeyFuzzyMatching, KeyInactivityMode, KeyInactivityTimeoutMs}

// encode turns a patch into key -> JSON value pairs.
func (p Patch) encode() (map[string]string, error) {
	out := make(map[string]string)
	put := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		out[key] = string(b)
		return nil
	}

	if p.Intentions != nil {
		raws := *p.Intentions
		if raws == nil {
			raws = []intention.Raw{}
		}
		if err := put(KeyIntentions, raws); err != nil {
			return nil, err
		}
	}
	if p.FuzzyMatching != nil {
		if err := put(KeyFuzzyMatching, *p.FuzzyMatching); err != nil {
			return nil, err
		}
	}
	if p.InactivityMode != nil {
		if err := put(KeyInactivityMode, ParseInactivityMode(string(*p.InactivityMode))); err != nil {
			return nil, err
		}
	}
	if p.InactivityTimeoutMs != nil {
		if *p.InactivityTimeoutMs < 0 {
			return nil, fmt.Errorf("inactivity timeout must not be negative")
		}
		if err := put(KeyInactivityTimeoutMs, *p.InactivityTimeoutMs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeSettings merges stored values over the defaults.
func decodeSettings(values map[string]string) (Settings, error) {
	s := DefaultSettings()

	if v, ok := values[KeyIntentions]; ok {
		var raws []intention.Raw
		if err := json.Unmarshal([]byte(v), &raws); err != nil {
			return Settings{}, fmt.Errorf("decoding %s: %w", KeyIntentions, err)
		}
		if raws != nil {
			s.Intentions = raws
		}
	}
	if v, ok := values[KeyFuzzyMatching]; ok {
		s.FuzzyMatching = gjson.Parse(v).Bool()
	}
	if v, ok := values[KeyInactivityMode]; ok {
		s.InactivityMode = ParseInactivityMode(gjson.Parse(v).String())
	}
	if v, ok := values[KeyInactivityTimeoutMs]; ok {
		if ms := gjson.Parse(v).Int(); ms >= 0 {
			s.InactivityTimeoutMs = ms
		}
	}
	return s, nil
}

// changedKeys returns the sorted keys whose values differ between before and
// after. Keys missing from after are untouched, not deleted.
func changedKeys(before, after map[string]string) []string {
	var changed []string
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// ParsePatch builds a patch for a single scalar key from its textual form,
// as typed on the command line.
func ParsePatch(key, value string) (Patch, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyFuzzyMatching:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", key, err)
		}
		return Patch{FuzzyMatching: &b}, nil
	case KeyInactivityMode:
		m := InactivityMode(value)
		if ParseInactivityMode(value) != m {
			return Patch{}, fmt.Errorf("%s: must be one of off, all, all-except-audio", key)
		}
		return Patch{InactivityMode: &m}, nil
	case KeyInactivityTimeoutMs:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil || ms < 0 {
			return Patch{}, fmt.Errorf("%s: must be a non-negative number of milliseconds", key)
		}
		return Patch{InactivityTimeoutMs: &ms}, nil
	default:
		return Patch{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

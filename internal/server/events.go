package server

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/sw33tLie/intender/pkg/engine"
)

var errInvalidEvent = errors.New("invalid event")

// parseEvent decodes a browser event posted to /api/events.
//
//	{"type":"before-navigate","tabId":3,"frameId":0,"url":"https://..."}
func parseEvent(body []byte) (engine.Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed json", errInvalidEvent)
	}
	r := gjson.ParseBytes(body)
	typ := r.Get("type").String()

	tab := r.Get("tabId")
	needsTab := typ != "idle-state-changed"
	if needsTab && !tab.Exists() {
		return nil, fmt.Errorf("%w: %q without tabId", errInvalidEvent, typ)
	}
	tabID := int(tab.Int())
	frameID := int(r.Get("frameId").Int())
	url := r.Get("url").String()

	switch typ {
	case "tab-created":
		return engine.TabCreated{TabID: tabID, URL: url}, nil
	case "tab-removed":
		return engine.TabRemoved{TabID: tabID}, nil
	case "tab-updated":
		return engine.TabUpdated{TabID: tabID, Audible: r.Get("audible").Bool()}, nil
	case "tab-focused":
		return engine.TabFocused{TabID: tabID}, nil
	case "before-navigate":
		if url == "" {
			return nil, fmt.Errorf("%w: before-navigate without url", errInvalidEvent)
		}
		return engine.BeforeNavigate{TabID: tabID, FrameID: frameID, URL: url}, nil
	case "navigation-committed":
		return engine.NavigationCommitted{TabID: tabID, FrameID: frameID, URL: url}, nil
	case "idle-state-changed":
		switch state := engine.IdleState(r.Get("state").String()); state {
		case engine.IdleActive, engine.IdleIdle, engine.IdleLocked:
			return engine.IdleStateChanged{State: state}, nil
		default:
			return nil, fmt.Errorf("%w: idle state %q", errInvalidEvent, state)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errInvalidEvent, typ)
	}
}

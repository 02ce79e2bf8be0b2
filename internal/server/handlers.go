package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/engine"
	"github.com/sw33tLie/intender/pkg/fuzzy"
	"github.com/sw33tLie/intender/pkg/intention"
)

const maxEventBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleReflectPage(w http.ResponseWriter, r *http.Request) {
	page, err := WebFS.ReadFile("web/reflect.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev, err := parseEvent(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Bridge.Observe(ev)
	s.decide(w, r, ev)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, ev engine.Event) {
	d, err := s.Engine.Submit(r.Context(), ev)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "" {
		writeJSON(w, http.StatusOK, nonNil(s.Bridge.Drain()))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.PollTimeout)
	defer cancel()
	cmds, err := s.Bridge.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cmds))
}

func (s *Server) handleIntentions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Snapshot().Settings.Intentions)
}

func (s *Server) handleIntention(w http.ResponseWriter, r *http.Request) {
	in, ok := s.Engine.Snapshot().Index.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "unknown intention", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, in.Raw())
}

type ReflectionRequest struct {
	ID     string `json:"id"`
	Phrase string `json:"phrase"`
	URL    string `json:"url"`
	TabID  int    `json:"tabId"`
}

type ReflectionResponse struct {
	Accepted bool   `json:"accepted"`
	URL      string `json:"url,omitempty"`
}

// lookupReflection decodes the request and resolves the intention it names.
func (s *Server) lookupReflection(w http.ResponseWriter, r *http.Request) (ReflectionRequest, intention.Intention, fuzzy.Options, bool) {
	var req ReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, intention.Intention{}, fuzzy.Options{}, false
	}
	snap := s.Engine.Snapshot()
	in, ok := snap.Index.Get(req.ID)
	if !ok {
		http.Error(w, "unknown intention", http.StatusNotFound)
		return req, in, fuzzy.Options{}, false
	}
	opts := fuzzy.Options{Fuzzy: snap.Settings.FuzzyMatching, MaxDistance: fuzzy.DefaultMaxDistance}
	return req, in, opts, true
}

func (s *Server) handleReflectionCheck(w http.ResponseWriter, r *http.Request) {
	req, in, opts, ok := s.lookupReflection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ReflectionResponse{Accepted: fuzzy.CheckPartial(req.Phrase, in.Phrase, opts)})
}

func (s *Server) handleReflectionComplete(w http.ResponseWriter, r *http.Request) {
	req, in, opts, ok := s.lookupReflection(w, r)
	if !ok {
		return
	}
	if !fuzzy.Check(req.Phrase, in.Phrase, opts) {
		writeJSON(w, http.StatusUnprocessableEntity, ReflectionResponse{Accepted: false})
		return
	}
	if _, err := s.Engine.Submit(r.Context(), engine.ReflectionCompleted{TabID: req.TabID, IntentionID: in.ID}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	utils.Log.Debugf("Reflection completed for intention %s", in.ID)
	writeJSON(w, http.StatusOK, ReflectionResponse{Accepted: true, URL: continueURL(req.URL)})
}

func (s *Server) handleTriggerInactivity(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, engine.InactivityCheck{})
}

// continueURL returns target if it is safe to navigate to after reflection.
func continueURL(target string) string {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

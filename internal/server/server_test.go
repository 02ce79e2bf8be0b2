package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/intender/internal/bridge"
	"github.com/sw33tLie/intender/pkg/engine"
	"github.com/sw33tLie/intender/pkg/intention"
	"github.com/sw33tLie/intender/pkg/storage"
)

const reflectURL = "http://127.0.0.1:7777/reflect"

func newTestServer(t *testing.T, testMode bool) (*Server, http.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := storage.NewMemory()
	raws := []intention.Raw{
		{ID: "yt", URL: "youtube.com", Phrase: "watch one lecture"},
	}
	mode := storage.InactivityAll
	require.NoError(t, store.Set(ctx, storage.Patch{Intentions: &raws, InactivityMode: &mode}))

	reg := prometheus.NewRegistry()
	br := bridge.New()
	eng, err := engine.New(engine.Config{
		ReflectionURL: reflectURL,
		Browser:       br,
		Store:         store,
		Metrics:       engine.NewMetrics(reg),
	})
	require.NoError(t, err)
	require.NoError(t, eng.Reload(ctx))
	go eng.Run(ctx)

	s := New(eng, br, "", "")
	s.TestMode = testMode
	s.Gatherer = reg
	return s, s.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEvents_RedirectQueuesCommand(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(h, http.MethodPost, "/api/events", `{"type":"tab-created","tabId":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodPost, "/api/events", `{"type":"before-navigate","tabId":4,"frameId":0,"url":"https://www.youtube.com/watch?v=1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var d engine.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, engine.ActionRedirect, d.Action)
	assert.Equal(t, "yt", d.IntentionID)

	rec = do(h, http.MethodGet, "/api/commands", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cmds []bridge.Command
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmds))
	require.Len(t, cmds, 1)
	assert.Equal(t, 4, cmds[0].TabID)
	assert.Equal(t, d.RedirectURL, cmds[0].URL)

	rec = do(h, http.MethodGet, "/api/commands", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEvents_SubframeAllowed(t *testing.T) {
	_, h := newTestServer(t, false)
	rec := do(h, http.MethodPost, "/api/events", `{"type":"before-navigate","tabId":4,"frameId":2,"url":"https://youtube.com/embed/x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"allow"`)
}

func TestEvents_Rejected(t *testing.T) {
	_, h := newTestServer(t, false)
	for _, body := range []string{
		`{"type":"before-navigate"`,
		`{"type":"before-navigate","url":"https://youtube.com"}`,
		`{"type":"before-navigate","tabId":1}`,
		`{"type":"idle-state-changed","state":"sleepy"}`,
		`{"type":"reflection-completed","tabId":1}`,
	} {
		rec := do(h, http.MethodPost, "/api/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestReflection_CheckAndComplete(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(h, http.MethodPost, "/api/reflection/check", `{"id":"yt","phrase":"watch on"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":true}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/reflection/check", `{"id":"yt","phrase":"play games"}`)
	assert.JSONEq(t, `{"accepted":false}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/reflection/complete", `{"id":"yt","phrase":"watch one lectrue","url":"https://youtube.com/watch?v=1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":true,"url":"https://youtube.com/watch?v=1"}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/reflection/complete", `{"id":"yt","phrase":"watch one","url":"https://youtube.com/"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(h, http.MethodPost, "/api/reflection/complete", `{"id":"yt","phrase":"watch one lecture","url":"javascript:alert(1)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":true}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/reflection/check", `{"id":"nope","phrase":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntentions(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(h, http.MethodGet, "/api/intentions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"yt","url":"youtube.com","phrase":"watch one lecture"}]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/intentions/yt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"yt","url":"youtube.com","phrase":"watch one lecture"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/intentions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestHook(t *testing.T) {
	_, h := newTestServer(t, false)
	rec := do(h, http.MethodPost, "/api/test/inactivity", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, h = newTestServer(t, true)
	rec = do(h, http.MethodPost, "/api/test/inactivity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"allow"`)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.Username, s.Password = "me", "secret"
	h := s.Handler()

	rec := do(h, http.MethodGet, "/api/intentions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/intentions", nil)
	req.SetBasicAuth("me", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReflectPage(t *testing.T) {
	_, h := newTestServer(t, false)
	rec := do(h, http.MethodGet, "/reflect?url=https%3A%2F%2Fyoutube.com&id=yt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("form#reflection").Length())
	assert.Equal(t, 1, doc.Find("form#reflection input[name=phrase]").Length())
}

func TestMetrics(t *testing.T) {
	_, h := newTestServer(t, false)
	do(h, http.MethodPost, "/api/events", `{"type":"before-navigate","tabId":1,"url":"https://example.org/"}`)

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `intender_decisions_total{action="allow",rule="no-intention"} 1`)
	assert.Contains(t, rec.Body.String(), `intender_intentions 1`)
}

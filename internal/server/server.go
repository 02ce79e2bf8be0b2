package server

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sw33tLie/intender/internal/bridge"
	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/engine"
)

//go:embed web
var WebFS embed.FS

type Server struct {
	Engine   *engine.Coordinator
	Bridge   *bridge.Bridge
	Username string
	Password string
	// TestMode exposes POST /api/test/inactivity.
	TestMode bool
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// PollTimeout bounds how long GET /api/commands?wait=1 blocks.
	PollTimeout time.Duration
}

func New(eng *engine.Coordinator, br *bridge.Bridge, user, pass string) *Server {
	return &Server{
		Engine:      eng,
		Bridge:      br,
		Username:    user,
		Password:    pass,
		Gatherer:    prometheus.DefaultGatherer,
		PollTimeout: 25 * time.Second,
	}
}

// Handler returns the router serving the API, the reflection page and
// /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.basicAuth)

	r.Get("/reflect", s.handleReflectPage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/events", s.handleEvent)
		r.Get("/commands", s.handleCommands)
		r.Get("/intentions", s.handleIntentions)
		r.Get("/intentions/{id}", s.handleIntention)
		r.Post("/reflection/check", s.handleReflectionCheck)
		r.Post("/reflection/complete", s.handleReflectionComplete)
		if s.TestMode {
			r.Post("/test/inactivity", s.handleTriggerInactivity)
		}
	})

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.Log.Warnf("Server shutdown: %v", err)
		}
	}()

	utils.Log.Infof("Starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		utils.Log.Debugf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// Package api exposes the four read-only client endpoints plus process
// metrics and liveness, wired together on a chi.Router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3undle/lineup/internal/api/middleware"
	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/relay"
)

// Server holds the dependencies the client endpoint handlers read from.
type Server struct {
	Store *catalog.Store
	Relay *relay.Relay

	// BaseURL is the externally-visible origin (scheme://host[:port]) this
	// daemon is reachable at, used to build absolute stream and guide URLs
	// in rendered playlists.
	BaseURL string
}

// NewServer returns a Server with its dependencies set.
func NewServer(store *catalog.Store, rl *relay.Relay, baseURL string) *Server {
	return &Server{Store: store, Relay: rl, BaseURL: baseURL}
}

// Router assembles the chi.Router exposing every client endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Tracing("lineupd"))
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/{outputName}.m3u", s.handlePlaylist)
	r.Get("/{outputName}.xml", s.handleGuide)

	r.Group(func(r chi.Router) {
		// go-chi/httprate blunts scraping the relay as a proxy-abuse vector,
		// independent of the per-provider admission limiter inside Relay
		// itself, which protects the upstream rather than this server.
		r.Use(httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/stream/{streamKey}", s.Relay.Handler())
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

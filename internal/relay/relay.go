// Package relay resolves an opaque stream key against the currently active
// snapshot and proxies the upstream response to the client, byte for byte,
// without ever issuing a redirect — upstream URLs frequently embed
// credentials in their path or query, and a 302 would leak them to the
// client.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/log"
	"github.com/m3undle/lineup/internal/metrics"
	"github.com/m3undle/lineup/internal/snapshot"
)

// Relay serves GET /stream/{streamKey}.
type Relay struct {
	Store  *catalog.Store
	Client *http.Client

	// RatePerSecond and Burst configure the per-provider limiter that guards
	// a single upstream against a burst of concurrent tune-ins; see
	// limiterFor.
	RatePerSecond float64
	Burst         int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a Relay with a client tuned for long-lived, unbuffered
// upstream copies: no overall request timeout (a live stream's body is
// open-ended) and redirects disabled, since the relay itself must never
// follow one to a URL it isn't prepared to re-expose to the client.
func New(store *catalog.Store, ratePerSecond float64, burst int) *Relay {
	return &Relay{
		Store: store,
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          64,
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		RatePerSecond: ratePerSecond,
		Burst:         burst,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the shared limiter for providerID, creating it on
// first use. Mirrors the lazily-populated per-key limiter map idiom used
// elsewhere in this codebase's ancestry for per-IP admission control.
func (rl *Relay) limiterFor(providerID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[providerID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(rl.RatePerSecond), rl.Burst)
		rl.limiters[providerID] = l
	}
	return l
}

// Handler returns the GET /stream/{streamKey} handler.
func (rl *Relay) Handler() http.HandlerFunc {
	return rl.serve
}

func (rl *Relay) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	streamKey := chi.URLParam(r, "streamKey")

	provider, profile, entry, err := rl.resolve(ctx, streamKey)
	if err != nil {
		switch {
		case errors.Is(err, errNoActiveSnapshot):
			metrics.IncRelayRequest("no_snapshot")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "no active snapshot", http.StatusServiceUnavailable)
		case errors.Is(err, errUnknownStreamKey):
			metrics.IncRelayRequest("not_found")
			lg := log.WithComponent("relay")
			lg.Warn().Str("stream_key", streamKey).Str("client_ip", clientIP(r)).Msg("unknown stream key")
			http.Error(w, "not found", http.StatusNotFound)
		default:
			metrics.IncRelayRequest("internal_error")
			lg := log.WithComponent("relay")
			lg.Error().Err(err).Str("stream_key", streamKey).Msg("resolve failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	_ = profile

	if err := rl.limiterFor(provider.ID).Wait(ctx); err != nil {
		return // client gave up waiting for admission; nothing left to write
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.StreamURL, nil)
	if err != nil {
		metrics.IncRelayRequest("upstream_unreachable")
		http.Error(w, "bad upstream url", http.StatusBadGateway)
		return
	}
	for k, v := range provider.Headers {
		upstreamReq.Header.Set(k, v)
	}
	if provider.UserAgent != "" {
		upstreamReq.Header.Set("User-Agent", provider.UserAgent)
	}
	if rng := r.Header.Get("Range"); rng != "" {
		upstreamReq.Header.Set("Range", rng)
	}

	resp, err := rl.Client.Do(upstreamReq)
	if err != nil {
		metrics.IncRelayRequest("upstream_unreachable")
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	metrics.IncRelayRequest("ok")
	metrics.RelayStreamOpened()
	defer metrics.RelayStreamClosed()

	copyHeader(w.Header(), resp.Header, "Content-Type", "Content-Length", "Content-Range", "Accept-Ranges")
	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body) // a client disconnect mid-copy is a normal termination, not an error
	metrics.AddRelayBytes(n)
}

var (
	errNoActiveSnapshot = errors.New("relay: no active snapshot")
	errUnknownStreamKey = errors.New("relay: unknown stream key")
)

// resolve loads the active provider's active profile's active snapshot and
// locates the channel_index.json entry for streamKey.
func (rl *Relay) resolve(ctx context.Context, streamKey string) (*catalog.Provider, *catalog.Profile, *snapshot.ChannelIndexEntry, error) {
	provider, profile, snap, err := rl.activeSnapshot(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	entries, err := readChannelIndex(snap.ChannelIndexPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("relay: read channel index: %w", err)
	}
	for i := range entries {
		if entries[i].StreamKey == streamKey {
			return provider, profile, &entries[i], nil
		}
	}
	return nil, nil, nil, errUnknownStreamKey
}

// activeSnapshot resolves the active provider, its active profile, and that
// profile's active snapshot — the same (provider, profile) pairing the
// Snapshot Builder itself selects, so a client-visible stream key is always
// looked up against the lineup that produced it.
func (rl *Relay) activeSnapshot(ctx context.Context) (*catalog.Provider, *catalog.Profile, *catalog.Snapshot, error) {
	provider, err := rl.Store.ActiveProvider(ctx)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, nil, errNoActiveSnapshot
	}
	if err != nil {
		return nil, nil, nil, err
	}

	profile, err := rl.Store.ActiveProviderProfile(ctx, provider.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, nil, errNoActiveSnapshot
	}
	if err != nil {
		return nil, nil, nil, err
	}

	snap, err := rl.Store.ActiveSnapshot(ctx, profile.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, nil, errNoActiveSnapshot
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return provider, profile, snap, nil
}

func readChannelIndex(path string) ([]snapshot.ChannelIndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []snapshot.ChannelIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode channel index: %w", err)
	}
	return entries, nil
}

func copyHeader(dst, src http.Header, keys ...string) {
	for _, k := range keys {
		if v := src.Get(k); v != "" {
			dst.Set(k, v)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

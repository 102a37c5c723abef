package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/fetch"
	"github.com/m3undle/lineup/internal/snapshot"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.sqlite")
	s, err := catalog.Open(context.Background(), dbPath, catalog.DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func router(rl *Relay) http.Handler {
	r := chi.NewRouter()
	r.Get("/stream/{streamKey}", rl.Handler())
	return r
}

// publishedFixture boots a catalog + builder against an upstream playlist
// server, includes the one group it produces, builds a snapshot, and
// returns the store plus the resulting channel's stream key.
func publishedFixture(t *testing.T, upstreamURL string) (*catalog.Store, *catalog.Provider, string) {
	t.Helper()
	s := newTestStore(t)
	ctx := context.Background()

	provider := &catalog.Provider{
		ID: uuid.NewString(), Name: "p1", PlaylistURL: upstreamURL + "/playlist.m3u",
		TimeoutSeconds: 5, Enabled: true, IsActive: true,
	}
	if err := s.CreateProvider(ctx, provider); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	profile := &catalog.Profile{ID: uuid.NewString(), Name: "pf", OutputName: "m3undle", Enabled: true}
	if err := s.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := s.AssociateProvider(ctx, catalog.ProfileProvider{ProfileID: profile.ID, ProviderID: provider.ID, Priority: 0, Enabled: true}); err != nil {
		t.Fatalf("AssociateProvider: %v", err)
	}

	b := snapshot.NewBuilder(s, fetch.New(), t.TempDir(), 3)
	if err := b.BuildFull(ctx); err != nil {
		t.Fatalf("BuildFull: %v", err)
	}

	filters, err := s.ListFiltersForProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ListFiltersForProfile: %v", err)
	}
	for _, f := range filters {
		f.Decision = catalog.DecisionInclude
		f.ChannelMode = catalog.ChannelModeAll
		if err := s.UpdateFilterDecision(ctx, f); err != nil {
			t.Fatalf("UpdateFilterDecision: %v", err)
		}
	}
	if err := b.BuildOnly(ctx); err != nil {
		t.Fatalf("BuildOnly: %v", err)
	}

	snap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	data, err := readChannelIndex(snap.ChannelIndexPath)
	if err != nil {
		t.Fatalf("readChannelIndex: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("channel index entries = %d, want 1", len(data))
	}
	return s, provider, data[0].StreamKey
}

func TestServeMirrorsUpstreamStatusHeadersAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/playlist.m3u" {
			_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:-1 tvg-id=\"cnn.us\" group-title=\"News\",CNN\n" + "http://upstream-placeholder/cnn\n"))
			return
		}
		w.Header().Set("Content-Type", "video/mp2t")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("segment-bytes"))
	}))
	t.Cleanup(upstream.Close)

	s, _, streamKey := publishedFixture(t, upstream.URL)

	// The built index carries the literal stream URL seen in the playlist,
	// which points at a placeholder host; rewrite it to the real upstream
	// test server so the relay has somewhere real to dial.
	rewriteStreamURL(t, s, streamKey, upstream.URL+"/cnn")

	rl := New(s, 100, 10)
	srv := httptest.NewServer(router(rl))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/stream/" + streamKey)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp2t" {
		t.Fatalf("Content-Type = %q, want video/mp2t", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "segment-bytes" {
		t.Fatalf("body = %q, want segment-bytes", body)
	}
}

func TestServeReturns404ForUnknownStreamKey(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:-1,X\nhttp://x/1\n"))
	}))
	t.Cleanup(upstream.Close)

	s, _, _ := publishedFixture(t, upstream.URL)
	rl := New(s, 100, 10)
	srv := httptest.NewServer(router(rl))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/stream/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServeReturns503WhenNoActiveSnapshot(t *testing.T) {
	s := newTestStore(t)
	rl := New(s, 100, 10)
	srv := httptest.NewServer(router(rl))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/stream/anything")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After = %q, want 60", got)
	}
}

func TestServeReturns502WhenUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:-1 tvg-id=\"cnn.us\" group-title=\"News\",CNN\nhttp://127.0.0.1:1/unreachable\n"))
	}))
	t.Cleanup(upstream.Close)

	s, _, streamKey := publishedFixture(t, upstream.URL)
	rl := New(s, 100, 10)
	srv := httptest.NewServer(router(rl))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/stream/" + streamKey)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

// rewriteStreamURL patches the on-disk channel_index.json entry for
// streamKey so its streamUrl points at dst, without disturbing its
// identity-derived key.
func rewriteStreamURL(t *testing.T, s *catalog.Store, streamKey, dst string) {
	t.Helper()
	ctx := context.Background()
	provider, err := s.ActiveProvider(ctx)
	if err != nil {
		t.Fatalf("ActiveProvider: %v", err)
	}
	profile, err := s.ActiveProviderProfile(ctx, provider.ID)
	if err != nil {
		t.Fatalf("ActiveProviderProfile: %v", err)
	}
	snap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	entries, err := readChannelIndex(snap.ChannelIndexPath)
	if err != nil {
		t.Fatalf("readChannelIndex: %v", err)
	}
	for i := range entries {
		if entries[i].StreamKey == streamKey {
			entries[i].StreamURL = dst
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		t.Fatalf("marshal channel index: %v", err)
	}
	if err := os.WriteFile(snap.ChannelIndexPath, data, 0o644); err != nil {
		t.Fatalf("write channel index: %v", err)
	}
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/fetch"
	"github.com/m3undle/lineup/internal/relay"
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

const apiFixture = `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" group-title="News",CNN
http://x/s/1
`

func publishedServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(apiFixture))
	}))
	t.Cleanup(upstream.Close)

	s := newTestStore(t)
	ctx := context.Background()
	provider := &catalog.Provider{ID: uuid.NewString(), Name: "p1", PlaylistURL: upstream.URL, TimeoutSeconds: 5, Enabled: true, IsActive: true}
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

	rl := relay.New(s, 100, 10)
	srv := NewServer(s, rl, "http://lineup.local").Router()
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)
	return httpSrv, profile.OutputName
}

func TestHandlePlaylistRendersIncludedChannel(t *testing.T) {
	srv, outputName := publishedServer(t)

	resp, err := http.Get(srv.URL + "/" + outputName + ".m3u")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	if !strings.HasPrefix(text, "#EXTM3U") {
		t.Fatalf("body does not start with #EXTM3U: %s", text)
	}
	if !strings.Contains(text, "CNN") || !strings.Contains(text, "/stream/") {
		t.Fatalf("body missing expected stanza: %s", text)
	}
}

func TestHandlePlaylistReturns503ForUnknownOutput(t *testing.T) {
	srv, _ := publishedServer(t)

	resp, err := http.Get(srv.URL + "/does-not-exist.m3u")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHandleGuideServesActiveSnapshotGuide(t *testing.T) {
	srv, outputName := publishedServer(t)

	resp, err := http.Get(srv.URL + "/" + outputName + ".xml")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/xml") {
		t.Fatalf("Content-Type = %q, want application/xml", got)
	}
}

func TestHandleStatusReportsOK(t *testing.T) {
	srv, outputName := publishedServer(t)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != statusOK {
		t.Fatalf("Status = %q, want %q", got.Status, statusOK)
	}
	if len(got.Lineups) != 1 {
		t.Fatalf("Lineups = %+v, want exactly one entry", got.Lineups)
	}
	l := got.Lineups[0]
	if l.Name != outputName || l.Status != statusOK {
		t.Fatalf("lineup = %+v, want name %q and status ok", l, outputName)
	}
	if l.ActiveProvider == nil || l.ActiveProvider.Name != "p1" {
		t.Fatalf("ActiveProvider = %+v, want p1", l.ActiveProvider)
	}
	if l.ActiveSnapshot == nil || l.ActiveSnapshot.ChannelCountPublished == 0 || l.ActiveSnapshot.CreatedUTC == "" {
		t.Fatalf("ActiveSnapshot = %+v, want populated fields", l.ActiveSnapshot)
	}
	if l.LastRefresh == nil || l.LastRefresh.Status != string(catalog.FetchRunOK) {
		t.Fatalf("LastRefresh = %+v, want status ok", l.LastRefresh)
	}
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := publishedServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

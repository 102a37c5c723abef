package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/fetch"
)

const builderFixture = `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" group-title="News",CNN
http://x/s/1
#EXTINF:-1,Other
http://x/s/2
`

func playlistServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func includeGroup(t *testing.T, s *catalog.Store, ctx context.Context, profileID, rawGroupName string) {
	t.Helper()
	filters, err := s.ListFiltersForProfile(ctx, profileID)
	if err != nil {
		t.Fatalf("ListFiltersForProfile: %v", err)
	}
	for _, f := range filters {
		g, err := s.GetGroup(ctx, f.ProviderGroupID)
		if err != nil {
			t.Fatalf("GetGroup: %v", err)
		}
		if g.RawName == rawGroupName {
			f.Decision = catalog.DecisionInclude
			f.ChannelMode = catalog.ChannelModeAll
			if err := s.UpdateFilterDecision(ctx, f); err != nil {
				t.Fatalf("UpdateFilterDecision: %v", err)
			}
		}
	}
}

func TestBuildFullPublishesEmptySnapshotWhenFiltersPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	srv := playlistServer(t, builderFixture)

	provider := &catalog.Provider{ID: uuid.NewString(), Name: "p1", PlaylistURL: srv.URL, TimeoutSeconds: 5, Enabled: true, IsActive: true}
	if err := s.CreateProvider(ctx, provider); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	profile := setupProfile(t, s, ctx, provider.ID)

	b := NewBuilder(s, fetch.New(), t.TempDir(), 3)
	if err := b.BuildFull(ctx); err != nil {
		t.Fatalf("BuildFull: %v", err)
	}

	snap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if snap.ChannelCountPublished != 0 {
		t.Fatalf("ChannelCountPublished = %d, want 0 (no group included yet)", snap.ChannelCountPublished)
	}
	data, err := os.ReadFile(snap.ChannelIndexPath)
	if err != nil {
		t.Fatalf("ReadFile channel index: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("channel_index.json = %s, want []", data)
	}
}

func TestBuildOnlyEmitsIncludedChannelAndPromotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	srv := playlistServer(t, builderFixture)

	provider := &catalog.Provider{ID: uuid.NewString(), Name: "p1", PlaylistURL: srv.URL, TimeoutSeconds: 5, Enabled: true, IsActive: true}
	if err := s.CreateProvider(ctx, provider); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	profile := setupProfile(t, s, ctx, provider.ID)

	b := NewBuilder(s, fetch.New(), t.TempDir(), 3)
	if err := b.BuildFull(ctx); err != nil {
		t.Fatalf("BuildFull: %v", err)
	}
	firstSnap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}

	includeGroup(t, s, ctx, profile.ID, "News")

	if err := b.BuildOnly(ctx); err != nil {
		t.Fatalf("BuildOnly: %v", err)
	}
	secondSnap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if secondSnap.ID == firstSnap.ID {
		t.Fatal("BuildOnly should have staged and promoted a new snapshot")
	}
	if secondSnap.ChannelCountPublished != 1 {
		t.Fatalf("ChannelCountPublished = %d, want 1", secondSnap.ChannelCountPublished)
	}
	data, err := os.ReadFile(secondSnap.ChannelIndexPath)
	if err != nil {
		t.Fatalf("ReadFile channel index: %v", err)
	}
	if !strings.Contains(string(data), "CNN") {
		t.Fatalf("channel_index.json = %s, want CNN entry", data)
	}
}

func TestBuildFullFailureLeavesPriorSnapshotActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	goodSrv := playlistServer(t, builderFixture)

	provider := &catalog.Provider{ID: uuid.NewString(), Name: "good", PlaylistURL: goodSrv.URL, TimeoutSeconds: 5, Enabled: true, IsActive: true}
	if err := s.CreateProvider(ctx, provider); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	profile := setupProfile(t, s, ctx, provider.ID)

	b := NewBuilder(s, fetch.New(), t.TempDir(), 3)
	if err := b.BuildFull(ctx); err != nil {
		t.Fatalf("BuildFull: %v", err)
	}
	includeGroup(t, s, ctx, profile.ID, "News")
	if err := b.BuildOnly(ctx); err != nil {
		t.Fatalf("BuildOnly: %v", err)
	}
	goodSnap, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}

	broken := &catalog.Provider{ID: uuid.NewString(), Name: "broken", PlaylistURL: "http://127.0.0.1:1/unreachable", TimeoutSeconds: 1, Enabled: true}
	if err := s.CreateProvider(ctx, broken); err != nil {
		t.Fatalf("CreateProvider broken: %v", err)
	}
	if err := s.AssociateProvider(ctx, catalog.ProfileProvider{ProfileID: profile.ID, ProviderID: broken.ID, Priority: 1, Enabled: true}); err != nil {
		t.Fatalf("AssociateProvider broken: %v", err)
	}
	if err := s.SetActiveProvider(ctx, broken.ID); err != nil {
		t.Fatalf("SetActiveProvider: %v", err)
	}

	if err := b.BuildFull(ctx); err == nil {
		t.Fatal("expected BuildFull to fail against an unreachable provider")
	}

	stillActive, err := s.ActiveSnapshot(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if stillActive.ID != goodSnap.ID {
		t.Fatalf("active snapshot changed after a failed refresh: got %s, want %s", stillActive.ID, goodSnap.ID)
	}
}

func TestRetentionSweepDeletesBeyondConfiguredCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	srv := playlistServer(t, builderFixture)

	provider := &catalog.Provider{ID: uuid.NewString(), Name: "p1", PlaylistURL: srv.URL, TimeoutSeconds: 5, Enabled: true, IsActive: true}
	if err := s.CreateProvider(ctx, provider); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	profile := setupProfile(t, s, ctx, provider.ID)

	b := NewBuilder(s, fetch.New(), t.TempDir(), 1)
	for i := 0; i < 3; i++ {
		if err := b.BuildOnly(ctx); err != nil {
			t.Fatalf("BuildOnly %d: %v", i, err)
		}
	}

	snaps, err := s.ListSnapshots(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1 after retention sweep", len(snaps))
	}
}

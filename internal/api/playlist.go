package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/playlist"
	"github.com/m3undle/lineup/internal/snapshot"
)

// handlePlaylist serves GET /<outputName>.m3u: the extended-M3U rendering
// of the profile's active snapshot, or 503 + Retry-After when none exists
// yet.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	outputName := chi.URLParam(r, "outputName")

	profile, snap, err := s.activeSnapshotForOutput(r.Context(), outputName)
	if err != nil {
		s.writeNoActiveSnapshot(w, err)
		return
	}

	entries, err := readChannelIndex(snap.ChannelIndexPath)
	if err != nil {
		s.writeSnapshotUnavailable(w)
		return
	}

	renderEntries := make([]playlist.RenderEntry, 0, len(entries))
	for _, e := range entries {
		re := playlist.RenderEntry{
			StreamKey: e.StreamKey, DisplayName: e.DisplayName,
			TvgID: e.TvgID, TvgName: e.TvgName, TvgLogo: e.LogoURL, GroupTitle: e.GroupTitle,
		}
		if e.ChannelNum != nil {
			re.TvgChno = *e.ChannelNum
		}
		renderEntries = append(renderEntries, re)
	}

	w.Header().Set("Content-Type", "application/x-mpegurl; charset=utf-8")
	guideURL := fmt.Sprintf("%s/%s.xml", s.BaseURL, profile.OutputName)
	if err := playlist.Render(w, renderEntries, s.BaseURL, guideURL); err != nil {
		s.writeSnapshotUnavailable(w)
	}
}

// handleGuide serves GET /<outputName>.xml: the active snapshot's guide
// file, verbatim.
func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	outputName := chi.URLParam(r, "outputName")

	_, snap, err := s.activeSnapshotForOutput(r.Context(), outputName)
	if err != nil {
		s.writeNoActiveSnapshot(w, err)
		return
	}

	data, err := os.ReadFile(snap.GuidePath)
	if err != nil {
		s.writeSnapshotUnavailable(w)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(data)
}

// activeSnapshotForOutput resolves a client-facing outputName to its
// Profile and that Profile's active Snapshot. Any lookup miss along the
// chain — unknown output name, or a profile with no active snapshot yet —
// is reported uniformly via errNoActiveSnapshot.
func (s *Server) activeSnapshotForOutput(ctx context.Context, outputName string) (*catalog.Profile, *catalog.Snapshot, error) {
	profile, err := s.Store.GetProfileByOutputName(ctx, outputName)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, errNoActiveSnapshot
	}
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.Store.ActiveSnapshot(ctx, profile.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, errNoActiveSnapshot
	}
	if err != nil {
		return nil, nil, err
	}
	return profile, snap, nil
}

var errNoActiveSnapshot = errors.New("api: no active snapshot")

func readChannelIndex(path string) ([]snapshot.ChannelIndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []snapshot.ChannelIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// writeNoActiveSnapshot maps activeSnapshotForOutput's error to the right
// status: 503 + Retry-After when there's simply nothing published yet, 500
// for anything else (a store failure).
func (s *Server) writeNoActiveSnapshot(w http.ResponseWriter, err error) {
	if errors.Is(err, errNoActiveSnapshot) {
		s.writeSnapshotUnavailable(w)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// writeSnapshotUnavailable reports that an active snapshot's published
// artifact is missing or unreadable on disk. This is the same client-facing
// condition as having no active snapshot at all — a retryable gap, not a
// hard failure — so it gets the same 503 + Retry-After treatment.
func (s *Server) writeSnapshotUnavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	http.Error(w, "snapshot artifact unavailable", http.StatusServiceUnavailable)
}

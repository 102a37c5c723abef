package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/m3undle/lineup/internal/catalog"
)

// statusResponse is the JSON document served at GET /status: an overall
// health rollup plus one entry per published lineup.
type statusResponse struct {
	Status  string         `json:"status"`
	Lineups []lineupStatus `json:"lineups"`
}

type lineupStatus struct {
	Name           string              `json:"name"`
	Status         string              `json:"status"`
	ActiveProvider *activeProviderView `json:"activeProvider"`
	ActiveSnapshot *activeSnapshotView `json:"activeSnapshot"`
	LastRefresh    *lastRefreshView    `json:"lastRefresh"`
}

type activeProviderView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type activeSnapshotView struct {
	ID                    string `json:"id"`
	ProfileID             string `json:"profileId"`
	CreatedUTC            string `json:"createdUtc"`
	ChannelCountPublished int    `json:"channelCountPublished"`
}

type lastRefreshView struct {
	Status           string `json:"status"`
	StartedUTC       string `json:"startedUtc"`
	FinishedUTC      string `json:"finishedUtc,omitempty"`
	ChannelCountSeen int    `json:"channelCountSeen"`
	ErrorSummary     string `json:"errorSummary,omitempty"`
}

const (
	statusOK               = "ok"
	statusDegraded         = "degraded"
	statusNoActiveSnapshot = "no_active_snapshot"
)

// statusRank orders the per-lineup statuses from best to worst so the
// overall status can be computed as the worst of any lineup.
func statusRank(status string) int {
	switch status {
	case statusOK:
		return 0
	case statusDegraded:
		return 1
	default:
		return 2
	}
}

// handleStatus serves GET /status: one entry per configured profile,
// reporting its active snapshot (if any) and the most recent fetch run of
// whichever provider currently serves it. A lineup is degraded when it has
// an active snapshot but its provider's latest fetch run failed, and
// no_active_snapshot when nothing has ever published successfully.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := s.Store.ListProfiles(ctx)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	activeProvider, err := s.Store.ActiveProvider(ctx)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var servedProfileID string
	if activeProvider != nil {
		if servedProfile, err := s.Store.ActiveProviderProfile(ctx, activeProvider.ID); err == nil {
			servedProfileID = servedProfile.ID
		} else if !errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	resp := statusResponse{Lineups: make([]lineupStatus, 0, len(profiles))}
	for _, profile := range profiles {
		lineup := lineupStatus{Name: profile.OutputName, Status: statusNoActiveSnapshot}

		if activeProvider != nil && servedProfileID == profile.ID {
			lineup.ActiveProvider = &activeProviderView{ID: activeProvider.ID, Name: activeProvider.Name}
		}

		snap, err := s.Store.ActiveSnapshot(ctx, profile.ID)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if snap != nil {
			lineup.Status = statusOK
			lineup.ActiveSnapshot = &activeSnapshotView{
				ID: snap.ID, ProfileID: snap.ProfileID,
				CreatedUTC: snap.CreatedAt.UTC().Format(time.RFC3339), ChannelCountPublished: snap.ChannelCountPublished,
			}
		}

		if lineup.ActiveProvider != nil {
			run, err := s.Store.LatestFetchRun(ctx, activeProvider.ID)
			if err != nil && !errors.Is(err, catalog.ErrNotFound) {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if run != nil {
				lineup.LastRefresh = &lastRefreshView{
					Status: string(run.Status), StartedUTC: run.StartedAt.UTC().Format(time.RFC3339),
					ChannelCountSeen: run.ChannelCountSeen, ErrorSummary: run.ErrorSummary,
				}
				if !run.FinishedAt.IsZero() {
					lineup.LastRefresh.FinishedUTC = run.FinishedAt.UTC().Format(time.RFC3339)
				}
				if lineup.Status == statusOK && run.Status == catalog.FetchRunFail {
					lineup.Status = statusDegraded
				}
			}
		}

		resp.Lineups = append(resp.Lineups, lineup)
	}

	resp.Status = statusNoActiveSnapshot
	for i, l := range resp.Lineups {
		if i == 0 || statusRank(l.Status) > statusRank(resp.Status) {
			resp.Status = l.Status
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

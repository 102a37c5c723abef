// Package reconcile merges one fetch's parsed playlist entries into the
// catalog: it upserts groups and channels under stable identities,
// deactivates anything absent from the current fetch, and lazily creates
// pending filter rows for newly seen groups.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/identity"
	"github.com/m3undle/lineup/internal/playlist"
)

// Summary carries the counts the Reconciler reports back onto the FetchRun
// that triggered it.
type Summary struct {
	ChannelCountSeen int
	GroupsUpserted   int
	GroupsRetired    int
	ChannelsUpserted int
	ChannelsRetired  int
}

// Reconcile runs the five ordered steps of the merge within one
// transaction: group reconcile, group deactivation, filter backfill,
// channel upsert, channel deactivation.
func Reconcile(ctx context.Context, store *catalog.Store, providerID, fetchRunID string, entries []playlist.Entry, now time.Time) (Summary, error) {
	var summary Summary
	summary.ChannelCountSeen = len(entries)

	targetProfile, err := store.ActiveProviderProfile(ctx, providerID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return summary, fmt.Errorf("reconcile: lookup target profile: %w", err)
	}

	groups := aggregateGroups(entries)

	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		rawNameToGroupID := make(map[string]string, len(groups))
		for rawName, agg := range groups {
			groupID, err := catalog.UpsertGroup(ctx, tx, uuid.NewString(), catalog.UpsertGroupInput{
				ProviderID:  providerID,
				RawName:     rawName,
				ChannelCnt:  agg.count,
				ContentType: agg.contentType(),
			})
			if err != nil {
				return fmt.Errorf("group reconcile %q: %w", rawName, err)
			}
			rawNameToGroupID[rawName] = groupID
			summary.GroupsUpserted++
		}

		keepNames := make([]string, 0, len(groups))
		for rawName := range groups {
			keepNames = append(keepNames, rawName)
		}
		if err := catalog.DeactivateGroupsNotIn(ctx, tx, providerID, keepNames); err != nil {
			return fmt.Errorf("group deactivation: %w", err)
		}

		excludedGroupIDs := make(map[string]bool)
		if targetProfile != nil {
			pending, err := catalog.ActiveGroupsWithoutFilter(ctx, tx, providerID, targetProfile.ID)
			if err != nil {
				return fmt.Errorf("filter backfill lookup: %w", err)
			}
			for _, g := range pending {
				if err := catalog.InsertPendingFilter(ctx, tx, uuid.NewString(), targetProfile.ID, g.ID); err != nil {
					return fmt.Errorf("filter backfill %q: %w", g.RawName, err)
				}
			}

			for rawName, groupID := range rawNameToGroupID {
				f, err := catalog.GetGroupFilter(ctx, tx, targetProfile.ID, groupID)
				if errors.Is(err, catalog.ErrNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("lookup filter for group %q: %w", rawName, err)
				}
				if f.Decision == catalog.DecisionExclude {
					excludedGroupIDs[groupID] = true
				}
			}
		}

		occurrences := make(map[string]int)
		var seenStableKeys []string
		for _, e := range entries {
			if e.DisplayName == "" || e.StreamURL == "" {
				continue
			}
			groupID := rawNameToGroupID[e.GroupTitle]
			if excludedGroupIDs[groupID] {
				continue
			}

			occKey := identityKey(e)
			occurrences[occKey]++
			occurrence := occurrences[occKey]

			id := identity.ChannelIdentity(e.TvgID, e.DisplayName, e.StreamURL, e.GroupTitle, occurrence)
			stableKey := identity.StableChannelKey(id)
			seenStableKeys = append(seenStableKeys, stableKey)

			err := catalog.UpsertChannel(ctx, tx, uuid.NewString(), catalog.UpsertChannelInput{
				ProviderID:   providerID,
				StableKey:    stableKey,
				DisplayName:  e.DisplayName,
				TvgID:        e.TvgID,
				TvgName:      e.TvgName,
				TvgLogo:      e.TvgLogo,
				StreamURL:    e.StreamURL,
				GroupRawName: e.GroupTitle,
				GroupID:      groupID,
				ContentType:  string(e.ContentType),
				FetchRunID:   fetchRunID,
			})
			if err != nil {
				return fmt.Errorf("channel upsert %q: %w", e.DisplayName, err)
			}
			summary.ChannelsUpserted++
		}

		if err := catalog.DeactivateChannelsNotIn(ctx, tx, providerID, seenStableKeys); err != nil {
			return fmt.Errorf("channel deactivation: %w", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// identityKey groups entries for duplicate-occurrence counting, ahead of
// the disambiguating suffix internal/identity.ChannelIdentity appends for
// the 2nd and later occurrence of the same base identity.
func identityKey(e playlist.Entry) string {
	if e.TvgID != "" {
		return e.TvgID
	}
	return e.DisplayName + "\x1f" + e.StreamURL
}

type groupAggregate struct {
	count  int
	live   int
	vod    int
	series int
}

func (a groupAggregate) contentType() catalog.GroupContentType {
	switch {
	case a.count == 0:
		return catalog.GroupLive
	case a.live > 0 && a.vod == 0 && a.series == 0:
		return catalog.GroupLive
	case a.vod > 0 && a.live == 0 && a.series == 0:
		return catalog.GroupVOD
	case a.series > 0 && a.live == 0 && a.vod == 0:
		return catalog.GroupSeries
	default:
		return catalog.GroupMixed
	}
}

func aggregateGroups(entries []playlist.Entry) map[string]*groupAggregate {
	groups := make(map[string]*groupAggregate)
	for _, e := range entries {
		agg, ok := groups[e.GroupTitle]
		if !ok {
			agg = &groupAggregate{}
			groups[e.GroupTitle] = agg
		}
		agg.count++
		switch e.ContentType {
		case playlist.Live:
			agg.live++
		case playlist.VOD:
			agg.vod++
		case playlist.Series:
			agg.series++
		}
	}
	return groups
}

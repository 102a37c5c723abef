package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/identity"
)

const (
	movieBucket  = "Movies"
	seriesBucket = "Series"
)

// assemble implements input selection and output assembly: it reads the
// active channels for provider, applies group-decision gating for live
// channels, buckets VOD/series channels unconditionally, orders each output
// group, and returns the final emitted list in a stable, deterministic
// order across output groups.
func assemble(ctx context.Context, store *catalog.Store, provider *catalog.Provider, profile *catalog.Profile) ([]ChannelIndexEntry, error) {
	channels, err := store.ActiveChannelsForBuild(ctx, provider.ID, provider.IncludeVOD, provider.IncludeSeries)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load active channels: %w", err)
	}

	filters, err := store.ListFiltersForProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load group filters: %w", err)
	}
	filtersByGroupID := make(map[string]*catalog.ProfileGroupFilter, len(filters))
	for _, f := range filters {
		filtersByGroupID[f.ProviderGroupID] = f
	}

	overridesByFilter := make(map[string]map[string]*catalog.ProfileGroupChannelFilter)
	for _, f := range filters {
		if f.Decision != catalog.DecisionInclude || f.ChannelMode != catalog.ChannelModeSelect {
			continue
		}
		overrides, err := store.ListChannelOverrides(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot: load channel overrides for filter %s: %w", f.ID, err)
		}
		byChannel := make(map[string]*catalog.ProfileGroupChannelFilter, len(overrides))
		for _, o := range overrides {
			byChannel[o.ProviderChannelID] = o
		}
		overridesByFilter[f.ID] = byChannel
	}

	byOutputGroup := map[string][]assembledChannel{}
	for _, ch := range channels {
		switch ch.ContentType {
		case "vod":
			bucket := movieBucket
			byOutputGroup[bucket] = append(byOutputGroup[bucket], assembledChannel{channel: ch, outputGroup: bucket})
		case "series":
			bucket := seriesBucket
			byOutputGroup[bucket] = append(byOutputGroup[bucket], assembledChannel{channel: ch, outputGroup: bucket})
		default: // live
			f, ok := filtersByGroupID[ch.GroupID]
			if !ok || f.Decision != catalog.DecisionInclude {
				continue
			}
			switch f.ChannelMode {
			case catalog.ChannelModeAll:
				outputName := f.OutputName
				if outputName == "" {
					outputName = ch.GroupRawName
				}
				byOutputGroup[outputName] = append(byOutputGroup[outputName], assembledChannel{
					channel: ch, outputGroup: outputName, autoNumStart: f.AutoNumStart, autoNumEnd: f.AutoNumEnd,
				})
			case catalog.ChannelModeSelect:
				override, ok := overridesByFilter[f.ID][ch.ID]
				if !ok {
					continue
				}
				outputName := override.OutputGroupName
				if outputName == "" {
					outputName = f.OutputName
				}
				if outputName == "" {
					outputName = ch.GroupRawName
				}
				byOutputGroup[outputName] = append(byOutputGroup[outputName], assembledChannel{
					channel: ch, outputGroup: outputName, number: override.ChannelNumber,
					autoNumStart: f.AutoNumStart, autoNumEnd: f.AutoNumEnd,
				})
			}
		}
	}

	groupNames := make([]string, 0, len(byOutputGroup))
	for name := range byOutputGroup {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	var entries []ChannelIndexEntry
	for _, name := range groupNames {
		for _, ac := range orderGroup(byOutputGroup[name]) {
			entries = append(entries, toIndexEntry(ac, profile.ID))
		}
	}
	return entries, nil
}

// orderGroup applies the three-step ordering rule within one output group:
// explicit-number channels first (ascending), then unnumbered channels by
// display name then stream URL, with auto-numbering applied to the
// unnumbered tail when a contributing filter defines an auto-number range.
func orderGroup(channels []assembledChannel) []assembledChannel {
	var numbered, unnumbered []assembledChannel
	for _, ac := range channels {
		if ac.number != nil {
			numbered = append(numbered, ac)
		} else {
			unnumbered = append(unnumbered, ac)
		}
	}

	sort.Slice(numbered, func(i, j int) bool { return *numbered[i].number < *numbered[j].number })
	sort.Slice(unnumbered, func(i, j int) bool {
		if unnumbered[i].channel.DisplayName != unnumbered[j].channel.DisplayName {
			return unnumbered[i].channel.DisplayName < unnumbered[j].channel.DisplayName
		}
		return unnumbered[i].channel.StreamURL < unnumbered[j].channel.StreamURL
	})

	var autoStart, autoEnd *int
	for _, ac := range unnumbered {
		if ac.autoNumStart != nil {
			autoStart, autoEnd = ac.autoNumStart, ac.autoNumEnd
			break
		}
	}
	if autoStart != nil {
		next := *autoStart
		for i := range unnumbered {
			if autoEnd != nil && next > *autoEnd {
				break
			}
			n := next
			unnumbered[i].number = &n
			next++
		}
	}

	return append(numbered, unnumbered...)
}

func toIndexEntry(ac assembledChannel, profileID string) ChannelIndexEntry {
	ch := ac.channel
	streamIdentity := identity.StreamKeyIdentity(ch.TvgID, ch.StreamURL, ac.outputGroup, ch.DisplayName)
	return ChannelIndexEntry{
		StreamKey:   identity.StreamKey(streamIdentity, profileID),
		DisplayName: ch.DisplayName,
		TvgID:       ch.TvgID,
		TvgName:     ch.TvgName,
		LogoURL:     ch.TvgLogo,
		GroupTitle:  ac.outputGroup,
		ChannelNum:  ac.number,
		StreamURL:   ch.StreamURL,
	}
}

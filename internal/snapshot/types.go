// Package snapshot assembles the curated, per-profile channel lineup from
// the catalog and publishes it as a new snapshot generation: a
// channel_index.json plus a guide.xml, promoted atomically and swept by
// retention count.
package snapshot

import "github.com/m3undle/lineup/internal/catalog"

// ChannelIndexEntry is one emitted channel, serialized as the client-facing
// artifact read by the playlist and status endpoints.
type ChannelIndexEntry struct {
	StreamKey   string `json:"streamKey"`
	DisplayName string `json:"displayName"`
	TvgID       string `json:"tvgId,omitempty"`
	TvgName     string `json:"tvgName,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	GroupTitle  string `json:"groupTitle"`
	ChannelNum  *int   `json:"tvgChno,omitempty"`
	StreamURL   string `json:"streamUrl"`
}

// assembledChannel is the intermediate representation produced by assemble,
// before ordering and numbering are finalized.
type assembledChannel struct {
	channel      *catalog.ProviderChannel
	outputGroup  string
	number       *int
	autoNumStart *int
	autoNumEnd   *int
}

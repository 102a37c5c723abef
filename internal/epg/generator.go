// Package epg holds the XMLTV document types shared by guide passthrough
// and the minimal-empty-guide fallback the Snapshot Builder writes when an
// upstream has no guide location configured or its guide fetch failed.
package epg

import (
	"encoding/xml"
	"fmt"

	"github.com/google/renameio/v2"
)

type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   Title  `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Empty returns a minimal, valid XMLTV document with no channels or
// programmes — the fallback written when a provider has no guide location
// or its guide fetch failed, per the Snapshot Builder's "guide-fetch
// failure is non-fatal" rule.
func Empty() *TV {
	return &TV{
		Generator: "lineupd",
		Channels:  []Channel{},
		Programs:  []Programme{},
	}
}

// Write atomically and durably writes tv as XMLTV to path, grounded in the
// same renameio temp-file-then-atomic-rename pattern used for the snapshot's
// channel_index.json artifact.
func Write(tv *TV, path string) error {
	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return fmt.Errorf("epg: marshal xmltv: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("epg: create pending file: %w", err)
	}
	defer pendingFile.Cleanup()

	if _, err := pendingFile.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("epg: write header: %w", err)
	}
	if _, err := pendingFile.Write(out); err != nil {
		return fmt.Errorf("epg: write body: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("epg: atomically replace xmltv file: %w", err)
	}
	return nil
}

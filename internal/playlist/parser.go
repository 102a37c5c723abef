package playlist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var attrPattern = regexp.MustCompile(`(?i)([a-z0-9_-]+)\s*=\s*"([^"]*)"`)

// Parse reads an extended-M3U playlist and returns its entries in order.
// Attribute extraction on the #EXTINF line is case-insensitive; an explicit
// #EXTGRP marker, when present, overrides that stanza's group-title.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []Entry
	var pending *Entry
	var explicitGroup string
	sawHeader := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "#EXTM3U"):
			sawHeader = true
		case strings.HasPrefix(line, "#EXTINF:"):
			e := parseExtinf(line)
			pending = &e
			explicitGroup = ""
		case strings.HasPrefix(line, "#EXTGRP:"):
			explicitGroup = strings.TrimSpace(strings.TrimPrefix(line, "#EXTGRP:"))
		case strings.HasPrefix(line, "#"):
			// unrecognized directive, ignore.
		default:
			if pending == nil {
				// a bare URL with no preceding #EXTINF; synthesize a minimal entry.
				pending = &Entry{}
			}
			pending.StreamURL = line
			if explicitGroup != "" {
				pending.GroupTitle = explicitGroup
			}
			pending.DisplayName = resolveDisplayName(pending.DisplayName, pending.TvgName)
			pending.ContentType = Classify(pending.StreamURL)
			entries = append(entries, *pending)
			pending = nil
			explicitGroup = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("playlist: scan: %w", err)
	}
	if !sawHeader && len(entries) == 0 {
		return nil, fmt.Errorf("playlist: missing #EXTM3U header")
	}
	return entries, nil
}

func parseExtinf(line string) Entry {
	var e Entry
	for _, m := range attrPattern.FindAllStringSubmatch(line, -1) {
		key := strings.ToLower(m[1])
		val := strings.TrimSpace(m[2])
		switch key {
		case "tvg-id":
			e.TvgID = val
		case "tvg-name":
			e.TvgName = val
		case "tvg-logo":
			e.TvgLogo = val
		case "group-title":
			e.GroupTitle = val
		}
	}
	if idx := strings.LastIndex(line, ","); idx != -1 {
		e.DisplayName = strings.TrimSpace(line[idx+1:])
	}
	return e
}

// resolveDisplayName applies the fallback chain: trailing label → tvg-name →
// "Unnamed Channel". Whitespace-only values at any level count as absent.
func resolveDisplayName(label, tvgName string) string {
	if strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	if strings.TrimSpace(tvgName) != "" {
		return strings.TrimSpace(tvgName)
	}
	return "Unnamed Channel"
}
